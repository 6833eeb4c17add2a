// Package remoteauth checks credentials against the live WordPress site by
// submitting its login form.
package remoteauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

const (
	loggedInCookiePrefix = "wordpress_logged_in_"
	testCookieName       = "wordpress_test_cookie"
	testCookieValue      = "WP%20Cookie%20check"

	DefaultTimeout = 5 * time.Second
)

// ErrNotConfigured is returned when no login URL is set.
var ErrNotConfigured = errors.New("remote login url not configured")

// WordPressAuthenticator posts credentials to wp-login.php and inspects the
// response for a session.
type WordPressAuthenticator struct {
	loginURL  string
	timeout   time.Duration
	transport http.RoundTripper
}

// NewWordPressAuthenticator returns an authenticator for the given
// wp-login.php URL. A non-positive timeout means DefaultTimeout.
func NewWordPressAuthenticator(loginURL string, timeout time.Duration) *WordPressAuthenticator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &WordPressAuthenticator{loginURL: loginURL, timeout: timeout, transport: http.DefaultTransport}
}

// AttemptLogin reports whether WordPress accepts identifier and secret.
// Redirects are not followed: a logged-in cookie or a redirect to exactly
// the submitted redirect_to target is a success, anything else a failure.
func (a *WordPressAuthenticator) AttemptLogin(ctx context.Context, identifier, secret string) (bool, error) {
	if a.loginURL == "" {
		return false, ErrNotConfigured
	}
	u, err := url.Parse(a.loginURL)
	if err != nil {
		return false, fmt.Errorf("parse login url: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return false, err
	}
	jar.SetCookies(u, []*http.Cookie{{Name: testCookieName, Value: testCookieValue, Path: "/"}})

	client := &http.Client{
		Transport: a.transport,
		Jar:       jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	target := u.ResolveReference(&url.URL{Path: "wp-admin/"})
	form := url.Values{
		"log":         {identifier},
		"pwd":         {secret},
		"wp-submit":   {"Log In"},
		"redirect_to": {target.String()},
		"testcookie":  {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	for _, c := range resp.Cookies() {
		if strings.HasPrefix(c.Name, loggedInCookiePrefix) && c.Value != "" {
			return true, nil
		}
	}

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return redirectsTo(u, resp.Header.Get("Location"), target), nil
	case resp.StatusCode >= 500:
		return false, fmt.Errorf("login failed: %s", resp.Status)
	default:
		return false, nil
	}
}

// redirectsTo reports whether location, resolved against the login URL,
// is target. Sites that send failed logins to a custom page must not count.
func redirectsTo(login *url.URL, location string, target *url.URL) bool {
	if location == "" {
		return false
	}
	loc, err := url.Parse(location)
	if err != nil {
		return false
	}
	loc = login.ResolveReference(loc)
	return strings.EqualFold(loc.Scheme, target.Scheme) &&
		strings.EqualFold(loc.Host, target.Host) &&
		loc.Path == target.Path &&
		loc.RawQuery == ""
}
