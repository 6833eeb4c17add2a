// Package ratelimit throttles failed logins per identifier and per client
// IP with fixed-window Redis counters.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophrewards/internal/common"
	"github.com/redis/go-redis/v9"
)

// ErrUnavailable wraps Redis failures. Callers decide whether to fail open.
var ErrUnavailable = errors.New("rate limiter unavailable")

const keyPrefix = "gophrewards:login:"

// LoginLimiter counts failed logins. Once either counter exceeds
// maxAttempts inside window, Check returns common.ErrorRateLimited until
// the window expires.
type LoginLimiter struct {
	redis       redis.UniversalClient
	maxAttempts int
	window      time.Duration
}

func NewLoginLimiter(client redis.UniversalClient, maxAttempts int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{redis: client, maxAttempts: maxAttempts, window: window}
}

// Check reports whether another attempt is allowed.
func (l *LoginLimiter) Check(ctx context.Context, identifier, ip string) error {
	for _, key := range l.keys(identifier, ip) {
		count, err := l.redis.Get(ctx, key).Int64()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if count >= int64(l.maxAttempts) {
			return common.ErrorRateLimited
		}
	}
	return nil
}

// Fail records one failed attempt.
func (l *LoginLimiter) Fail(ctx context.Context, identifier, ip string) error {
	for _, key := range l.keys(identifier, ip) {
		count, err := l.redis.Incr(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		// the first failure opens the window
		if count == 1 {
			if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
		}
	}
	return nil
}

// Reset clears the identifier counter after a successful login. The IP
// counter is left alone so one good account cannot unlock a sprayer.
func (l *LoginLimiter) Reset(ctx context.Context, identifier string) error {
	if err := l.redis.Del(ctx, identifierKey(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Attempts returns the failures recorded for identifier in the current window.
func (l *LoginLimiter) Attempts(ctx context.Context, identifier string) (int, error) {
	count, err := l.redis.Get(ctx, identifierKey(identifier)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return count, nil
}

func (l *LoginLimiter) keys(identifier, ip string) []string {
	keys := []string{identifierKey(identifier)}
	if ip != "" {
		keys = append(keys, keyPrefix+"ip:"+ip)
	}
	return keys
}

func identifierKey(identifier string) string {
	return keyPrefix + "id:" + strings.ToLower(strings.TrimSpace(identifier))
}
