package remoteauth

import "context"

// Authenticator is satisfied by WordPressAuthenticator.
type Authenticator interface {
	AttemptLogin(ctx context.Context, identifier, secret string) (bool, error)
}

// Results passed to an observer.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultError    = "error"
)

type observed struct {
	next    Authenticator
	observe func(result string)
}

// WithObserver reports the result of every attempt made through next.
func WithObserver(next Authenticator, observe func(result string)) Authenticator {
	return &observed{next: next, observe: observe}
}

func (o *observed) AttemptLogin(ctx context.Context, identifier, secret string) (bool, error) {
	ok, err := o.next.AttemptLogin(ctx, identifier, secret)
	switch {
	case err != nil:
		o.observe(ResultError)
	case ok:
		o.observe(ResultAccepted)
	default:
		o.observe(ResultRejected)
	}
	return ok, err
}
