// Package common defines shared constants and sentinel errors used across
// the server, the admin CLI and the transport layers. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound  = errors.New("not found")
	ErrorDuplicate = errors.New("duplicate")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")
	ErrorRateLimited  = errors.New("too many attempts")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Redemption errors. All are expected outcomes and carry a user-safe message.
	ErrAccountNotFound          = errors.New("account not found")
	ErrNoLoyaltyRecord          = errors.New("no loyalty record for this account")
	ErrRewardNotFoundOrInactive = errors.New("reward not found or inactive")
	ErrInsufficientPoints       = errors.New("insufficient points")
)
