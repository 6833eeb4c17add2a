// Package refreshtokens declares the repository contract for refresh tokens
// issued at login.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophrewards/internal/server/models"
)

// Repository issues, looks up and revokes refresh tokens.
type Repository interface {
	// Create stores token for accountID, expiring at now+validity.
	Create(ctx context.Context, accountID int64, token string, validity time.Duration) error

	// Find returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete returns common.ErrorNotFound when no row was removed, so the
	// caller can tell it lost a race with another rotation.
	Delete(ctx context.Context, token string) error

	// DeleteExpired drops tokens that expired before now and reports how many.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
