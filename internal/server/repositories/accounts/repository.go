// Package accounts reads and updates customer credentials stored in the
// WordPress users table.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/gophrewards/internal/server/models"
)

type Repository interface {
	// GetByLogin finds an account by user_login or user_email. A login
	// match wins over an email match.
	GetByLogin(ctx context.Context, identifier string) (*models.Account, error)
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	// UpdatePasswordHash replaces the stored hash of one account.
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}
