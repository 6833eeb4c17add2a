// Package loyalty stores per-account point balances.
package loyalty

import (
	"context"

	"github.com/dmitrijs2005/gophrewards/internal/server/models"
)

type Repository interface {
	// Get returns common.ErrorNotFound when the account has no ledger row.
	Get(ctx context.Context, accountID int64) (*models.LoyaltyAccount, error)
	// GetForUpdate is Get with the row locked until the transaction ends.
	GetForUpdate(ctx context.Context, accountID int64) (*models.LoyaltyAccount, error)
	// Deduct subtracts points and returns the new balance. It never drives
	// the balance negative: common.ErrInsufficientPoints is returned instead.
	Deduct(ctx context.Context, accountID int64, points int64) (int64, error)
	// Credit adds points to both balance and lifetime points, creating the
	// row on first use.
	Credit(ctx context.Context, accountID int64, points int64) (*models.LoyaltyAccount, error)
}
