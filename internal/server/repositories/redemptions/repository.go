// Package redemptions records points spent on rewards.
package redemptions

import (
	"context"

	"github.com/dmitrijs2005/gophrewards/internal/server/models"
)

type Repository interface {
	// Create inserts r. A duplicate code surfaces as common.ErrorDuplicate.
	Create(ctx context.Context, r *models.Redemption) error
	// ListByAccount returns the newest redemptions first.
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]models.Redemption, error)
	CountByAccount(ctx context.Context, accountID int64) (int64, error)
}
