// Package rewards stores the reward catalogue.
package rewards

import (
	"context"

	"github.com/dmitrijs2005/gophrewards/internal/server/models"
)

type Repository interface {
	// Get returns common.ErrorNotFound for unknown ids; inactive rewards
	// are returned as stored.
	Get(ctx context.Context, id int64) (*models.Reward, error)
	// List returns rewards ordered by cost. activeOnly hides retired ones.
	List(ctx context.Context, activeOnly bool) ([]models.Reward, error)
	Create(ctx context.Context, reward *models.Reward) (*models.Reward, error)
	SetActive(ctx context.Context, id int64, active bool) error
}
