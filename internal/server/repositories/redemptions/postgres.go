package redemptions

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophrewards/internal/common"
	"github.com/dmitrijs2005/gophrewards/internal/dbx"
	"github.com/dmitrijs2005/gophrewards/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, rd *models.Redemption) error {
	query := `
		INSERT INTO redemptions (id, account_id, reward_id, code, points_spent)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query, rd.ID, rd.AccountID, rd.RewardID, rd.Code, rd.PointsSpent).
		Scan(&rd.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %w", common.ErrorDuplicate, err)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]models.Redemption, error) {
	query := `
		SELECT rd.id, rd.reward_id, rw.name, rd.code, rd.points_spent, rd.created_at
		FROM redemptions rd
		JOIN rewards rw ON rw.id = rd.reward_id
		WHERE rd.account_id = $1
		ORDER BY rd.created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Redemption
	for rows.Next() {
		rd := models.Redemption{AccountID: accountID}
		if err := rows.Scan(&rd.ID, &rd.RewardID, &rd.RewardName, &rd.Code, &rd.PointsSpent, &rd.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) CountByAccount(ctx context.Context, accountID int64) (int64, error) {
	query := `
		SELECT count(*) FROM redemptions
		WHERE account_id = $1
	`
	var n int64
	if err := r.db.QueryRowContext(ctx, query, accountID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
