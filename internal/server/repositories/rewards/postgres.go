package rewards

import (
	"context"
	"database/sql"
	"errors"
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

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Reward, error) {
	query := `
		SELECT id, name, description, cost_points, active, image_key, created_at
		FROM rewards
		WHERE id = $1
	`
	rw := &models.Reward{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&rw.ID, &rw.Name, &rw.Description, &rw.CostPoints, &rw.Active, &rw.ImageKey, &rw.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rw, nil
}

func (r *PostgresRepository) List(ctx context.Context, activeOnly bool) ([]models.Reward, error) {
	query := `
		SELECT id, name, description, cost_points, active, image_key, created_at
		FROM rewards
		WHERE active OR NOT $1
		ORDER BY cost_points, id
	`
	rows, err := r.db.QueryContext(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Reward
	for rows.Next() {
		var rw models.Reward
		if err := rows.Scan(&rw.ID, &rw.Name, &rw.Description, &rw.CostPoints, &rw.Active, &rw.ImageKey, &rw.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, rw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Create(ctx context.Context, reward *models.Reward) (*models.Reward, error) {
	query := `
		INSERT INTO rewards (name, description, cost_points, active, image_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		reward.Name, reward.Description, reward.CostPoints, reward.Active, reward.ImageKey).
		Scan(&reward.ID, &reward.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return reward, nil
}

func (r *PostgresRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `
		UPDATE rewards SET active = $2
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
