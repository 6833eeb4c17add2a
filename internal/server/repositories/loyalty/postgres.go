package loyalty

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

func (r *PostgresRepository) Get(ctx context.Context, accountID int64) (*models.LoyaltyAccount, error) {
	query := `
		SELECT account_id, balance, lifetime_points, updated_at
		FROM loyalty_accounts
		WHERE account_id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, accountID))
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, accountID int64) (*models.LoyaltyAccount, error) {
	query := `
		SELECT account_id, balance, lifetime_points, updated_at
		FROM loyalty_accounts
		WHERE account_id = $1
		FOR UPDATE
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, accountID))
}

func (r *PostgresRepository) Deduct(ctx context.Context, accountID int64, points int64) (int64, error) {
	query := `
		UPDATE loyalty_accounts
		SET balance = balance - $2, updated_at = now()
		WHERE account_id = $1 AND balance >= $2
		RETURNING balance
	`
	var balance int64
	if err := r.db.QueryRowContext(ctx, query, accountID, points).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrInsufficientPoints
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return balance, nil
}

func (r *PostgresRepository) Credit(ctx context.Context, accountID int64, points int64) (*models.LoyaltyAccount, error) {
	query := `
		INSERT INTO loyalty_accounts (account_id, balance, lifetime_points)
		VALUES ($1, $2, $2)
		ON CONFLICT (account_id) DO UPDATE
		SET balance = loyalty_accounts.balance + EXCLUDED.balance,
		    lifetime_points = loyalty_accounts.lifetime_points + EXCLUDED.lifetime_points,
		    updated_at = now()
		RETURNING account_id, balance, lifetime_points, updated_at
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, accountID, points))
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.LoyaltyAccount, error) {
	la := &models.LoyaltyAccount{}
	if err := row.Scan(&la.AccountID, &la.Balance, &la.LifetimePoints, &la.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return la, nil
}
