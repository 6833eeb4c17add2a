package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophrewards/internal/dbx"
	"github.com/dmitrijs2005/gophrewards/internal/server/migrations"
	"github.com/dmitrijs2005/gophrewards/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophrewards/internal/server/repositories/loyalty"
	"github.com/dmitrijs2005/gophrewards/internal/server/repositories/redemptions"
	"github.com/dmitrijs2005/gophrewards/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophrewards/internal/server/repositories/rewards"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// SQLRepositoryManager pairs the PostgreSQL ledger repositories with the
// MySQL WordPress accounts repository.
type SQLRepositoryManager struct {
	wpTablePrefix string
}

func (m *SQLRepositoryManager) Accounts(db dbx.DBTX) accounts.Repository {
	return accounts.NewMySQLRepository(db, m.wpTablePrefix)
}

func (m *SQLRepositoryManager) Loyalty(db dbx.DBTX) loyalty.Repository {
	return loyalty.NewPostgresRepository(db)
}

func (m *SQLRepositoryManager) Rewards(db dbx.DBTX) rewards.Repository {
	return rewards.NewPostgresRepository(db)
}

func (m *SQLRepositoryManager) Redemptions(db dbx.DBTX) redemptions.Repository {
	return redemptions.NewPostgresRepository(db)
}

func (m *SQLRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded goose migrations to the ledger.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// NewSQLRepositoryManager validates the WordPress table prefix and returns
// a manager for it.
func NewSQLRepositoryManager(wpTablePrefix string) (RepositoryManager, error) {
	if err := accounts.ValidateTablePrefix(wpTablePrefix); err != nil {
		return nil, err
	}
	return &SQLRepositoryManager{wpTablePrefix: wpTablePrefix}, nil
}
