package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/dmitrijs2005/gophrewards/internal/common"
	"github.com/dmitrijs2005/gophrewards/internal/dbx"
	"github.com/dmitrijs2005/gophrewards/internal/server/models"
)

var validPrefix = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// ValidateTablePrefix rejects prefixes that cannot be spliced into SQL.
func ValidateTablePrefix(prefix string) error {
	if !validPrefix.MatchString(prefix) {
		return fmt.Errorf("invalid wordpress table prefix %q", prefix)
	}
	return nil
}

// MySQLRepository works on the {prefix}users table of a WordPress install.
type MySQLRepository struct {
	db    dbx.DBTX
	table string
}

// NewMySQLRepository binds the repository to db. prefix must have passed
// ValidateTablePrefix.
func NewMySQLRepository(db dbx.DBTX, prefix string) *MySQLRepository {
	return &MySQLRepository{db: db, table: prefix + "users"}
}

const selectColumns = "ID, user_login, user_email, display_name, user_pass, user_registered"

func (r *MySQLRepository) GetByLogin(ctx context.Context, identifier string) (*models.Account, error) {
	query := `SELECT ` + selectColumns + ` FROM ` + r.table + `
		WHERE user_login = ? OR user_email = ?
		ORDER BY (user_login = ?) DESC
		LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, identifier, identifier, identifier))
}

func (r *MySQLRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `SELECT ` + selectColumns + ` FROM ` + r.table + `
		WHERE ID = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *MySQLRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	query := `UPDATE ` + r.table + `
		SET user_pass = ?, user_activation_key = ''
		WHERE ID = ?`
	if _, err := r.db.ExecContext(ctx, query, hash, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *MySQLRepository) scanOne(row *sql.Row) (*models.Account, error) {
	a := &models.Account{}
	err := row.Scan(&a.ID, &a.Login, &a.Email, &a.DisplayName, &a.PasswordHash, &a.Registered)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}
