package accounts

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophrewards/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var accountColumns = []string{"ID", "user_login", "user_email", "display_name", "user_pass", "user_registered"}

func newRepoWithMock(t *testing.T, prefix string) (*MySQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMySQLRepository(db, prefix), mock
}

func TestValidateTablePrefix(t *testing.T) {
	assert.NoError(t, ValidateTablePrefix("wp_"))
	assert.NoError(t, ValidateTablePrefix("Shop2_"))
	assert.NoError(t, ValidateTablePrefix(""))
	assert.Error(t, ValidateTablePrefix("wp_; DROP TABLE x; --"))
	assert.Error(t, ValidateTablePrefix("wp-"))
}

func TestGetByLogin_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t, "shop_")

	registered := time.Date(2019, 3, 1, 10, 0, 0, 0, time.UTC)
	q := `(?s)^SELECT\s+ID,\s*user_login,\s*user_email,\s*display_name,\s*user_pass,\s*user_registered\s+FROM\s+shop_users\s+` +
		`WHERE\s+user_login\s*=\s*\?\s+OR\s+user_email\s*=\s*\?\s+ORDER\s+BY\s+\(user_login\s*=\s*\?\)\s+DESC\s+LIMIT\s+1$`

	mock.ExpectQuery(q).
		WithArgs("alice@example.com", "alice@example.com", "alice@example.com").
		WillReturnRows(sqlmock.NewRows(accountColumns).
			AddRow(int64(42), "alice", "alice@example.com", "Alice", "$P$Bhash", registered))

	got, err := repo.GetByLogin(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ID)
	assert.Equal(t, "alice", got.Login)
	assert.Equal(t, "Alice", got.DisplayName)
	assert.Equal(t, "$P$Bhash", got.PasswordHash)
	assert.True(t, got.Registered.Equal(registered))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByLogin_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t, "wp_")

	mock.ExpectQuery(`FROM\s+wp_users`).
		WithArgs("ghost", "ghost", "ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByLogin(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetByLogin_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t, "wp_")

	mock.ExpectQuery(`FROM\s+wp_users`).
		WillReturnError(errors.New("connection refused"))

	_, err := repo.GetByLogin(context.Background(), "alice")
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*connection refused`), err.Error())
	assert.NotErrorIs(t, err, common.ErrorNotFound)
}

func TestGetByID(t *testing.T) {
	repo, mock := newRepoWithMock(t, "wp_")

	mock.ExpectQuery(`(?s)FROM\s+wp_users\s+WHERE\s+ID\s*=\s*\?$`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(accountColumns).
			AddRow(int64(7), "bob", "bob@example.com", "Bob", "$2y$10$x", time.Now()))

	got, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Login)

	mock.ExpectQuery(`FROM\s+wp_users`).WithArgs(int64(8)).WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByID(context.Background(), 8)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdatePasswordHash(t *testing.T) {
	repo, mock := newRepoWithMock(t, "wp_")

	q := `(?s)^UPDATE\s+wp_users\s+SET\s+user_pass\s*=\s*\?,\s*user_activation_key\s*=\s*''\s+WHERE\s+ID\s*=\s*\?$`
	mock.ExpectExec(q).
		WithArgs("$2y$10$new", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePasswordHash(context.Background(), 42, "$2y$10$new"))

	mock.ExpectExec(q).
		WithArgs("$2y$10$new", int64(42)).
		WillReturnError(errors.New("read-only"))

	err := repo.UpdatePasswordHash(context.Background(), 42, "$2y$10$new")
	assert.ErrorContains(t, err, "db error")
	assert.NoError(t, mock.ExpectationsWereMet())
}
