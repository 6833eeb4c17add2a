package repomanager

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// OpenLedger opens the PostgreSQL ledger through the pgx stdlib driver.
// The connection is not verified; callers ping it.
func OpenLedger(dsn string) (*sql.DB, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger db open error: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// WordPressDSN normalises a MySQL DSN for the credential store: times are
// parsed into time.Time and dials are bounded.
func WordPressDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("wordpress dsn: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	return cfg.FormatDSN(), nil
}

// OpenWordPress opens the WordPress MySQL database.
func OpenWordPress(dsn string) (*sql.DB, error) {
	normalized, err := WordPressDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sqlOpen("mysql", normalized)
	if err != nil {
		return nil, fmt.Errorf("wordpress db open error: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(3 * time.Minute)
	return db, nil
}
