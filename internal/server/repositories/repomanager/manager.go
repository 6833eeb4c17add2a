// Package repomanager vends repositories bound to a database handle, so
// services can run the same repository inside or outside a transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophrewards/internal/dbx"
	"github.com/dmitrijs2005/gophrewards/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophrewards/internal/server/repositories/loyalty"
	"github.com/dmitrijs2005/gophrewards/internal/server/repositories/redemptions"
	"github.com/dmitrijs2005/gophrewards/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophrewards/internal/server/repositories/rewards"
)

type RepositoryManager interface {
	// RunMigrations brings the ledger schema up to date.
	RunMigrations(context.Context, *sql.DB) error

	// Accounts is bound to the WordPress database.
	Accounts(db dbx.DBTX) accounts.Repository

	Loyalty(db dbx.DBTX) loyalty.Repository
	Rewards(db dbx.DBTX) rewards.Repository
	Redemptions(db dbx.DBTX) redemptions.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
