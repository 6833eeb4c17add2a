// Package migrations embeds the goose SQL migrations of the loyalty ledger.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
