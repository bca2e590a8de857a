// Package balances provides the Postgres implementation of the balances
// repo. Two layouts are supported: the inventory website's "User" table
// (a DECIMAL(10,2) coins column, converted to cents at the SQL boundary)
// and a self-owned fallback table storing cents as BIGINT. Init picks
// one; every other operation follows that choice.
package balances

import (
	"database/sql"

	"github.com/jackc/pgx/v5"

	"github.com/kfodor/coinledger/internal/repos/balances"
)

var _ balances.Repo = (*balancesRepo)(nil)

type schemaMode int

const (
	modeUndetected schemaMode = iota
	modeUserTable
	modeFallbackTable
)

type balancesRepo struct {
	db    *sql.DB
	table string
	mode  schemaMode
}

func New(db *sql.DB, fallbackTable string) *balancesRepo {
	return &balancesRepo{db: db, table: fallbackTable}
}

// fallbackIdent returns the quoted fallback table name; the name comes
// from configuration and cannot be a bind parameter.
func (r *balancesRepo) fallbackIdent() string {
	return pgx.Identifier{r.table}.Sanitize()
}
