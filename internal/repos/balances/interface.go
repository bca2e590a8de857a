package balances

import "context"

// Repo mirrors coin balances into durable storage. Implementations are
// best-effort: every method may fail when the store is unreachable, and
// the caller (the persistence adapter) degrades to memory-only rather
// than propagating.
type Repo interface {
	// Init detects the schema and performs the one optional migration
	// step: reuse the website's "User" table when it carries a coins
	// column, otherwise create the fallback table.
	Init(ctx context.Context) error

	// ListAll bulk-reads every stored balance, in cents.
	ListAll(ctx context.Context) (map[uint64]int64, error)

	// Upsert writes one balance, insert-if-absent keyed by SteamID.
	Upsert(ctx context.Context, steamID uint64, cents int64) error

	// PushAll upserts a whole snapshot in one transaction.
	PushAll(ctx context.Context, snapshot map[uint64]int64) error
}
