package balances

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/kfodor/coinledger/internal/infra/pgutils"
)

// Upsert writes one balance, insert-if-absent keyed by SteamID.
func (r *balancesRepo) Upsert(ctx context.Context, steamID uint64, cents int64) error {
	if r.mode == modeUserTable {
		return r.upsertUser(ctx, r.db, steamID, cents)
	}

	return r.upsertFallback(ctx, r.db, steamID, cents)
}

// PushAll upserts a whole snapshot inside one transaction so a reconcile
// push is either fully applied or not at all.
func (r *balancesRepo) PushAll(ctx context.Context, snapshot map[uint64]int64) error {
	err := pgutils.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for steamID, cents := range snapshot {
			var err error
			if r.mode == modeUserTable {
				err = r.upsertUser(ctx, tx, steamID, cents)
			} else {
				err = r.upsertFallback(ctx, tx, steamID, cents)
			}

			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("push snapshot: %w", err)
	}

	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// upsertUser updates the website's row; when the player has never signed
// in on the site, a stub row is inserted with the site's own defaults.
// The User id column is TEXT and coins is DECIMAL(10,2).
func (r *balancesRepo) upsertUser(ctx context.Context, db execer, steamID uint64, cents int64) error {
	id := strconv.FormatUint(steamID, 10)

	res, err := db.ExecContext(ctx,
		`UPDATE "User" SET coins = $2::BIGINT / 100.0 WHERE id = $1`,
		id, cents)
	if err != nil {
		return fmt.Errorf("update User coins: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected > 0 {
		return nil
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO "User" (id, coins, name, avatar, inventory, "createdAt", "updatedAt", "syncedAt")
		VALUES ($1, $2::BIGINT / 100.0, 'Unknown', '', '{}', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, id, cents)
	if err != nil {
		return fmt.Errorf("insert User stub: %w", err)
	}

	return nil
}

func (r *balancesRepo) upsertFallback(ctx context.Context, db execer, steamID uint64, cents int64) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (steam_id, coins_cents, last_updated)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (steam_id)
		DO UPDATE SET coins_cents = $2, last_updated = CURRENT_TIMESTAMP
	`, r.fallbackIdent()), int64(steamID), cents)
	if err != nil {
		return fmt.Errorf("upsert balance: %w", err)
	}

	return nil
}
