package balances

import (
	"context"
	"fmt"
)

// ListAll reads every stored balance as cents. The User table stores a
// 2-decimal value; ROUND(... * 100) keeps the conversion in SQL so the
// process only ever sees integers.
func (r *balancesRepo) ListAll(ctx context.Context) (map[uint64]int64, error) {
	query := fmt.Sprintf(`SELECT steam_id, coins_cents FROM %s`, r.fallbackIdent())
	if r.mode == modeUserTable {
		query = `
			SELECT id::BIGINT, ROUND(COALESCE(coins, 0) * 100)::BIGINT
			FROM "User"
			WHERE coins IS NOT NULL
		`
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	out := make(map[uint64]int64)

	for rows.Next() {
		var (
			steamID int64
			cents   int64
		)

		err = rows.Scan(&steamID, &cents)
		if err != nil {
			return nil, fmt.Errorf("scan balance row: %w", err)
		}

		out[uint64(steamID)] = cents
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate balance rows: %w", err)
	}

	return out, nil
}
