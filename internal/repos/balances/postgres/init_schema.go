package balances

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const duplicateColumn = "42701"

// Init probes information_schema and settles on a layout. When the
// website's "User" table exists, its coins column is reused (added or
// retyped from INTEGER if needed) so both sides read the same rows;
// otherwise the fallback table is created.
func (r *balancesRepo) Init(ctx context.Context) error {
	var userTableExists bool

	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = 'User'
		)
	`).Scan(&userTableExists)
	if err != nil {
		return fmt.Errorf("probe User table: %w", err)
	}

	if userTableExists {
		err = r.initUserTable(ctx)
		if err != nil {
			return err
		}

		r.mode = modeUserTable

		return nil
	}

	err = r.initFallbackTable(ctx)
	if err != nil {
		return err
	}

	r.mode = modeFallbackTable

	return nil
}

func (r *balancesRepo) initUserTable(ctx context.Context) error {
	var coinsColumnExists bool

	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.columns
			WHERE table_name = 'User'
			AND column_name = 'coins'
		)
	`).Scan(&coinsColumnExists)
	if err != nil {
		return fmt.Errorf("probe coins column: %w", err)
	}

	if !coinsColumnExists {
		_, err = r.db.ExecContext(ctx,
			`ALTER TABLE "User" ADD COLUMN coins DECIMAL(10,2) DEFAULT 0.00`)
		if err != nil {
			// A concurrent plugin instance may have added it first.
			var pgErr *pgconn.PgError
			if !errors.As(err, &pgErr) || pgErr.Code != duplicateColumn {
				return fmt.Errorf("add coins column: %w", err)
			}
		}

		return nil
	}

	var columnType string

	err = r.db.QueryRowContext(ctx, `
		SELECT data_type
		FROM information_schema.columns
		WHERE table_name = 'User'
		AND column_name = 'coins'
	`).Scan(&columnType)
	if err != nil {
		return fmt.Errorf("probe coins column type: %w", err)
	}

	if columnType == "integer" {
		_, err = r.db.ExecContext(ctx,
			`ALTER TABLE "User" ALTER COLUMN coins TYPE DECIMAL(10,2)`)
		if err != nil {
			return fmt.Errorf("retype coins column: %w", err)
		}
	}

	return nil
}

func (r *balancesRepo) initFallbackTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			steam_id BIGINT PRIMARY KEY,
			coins_cents BIGINT NOT NULL DEFAULT 0,
			kills INTEGER NOT NULL DEFAULT 0,
			deaths INTEGER NOT NULL DEFAULT 0,
			round_wins INTEGER NOT NULL DEFAULT 0,
			mvp_count INTEGER NOT NULL DEFAULT 0,
			last_updated TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)
	`, r.fallbackIdent()))
	if err != nil {
		return fmt.Errorf("create fallback table: %w", err)
	}

	return nil
}
