// The plugin binary runs the coin system against a stand-in host: a
// frame-tick loop drains the game-thread queue and a stdin console plays
// the role of the game server's event source and command input.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kfodor/coinledger/internal/api"
	"github.com/kfodor/coinledger/internal/config"
	"github.com/kfodor/coinledger/internal/game"
	"github.com/kfodor/coinledger/internal/infra/logging"
	"github.com/kfodor/coinledger/internal/infra/pgutils"
	"github.com/kfodor/coinledger/internal/ledger"
	"github.com/kfodor/coinledger/internal/repos/balances"
	pgbalances "github.com/kfodor/coinledger/internal/repos/balances/postgres"
	"github.com/kfodor/coinledger/internal/services/commands"
	"github.com/kfodor/coinledger/internal/services/drops"
	"github.com/kfodor/coinledger/internal/services/inventory"
	"github.com/kfodor/coinledger/internal/services/persist"
	"github.com/kfodor/coinledger/internal/services/rewards"
	"github.com/kfodor/coinledger/internal/webclient"
	"github.com/kfodor/coinledger/pkg/envconf"
	"github.com/kfodor/coinledger/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running plugin: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg := new(config.Config)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel, cfg.Debug)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Host boundary ---
	roster := game.NewRoster()
	frames := game.NewFrameQueue()
	hooks := game.NewHooks()

	var chat game.Chat = game.LogChat{}

	// --- Ledger + persistence ---
	coins := ledger.New()

	var repo balances.Repo

	if cfg.Database.Enabled && cfg.Database.DSN != "" {
		db, derr := pgutils.OpenDB(ctx, cfg.Database.DSN)
		if derr != nil {
			// Non-fatal: the adapter settles into memory-only mode.
			slog.Error("database connection failed, coins will not persist", "error", derr)
		} else {
			repo = pgbalances.New(db, cfg.Database.TableName)

			shutdownqueue.AddNamed("database", func(context.Context) error {
				return db.Close()
			})
		}
	}

	adapter := persist.New(coins, repo, cfg.Database)
	coins.SetSink(adapter.Enqueue)
	adapter.Start(ctx)
	shutdownqueue.AddNamed("persistence", adapter.Shutdown)

	// --- Website client + inventory sync ---
	web := webclient.New(cfg.Web)

	inv := inventory.New(web, frames, roster, chat)
	inv.Register(hooks)

	err = inv.StartAutoRefresh(cfg.AutoRefresh)
	if err != nil {
		return fmt.Errorf("start auto-refresh: %w", err)
	}

	shutdownqueue.AddNamed("inventory auto-refresh", func(context.Context) error {
		inv.Stop()
		return nil
	})

	// --- Gameplay services ---
	engine := rewards.NewEngine(coins, roster, chat, cfg.Rewards)
	engine.Register(hooks)

	crates := drops.New(cfg.Drops, frames, chat, engine, web)
	crates.Register(hooks)

	// StatTrak kills count on the site too.
	hooks.OnKill(func(ev game.KillEvent) {
		if ev.WeaponItemID == 0 || ev.Attacker == ev.Victim {
			return
		}

		go func() {
			sctx, cancel := context.WithTimeout(context.Background(), cfg.Web.Timeout)
			defer cancel()

			web.IncrementStatTrak(sctx, ev.Attacker, ev.WeaponItemID)
		}()
	})

	available := func() bool {
		// A deployment that never configured a database runs memory-only
		// on purpose; only a configured-but-failing store counts as down.
		if !cfg.Database.Enabled || cfg.Database.DSN == "" {
			return true
		}

		return adapter.Available()
	}

	cmds := commands.New(coins, roster, chat, available)

	// --- Webhook listener ---
	srv := api.NewServer(cfg.Listener, roster, frames, chat, inv)

	shutdownqueue.AddNamed("webhook listener", func(c context.Context) error {
		serr := srv.Shutdown(c)
		if serr != nil {
			return fmt.Errorf("shutdown listener: %w", serr)
		}

		return nil
	})

	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	// --- Stand-in host: console input + frame ticks ---
	con := newConsole(roster, hooks, frames, cmds, crates, chat, web, engine.Stats())
	go con.runLoop(ctx)

	ticker := time.NewTicker(cfg.Game.TickInterval)
	defer ticker.Stop()

	slog.Info("coin plugin started", "listen_port", cfg.Listener.Port)

	for {
		select {
		case <-ticker.C:
			frames.Drain()
		case <-ctx.Done():
			// Run queued game-thread work one last time before teardown.
			frames.Drain()
			return nil
		case serr := <-errCh:
			if serr != nil {
				return fmt.Errorf("listener error: %w", serr)
			}

			return nil
		}
	}
}
