// Package inventory keeps each connected player's equipped-item document
// in sync with the website. The document itself is opaque here; equip
// application is the host's concern. Fetches run off the game loop and
// results are applied on-frame only.
package inventory

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kfodor/coinledger/internal/config"
	"github.com/kfodor/coinledger/internal/game"
)

const fetchAttempts = 3

// site is the slice of the webclient this service needs.
type site interface {
	EquippedInventory(ctx context.Context, steamID uint64) ([]byte, error)
	InventoryTimestamp(ctx context.Context, steamID uint64) int64
}

type Service struct {
	site   site
	frames *game.FrameQueue
	roster *game.Roster
	chat   game.Chat

	mu       sync.Mutex
	docs     map[uint64][]byte
	lastSeen map[uint64]int64
	fetching map[uint64]bool

	cron *cron.Cron
}

func New(s site, frames *game.FrameQueue, roster *game.Roster, chat game.Chat) *Service {
	return &Service{
		site:     s,
		frames:   frames,
		roster:   roster,
		chat:     chat,
		docs:     make(map[uint64][]byte),
		lastSeen: make(map[uint64]int64),
		fetching: make(map[uint64]bool),
	}
}

// Register hooks connect/disconnect handling into the dispatcher.
func (s *Service) Register(hooks *game.Hooks) {
	hooks.OnPlayerConnect(func(p game.Player) {
		if p.Bot {
			return
		}
		if !s.Has(p.SteamID) {
			s.Refresh(p.SteamID)
		}
	})
	hooks.OnPlayerDisconnect(s.Forget)
}

func (s *Service) Has(steamID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.docs[steamID]

	return ok
}

func (s *Service) Forget(steamID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, steamID)
	delete(s.lastSeen, steamID)
}

// Refresh fetches the player's document in the background and applies
// the result on the next frame. Concurrent refreshes for the same player
// collapse into one (single-flight).
func (s *Service) Refresh(steamID uint64) {
	s.mu.Lock()
	if s.fetching[steamID] {
		s.mu.Unlock()
		return
	}
	s.fetching[steamID] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.fetching, steamID)
			s.mu.Unlock()
		}()

		doc := s.fetchWithRetry(steamID)
		if doc == nil {
			return
		}

		s.frames.NextFrame(func() {
			s.apply(steamID, doc)
		})
	}()
}

// fetchWithRetry tries up to 3 attempts, then gives up silently.
func (s *Service) fetchWithRetry(steamID uint64) []byte {
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		doc, err := s.site.EquippedInventory(ctx, steamID)
		cancel()

		if err == nil {
			return doc
		}
	}

	return nil
}

// apply runs on the game-loop goroutine.
func (s *Service) apply(steamID uint64, doc []byte) {
	if _, connected := s.roster.BySteamID(steamID); !connected {
		return
	}

	s.mu.Lock()
	old, hadOld := s.docs[steamID]
	changed := !hadOld || !bytes.Equal(old, doc)
	s.docs[steamID] = doc
	s.mu.Unlock()

	switch {
	case !hadOld:
		s.chat.ToPlayer(steamID, "[Inventory] Your inventory has been loaded.")
	case changed:
		s.chat.ToPlayer(steamID, "[Inventory] Your inventory has been updated.")
	default:
		s.chat.ToPlayer(steamID, "[Inventory] No changes in your inventory.")
	}

	slog.Debug("inventory applied", "steam_id", steamID, "changed", changed)
}

// StartAutoRefresh polls the site's inventory timestamps and refreshes
// players whose web inventory is newer than what we've seen.
func (s *Service) StartAutoRefresh(cfg config.AutoRefreshConfig) error {
	if !cfg.Enabled {
		slog.Info("inventory auto-refresh disabled")
		return nil
	}

	s.cron = cron.New()

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", cfg.Interval), s.sweep)
	if err != nil {
		return fmt.Errorf("schedule auto-refresh: %w", err)
	}

	s.cron.Start()
	slog.Info("inventory auto-refresh initialized", "interval", cfg.Interval)

	return nil
}

func (s *Service) sweep() {
	for _, p := range s.roster.All() {
		if p.Bot {
			continue
		}

		s.mu.Lock()
		last, seen := s.lastSeen[p.SteamID]
		if !seen {
			s.lastSeen[p.SteamID] = time.Now().Unix()
		}
		s.mu.Unlock()

		if !seen {
			s.Refresh(p.SteamID)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		ts := s.site.InventoryTimestamp(ctx, p.SteamID)
		cancel()

		if ts > last {
			slog.Debug("web inventory newer than local", "steam_id", p.SteamID, "web", ts, "local", last)

			s.mu.Lock()
			s.lastSeen[p.SteamID] = ts
			s.mu.Unlock()

			s.Refresh(p.SteamID)
		}
	}
}

// MarkTimestamp records a timestamp pushed by the website's webhook so
// the next sweep doesn't re-fetch.
func (s *Service) MarkTimestamp(steamID uint64, ts int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lastSeen[steamID]; ok {
		s.lastSeen[steamID] = ts
	}
}

func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}
