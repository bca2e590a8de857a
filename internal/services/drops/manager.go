// Package drops runs the case-drop lifecycle: a chance-gated crate spawn
// on kill, a spawn-to-timeout token per crate, and a pickup that grants
// the reward through exactly one of two paths (local ledger credit or a
// website notification) depending on configuration.
package drops

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/kfodor/coinledger/internal/config"
	"github.com/kfodor/coinledger/internal/game"
)

// rewarder is the local reward path.
type rewarder interface {
	CasePickup(p game.Player) int64
}

// site is the website reward path.
type site interface {
	DropCollected(ctx context.Context, collectorSteamID, killerSteamID uint64, timestamp int64) bool
}

// Crate is one spawned, not-yet-collected case.
type Crate struct {
	Handle        uint64
	Position      game.Vec3
	KillerSteamID uint64
	SpawnTime     time.Time

	timer *time.Timer
}

type Manager struct {
	cfg      config.DropsConfig
	frames   *game.FrameQueue
	chat     game.Chat
	rewarder rewarder
	site     site

	mu         sync.Mutex
	crates     map[uint64]*Crate
	nextHandle uint64

	// roll returns a uniform value in [0,1); replaceable in tests.
	roll func() float64
}

func New(cfg config.DropsConfig, frames *game.FrameQueue, chat game.Chat, r rewarder, s site) *Manager {
	return &Manager{
		cfg:      cfg,
		frames:   frames,
		chat:     chat,
		rewarder: r,
		site:     s,
		crates:   make(map[uint64]*Crate),
		roll:     rand.Float64,
	}
}

// Register wires the spawn trigger into the event dispatcher.
func (m *Manager) Register(hooks *game.Hooks) {
	hooks.OnKill(m.MaybeSpawn)
}

// MaybeSpawn rolls the drop chance for one kill and spawns a crate at
// the victim's position on success. Runs on the game-loop goroutine.
func (m *Manager) MaybeSpawn(ev game.KillEvent) {
	if !m.cfg.Enabled || ev.Attacker == 0 || ev.Attacker == ev.Victim {
		return
	}

	if m.roll()*100 >= m.cfg.Chance {
		return
	}

	m.mu.Lock()
	m.nextHandle++
	handle := m.nextHandle

	crate := &Crate{
		Handle:        handle,
		Position:      ev.VictimPos,
		KillerSteamID: ev.Attacker,
		SpawnTime:     time.Now(),
	}
	m.crates[handle] = crate
	m.mu.Unlock()

	crate.timer = m.frames.After(m.cfg.Timeout, func() {
		m.reap(handle)
	})

	if m.cfg.Announce {
		m.chat.ToAll("[Drop] A case has dropped! Find it before it disappears!")
	}

	slog.Debug("crate spawned",
		"handle", handle,
		"killer", ev.Attacker,
		"timeout", m.cfg.Timeout,
	)
}

// reap removes a crate whose timeout elapsed uncollected.
func (m *Manager) reap(handle uint64) {
	m.mu.Lock()
	_, ok := m.crates[handle]
	delete(m.crates, handle)
	m.mu.Unlock()

	if ok {
		slog.Debug("crate expired", "handle", handle)
	}
}

// Collect hands the crate to a player. It returns false when the handle
// is gone (already collected or expired), which makes double-use a
// no-op. Runs on the game-loop goroutine.
func (m *Manager) Collect(p game.Player, handle uint64) bool {
	m.mu.Lock()
	crate, ok := m.crates[handle]
	delete(m.crates, handle)
	m.mu.Unlock()

	if !ok {
		return false
	}

	if crate.timer != nil {
		crate.timer.Stop()
	}

	switch m.cfg.RewardMode {
	case config.DropRewardWebsite:
		m.collectWebsite(p, crate)
	default:
		m.rewarder.CasePickup(p)
	}

	return true
}

// collectWebsite reports the pickup and lets the site grant the reward.
// The HTTP round trip runs off the game loop; the chat notice comes back
// on-frame.
func (m *Manager) collectWebsite(p game.Player, crate *Crate) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		ok := m.site.DropCollected(ctx, p.SteamID, crate.KillerSteamID, crate.SpawnTime.Unix())
		if !ok {
			return
		}

		m.frames.NextFrame(func() {
			m.chat.ToPlayer(p.SteamID, "[Drop] You received a reward! Check the website!")
		})
	}()
}

// Nearest returns the closest active crate within the configured use
// range of pos, or false when none is in reach.
func (m *Manager) Nearest(pos game.Vec3) (*Crate, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		best     *Crate
		bestDist float64
	)

	maxDist := m.cfg.UseRange * m.cfg.UseRange

	for _, c := range m.crates {
		dx := c.Position.X - pos.X
		dy := c.Position.Y - pos.Y
		dz := c.Position.Z - pos.Z
		d := dx*dx + dy*dy + dz*dz

		if d <= maxDist && (best == nil || d < bestDist) {
			best, bestDist = c, d
		}
	}

	return best, best != nil
}

// ActiveCount reports how many crates are currently spawned.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.crates)
}

// Clear drops all active crates, e.g. on round restart.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.crates {
		if c.timer != nil {
			c.timer.Stop()
		}
	}

	m.crates = make(map[uint64]*Crate)
}
