package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kfodor/coinledger/internal/game"
)

type fakeSite struct {
	mu         sync.Mutex
	doc        []byte
	failures   int // first N EquippedInventory calls fail
	fetchCalls int
	timestamp  int64
	tsCalls    int

	block chan struct{} // when set, EquippedInventory waits on it
}

func (f *fakeSite) EquippedInventory(_ context.Context, _ uint64) ([]byte, error) {
	f.mu.Lock()
	f.fetchCalls++
	n := f.fetchCalls
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if n <= f.failures {
		return nil, errors.New("fetch failed")
	}

	return f.doc, nil
}

func (f *fakeSite) InventoryTimestamp(_ context.Context, _ uint64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tsCalls++
	return f.timestamp
}

func (f *fakeSite) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

type chatRecorder struct {
	mu   sync.Mutex
	msgs []string
}

func (c *chatRecorder) ToPlayer(_ uint64, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *chatRecorder) ToAll(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *chatRecorder) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func (c *chatRecorder) last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.msgs) == 0 {
		return ""
	}
	return c.msgs[len(c.msgs)-1]
}

func newTestService(site *fakeSite) (*Service, *game.FrameQueue, *game.Roster, *chatRecorder) {
	frames := game.NewFrameQueue()
	roster := game.NewRoster()
	chat := &chatRecorder{}

	return New(site, frames, roster, chat), frames, roster, chat
}

func drainUntil(t *testing.T, frames *game.FrameQueue, cond func() bool) {
	t.Helper()

	assert.Eventually(t, func() bool {
		frames.Drain()
		return cond()
	}, time.Second, 5*time.Millisecond)
}

func TestRefresh_LoadsAndAnnounces(t *testing.T) {
	site := &fakeSite{doc: []byte(`{"knife":"karambit"}`)}
	s, frames, roster, chat := newTestService(site)

	roster.Connect(game.Player{SteamID: 7, Name: "alice"})

	s.Refresh(7)
	drainUntil(t, frames, func() bool { return s.Has(7) })

	assert.Contains(t, chat.last(), "loaded")
}

func TestRefresh_DistinguishesUpdatedFromUnchanged(t *testing.T) {
	site := &fakeSite{doc: []byte(`v1`)}
	s, frames, roster, chat := newTestService(site)

	roster.Connect(game.Player{SteamID: 7})

	s.Refresh(7)
	drainUntil(t, frames, func() bool { return s.Has(7) })

	// Same document again.
	s.Refresh(7)
	drainUntil(t, frames, func() bool { return site.fetchCount() == 2 && chat.count() == 2 })
	assert.Contains(t, chat.last(), "No changes")

	site.mu.Lock()
	site.doc = []byte(`v2`)
	site.mu.Unlock()

	s.Refresh(7)
	drainUntil(t, frames, func() bool { return chat.count() == 3 })
	assert.Contains(t, chat.last(), "updated")
}

func TestRefresh_RetriesUpTo3Attempts(t *testing.T) {
	site := &fakeSite{doc: []byte(`ok`), failures: 2}
	s, frames, roster, _ := newTestService(site)

	roster.Connect(game.Player{SteamID: 7})

	s.Refresh(7)
	drainUntil(t, frames, func() bool { return s.Has(7) })

	assert.Equal(t, 3, site.fetchCount())
}

func TestRefresh_GivesUpAfter3Failures(t *testing.T) {
	site := &fakeSite{doc: []byte(`ok`), failures: 3}
	s, frames, roster, chat := newTestService(site)

	roster.Connect(game.Player{SteamID: 7})

	s.Refresh(7)

	assert.Eventually(t, func() bool {
		return site.fetchCount() == 3
	}, time.Second, 5*time.Millisecond)

	frames.Drain()
	assert.False(t, s.Has(7))
	assert.Empty(t, chat.msgs)
}

func TestRefresh_SingleFlight(t *testing.T) {
	site := &fakeSite{doc: []byte(`ok`), block: make(chan struct{})}
	s, frames, roster, _ := newTestService(site)

	roster.Connect(game.Player{SteamID: 7})

	s.Refresh(7)
	assert.Eventually(t, func() bool {
		return site.fetchCount() == 1
	}, time.Second, 5*time.Millisecond)

	// Duplicate refresh while the first fetch is in flight.
	s.Refresh(7)
	close(site.block)

	drainUntil(t, frames, func() bool { return s.Has(7) })
	assert.Equal(t, 1, site.fetchCount())
}

func TestApply_SkipsDisconnectedPlayer(t *testing.T) {
	site := &fakeSite{doc: []byte(`ok`)}
	s, frames, _, chat := newTestService(site)

	s.Refresh(7)

	assert.Eventually(t, func() bool {
		return site.fetchCount() == 1
	}, time.Second, 5*time.Millisecond)

	// Let the queued apply run; the player never connected.
	time.Sleep(20 * time.Millisecond)
	frames.Drain()

	assert.False(t, s.Has(7))
	assert.Empty(t, chat.msgs)
}

func TestHooks_ConnectFetchesDisconnectForgets(t *testing.T) {
	site := &fakeSite{doc: []byte(`ok`)}
	s, frames, roster, _ := newTestService(site)

	hooks := game.NewHooks()
	s.Register(hooks)

	p := game.Player{SteamID: 7, Name: "alice"}
	roster.Connect(p)
	hooks.EmitPlayerConnect(p)

	drainUntil(t, frames, func() bool { return s.Has(7) })

	hooks.EmitPlayerDisconnect(7)
	assert.False(t, s.Has(7))

	// Bots are never fetched.
	bot := game.Player{SteamID: 8, Bot: true}
	roster.Connect(bot)
	hooks.EmitPlayerConnect(bot)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, site.fetchCount())
}

func TestSweep_RefreshesOnNewerWebTimestamp(t *testing.T) {
	site := &fakeSite{doc: []byte(`ok`)}
	s, frames, roster, _ := newTestService(site)

	roster.Connect(game.Player{SteamID: 7})

	// First sweep seeds the timestamp and fetches once.
	s.sweep()
	drainUntil(t, frames, func() bool { return s.Has(7) })
	require.Equal(t, 1, site.fetchCount())

	// Web timestamp older than seed: no refetch.
	site.mu.Lock()
	site.timestamp = 1
	site.mu.Unlock()

	s.sweep()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, site.fetchCount())

	// Newer than anything seen: refetch.
	site.mu.Lock()
	site.timestamp = time.Now().Unix() + 100
	site.mu.Unlock()

	s.sweep()
	assert.Eventually(t, func() bool {
		return site.fetchCount() == 2
	}, time.Second, 5*time.Millisecond)
}

func TestMarkTimestamp_OnlyUpdatesTrackedPlayers(t *testing.T) {
	site := &fakeSite{doc: []byte(`ok`)}
	s, _, roster, _ := newTestService(site)

	roster.Connect(game.Player{SteamID: 7})

	// Untracked player: no entry created.
	s.MarkTimestamp(7, 42)
	s.mu.Lock()
	_, ok := s.lastSeen[7]
	s.mu.Unlock()
	assert.False(t, ok)

	s.sweep() // seeds lastSeen

	s.MarkTimestamp(7, time.Now().Unix()+500)
	s.mu.Lock()
	got := s.lastSeen[7]
	s.mu.Unlock()
	assert.Greater(t, got, time.Now().Unix()+100)
}
