// Package ledger holds the authoritative in-memory coin balances.
// Balances are int64 cents. Records are created implicitly on first
// touch; reads of unknown players return zero and never fail.
package ledger

import (
	"sort"
	"sync"
	"time"
)

// Sink receives the new balance after every balance mutation. It must
// not block; the persistence adapter backs it with a bounded queue.
type Sink func(steamID uint64, balanceCents int64)

type record struct {
	balance      int64
	killStreak   int
	lastActivity time.Time
	lastDaily    time.Time
}

// Ledger is the only structure mutated from multiple goroutines (reward
// handlers on the game loop, reconciliation on a timer, webhook-driven
// admin ops). One mutex covers every record; all mutation goes through
// the atomic operations below.
type Ledger struct {
	mu      sync.Mutex
	records map[uint64]*record
	sink    Sink
	now     func() time.Time
}

type Option func(*Ledger)

// WithSink installs the persistence sink invoked after balance mutations.
func WithSink(s Sink) Option {
	return func(l *Ledger) { l.sink = s }
}

// WithClock overrides time.Now, for the daily-window tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		records: make(map[uint64]*record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// SetSink installs the sink after construction; the adapter is wired
// after the ledger exists.
func (l *Ledger) SetSink(s Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sink = s
}

func (l *Ledger) get(steamID uint64) *record {
	r, ok := l.records[steamID]
	if !ok {
		r = &record{}
		l.records[steamID] = r
	}

	return r
}

// Balance returns the current balance, zero for unknown players.
func (l *Ledger) Balance(steamID uint64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.records[steamID]
	if !ok {
		return 0
	}

	return r.balance
}

// Add atomically adds deltaCents and returns the new balance.
func (l *Ledger) Add(steamID uint64, deltaCents int64) int64 {
	l.mu.Lock()
	r := l.get(steamID)
	r.balance += deltaCents
	r.lastActivity = l.now()
	newBalance := r.balance
	sink := l.sink
	l.mu.Unlock()

	if sink != nil {
		sink(steamID, newBalance)
	}

	return newBalance
}

// Set unconditionally overwrites the balance. Used by admin commands and
// by reconciliation.
func (l *Ledger) Set(steamID uint64, cents int64) {
	l.mu.Lock()
	r := l.get(steamID)
	r.balance = cents
	sink := l.sink
	l.mu.Unlock()

	if sink != nil {
		sink(steamID, cents)
	}
}

// Reset sets the balance to zero.
func (l *Ledger) Reset(steamID uint64) {
	l.Set(steamID, 0)
}

// SetIfAbsent stores cents only when no record exists yet and reports
// whether it did. Loads fill gaps without clobbering live balances, and
// without feeding the write queue back.
func (l *Ledger) SetIfAbsent(steamID uint64, cents int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.records[steamID]; ok {
		return false
	}

	l.records[steamID] = &record{balance: cents}

	return true
}

// Overwrite is Set without the sink notification. The reconcile pull
// phase uses it so external values don't re-enter the write queue.
func (l *Ledger) Overwrite(steamID uint64, cents int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.get(steamID).balance = cents
}

// IncrementStreak bumps the attacker's consecutive-kill counter and
// returns the new count.
func (l *Ledger) IncrementStreak(steamID uint64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	r := l.get(steamID)
	r.killStreak++

	return r.killStreak
}

// ResetStreak zeroes the victim's counter on death.
func (l *Ledger) ResetStreak(steamID uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.get(steamID).killStreak = 0
}

func (l *Ledger) Streak(steamID uint64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.records[steamID]
	if !ok {
		return 0
	}

	return r.killStreak
}

// TouchActivity records activity for the anti-AFK check.
func (l *Ledger) TouchActivity(steamID uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.get(steamID).lastActivity = l.now()
}

// Active reports whether the player acted within window. Players never
// seen count as active.
func (l *Ledger) Active(steamID uint64, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.records[steamID]
	if !ok || r.lastActivity.IsZero() {
		return true
	}

	return l.now().Sub(r.lastActivity) < window
}

// ClaimDaily claims the daily reward if the rolling window has elapsed
// since the last claim. The check and the timestamp update are one
// critical section, so concurrent claims cannot double-grant.
func (l *Ledger) ClaimDaily(steamID uint64, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	r := l.get(steamID)
	now := l.now()
	if !r.lastDaily.IsZero() && now.Sub(r.lastDaily) < window {
		return false
	}

	r.lastDaily = now

	return true
}

// Snapshot copies every balance, for the reconcile push phase.
func (l *Ledger) Snapshot() map[uint64]int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[uint64]int64, len(l.records))
	for id, r := range l.records {
		out[id] = r.balance
	}

	return out
}

// Entry is one leaderboard row.
type Entry struct {
	SteamID uint64
	Cents   int64
}

// Top returns the n richest players, descending.
func (l *Ledger) Top(n int) []Entry {
	l.mu.Lock()
	entries := make([]Entry, 0, len(l.records))
	for id, r := range l.records {
		entries = append(entries, Entry{SteamID: id, Cents: r.balance})
	}
	l.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Cents != entries[j].Cents {
			return entries[i].Cents > entries[j].Cents
		}

		return entries[i].SteamID < entries[j].SteamID
	})

	if n < len(entries) {
		entries = entries[:n]
	}

	return entries
}
