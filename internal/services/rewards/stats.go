package rewards

import "sync"

// PlayerStats are the per-player event counters kept alongside the
// ledger. In-memory only: they back the debug/console surface, and
// nothing rewards depends on them.
type PlayerStats struct {
	Kills       int
	Headshots   int
	KnifeKills  int
	Assists     int
	BombPlants  int
	BombDefuses int
}

type Stats struct {
	mu      sync.Mutex
	players map[uint64]*PlayerStats
}

func NewStats() *Stats {
	return &Stats{players: make(map[uint64]*PlayerStats)}
}

func (s *Stats) get(steamID uint64) *PlayerStats {
	ps, ok := s.players[steamID]
	if !ok {
		ps = &PlayerStats{}
		s.players[steamID] = ps
	}

	return ps
}

func (s *Stats) recordKill(steamID uint64, headshot, knife bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps := s.get(steamID)
	ps.Kills++
	if headshot {
		ps.Headshots++
	}
	if knife {
		ps.KnifeKills++
	}
}

func (s *Stats) recordAssist(steamID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.get(steamID).Assists++
}

func (s *Stats) recordPlant(steamID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.get(steamID).BombPlants++
}

func (s *Stats) recordDefuse(steamID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.get(steamID).BombDefuses++
}

// For returns a copy of the player's counters.
func (s *Stats) For(steamID uint64) PlayerStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, ok := s.players[steamID]
	if !ok {
		return PlayerStats{}
	}

	return *ps
}
