// Package game is the boundary to the hosting game server. It carries
// the few engine facilities the coin systems need (who is connected,
// chat output, run-on-next-frame scheduling, event hooks) so everything
// above it stays host-agnostic.
package game

import (
	"strconv"
	"strings"
	"sync"
)

type Team int

const (
	TeamNone Team = iota
	TeamSpectator
	TeamTerrorist
	TeamCounterTerrorist
)

// Player is a connected player as seen at the boundary.
type Player struct {
	SteamID uint64
	Name    string
	Team    Team
	Bot     bool
}

// Roster tracks connected players. Mutated from the game-loop goroutine,
// read from the webhook and timer goroutines.
type Roster struct {
	mu      sync.RWMutex
	players map[uint64]Player
}

func NewRoster() *Roster {
	return &Roster{players: make(map[uint64]Player)}
}

func (r *Roster) Connect(p Player) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.players[p.SteamID] = p
}

func (r *Roster) Disconnect(steamID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.players, steamID)
}

// BySteamID returns the connected player, if any.
func (r *Roster) BySteamID(steamID uint64) (Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.players[steamID]

	return p, ok
}

// Find matches a player by case-insensitive name substring or by SteamID
// substring, the admin-command targeting rule.
func (r *Roster) Find(query string) (Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := strings.ToLower(query)
	for _, p := range r.players {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strconv.FormatUint(p.SteamID, 10), query) {
			return p, true
		}
	}

	return Player{}, false
}

// Team returns the human players on the given team.
func (r *Roster) TeamMembers(team Team) []Player {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var members []Player
	for _, p := range r.players {
		if p.Team == team && !p.Bot {
			members = append(members, p)
		}
	}

	return members
}

func (r *Roster) All() []Player {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		all = append(all, p)
	}

	return all
}
