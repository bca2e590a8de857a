// Package rewards translates game events into ledger credits. All
// amounts are cents. Randomized rewards draw fresh, unseeded values per
// event; only their intervals are fixed.
package rewards

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/kfodor/coinledger/internal/config"
	"github.com/kfodor/coinledger/internal/game"
	"github.com/kfodor/coinledger/internal/ledger"
	"github.com/kfodor/coinledger/internal/money"
)

// Reward intervals and bonuses, closed-open, in cents.
const (
	killMin     = 10
	killMax     = 30
	headshotMin = 30
	headshotMax = 50
	knifeBonus  = 50
	caseMin     = 100
	caseMax     = 600

	dailyWindow = 24 * time.Hour
)

// streakBonuses maps a streak count to its one-shot bonus.
var streakBonuses = map[int]int64{
	3:  10,
	5:  30,
	10: 50,
}

type Engine struct {
	ledger *ledger.Ledger
	roster *game.Roster
	chat   game.Chat
	cfg    config.RewardsConfig
	stats  *Stats
}

func NewEngine(l *ledger.Ledger, roster *game.Roster, chat game.Chat, cfg config.RewardsConfig) *Engine {
	return &Engine{
		ledger: l,
		roster: roster,
		chat:   chat,
		cfg:    cfg,
		stats:  NewStats(),
	}
}

func (e *Engine) Stats() *Stats { return e.stats }

// Register hooks the engine into the host event dispatcher.
func (e *Engine) Register(hooks *game.Hooks) {
	hooks.OnKill(e.HandleKill)
	hooks.OnRoundEnd(func(winner game.Team) {
		e.RoundWin(e.roster.TeamMembers(winner))
	})
	hooks.OnMvp(e.Mvp)
	hooks.OnBombPlanted(e.BombPlant)
	hooks.OnBombDefused(e.BombDefuse)
	hooks.OnPlayerConnect(e.DailyLogin)
}

// drawCents returns a uniform value in [lo, hi) cents.
func drawCents(lo, hi int64) int64 {
	return lo + rand.Int63n(hi-lo)
}

func isKnife(weapon string) bool {
	return strings.Contains(weapon, "knife") || strings.Contains(weapon, "bayonet")
}

// HandleKill credits the attacker for one kill: base reward, knife
// bonus, streak bookkeeping and bonuses, and the assist credit. The
// victim's streak resets whether or not kill rewards are enabled.
func (e *Engine) HandleKill(ev game.KillEvent) {
	if ev.Victim != 0 {
		e.ledger.ResetStreak(ev.Victim)
	}

	if ev.Attacker == 0 {
		return
	}

	e.ledger.TouchActivity(ev.Attacker)
	e.stats.recordKill(ev.Attacker, ev.Headshot, isKnife(ev.Weapon))

	if e.cfg.EnableKill {
		lo, hi, kind := int64(killMin), int64(killMax), "kill"
		if ev.Headshot {
			lo, hi, kind = headshotMin, headshotMax, "headshot"
		}

		reward := drawCents(lo, hi)
		total := e.ledger.Add(ev.Attacker, reward)
		e.announce(ev.Attacker, reward, kind)
		slog.Debug("kill reward", "steam_id", ev.Attacker, "kind", kind,
			"reward", money.FormatCents(reward), "total", money.FormatCents(total))

		if isKnife(ev.Weapon) {
			e.ledger.Add(ev.Attacker, knifeBonus)
			e.announce(ev.Attacker, knifeBonus, "Knife Kill")
		}
	}

	streak := e.ledger.IncrementStreak(ev.Attacker)
	if bonus, ok := streakBonuses[streak]; ok {
		e.ledger.Add(ev.Attacker, bonus)

		name := fmt.Sprintf("Player#%d", ev.Attacker)
		if p, ok := e.roster.BySteamID(ev.Attacker); ok {
			name = p.Name
		}

		e.chat.ToAll(fmt.Sprintf("%s has a %d KILL STREAK! +€%s bonus",
			name, streak, money.FormatCents(bonus)))
	}

	if ev.Assister != 0 {
		e.Assist(ev.Assister)
	}
}

// Assist credits the flat assist reward.
func (e *Engine) Assist(steamID uint64) {
	reward := int64(e.cfg.Assist)
	e.ledger.Add(steamID, reward)
	e.announce(steamID, reward, "assist")
	e.stats.recordAssist(steamID)
}

// RoundWin credits every member of the winning team. Not announced in
// chat; round-end spam drowned it out.
func (e *Engine) RoundWin(winners []game.Player) {
	if !e.cfg.EnableRoundWin {
		return
	}

	for _, p := range winners {
		total := e.ledger.Add(p.SteamID, int64(e.cfg.RoundWin))
		slog.Debug("round win reward", "steam_id", p.SteamID, "total", money.FormatCents(total))
	}
}

// Mvp credits the round MVP. Silent in chat, same as round wins.
func (e *Engine) Mvp(steamID uint64) {
	if !e.cfg.EnableMvp {
		return
	}

	total := e.ledger.Add(steamID, int64(e.cfg.Mvp))
	slog.Debug("mvp reward", "steam_id", steamID, "total", money.FormatCents(total))
}

func (e *Engine) BombPlant(steamID uint64) {
	reward := int64(e.cfg.Plant)
	e.ledger.Add(steamID, reward)
	e.announce(steamID, reward, "bomb plant")
	e.stats.recordPlant(steamID)
}

func (e *Engine) BombDefuse(steamID uint64) {
	reward := int64(e.cfg.Defuse)
	e.ledger.Add(steamID, reward)
	e.announce(steamID, reward, "bomb defuse")
	e.stats.recordDefuse(steamID)
}

// DailyLogin grants the login reward at most once per rolling 24h
// window per player.
func (e *Engine) DailyLogin(p game.Player) {
	if !e.cfg.EnableDaily || p.Bot {
		return
	}

	if !e.ledger.ClaimDaily(p.SteamID, dailyWindow) {
		return
	}

	reward := int64(e.cfg.Daily)
	e.ledger.Add(p.SteamID, reward)
	e.chat.ToPlayer(p.SteamID, fmt.Sprintf("[Daily Reward] +€%s! Come back tomorrow for more!",
		money.FormatCents(reward)))
}

// CasePickup draws and credits the local case reward, announcing both to
// the collector and server-wide. Only the local drop-reward mode calls
// this.
func (e *Engine) CasePickup(p game.Player) int64 {
	reward := drawCents(caseMin, caseMax)
	total := e.ledger.Add(p.SteamID, reward)

	e.chat.ToPlayer(p.SteamID, fmt.Sprintf("[Mystery Case] You found €%s! Total: €%s",
		money.FormatCents(reward), money.FormatCents(total)))
	e.chat.ToAll(fmt.Sprintf("%s opened a mystery case and won €%s!",
		p.Name, money.FormatCents(reward)))

	return reward
}

func (e *Engine) announce(steamID uint64, cents int64, kind string) {
	if !e.cfg.Announce {
		return
	}

	e.chat.ToPlayer(steamID, fmt.Sprintf("[€] +€%s %s", money.FormatCents(cents), kind))
}
