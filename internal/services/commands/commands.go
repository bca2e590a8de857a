// Package commands implements the in-game chat/console command surface.
package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kfodor/coinledger/internal/game"
	"github.com/kfodor/coinledger/internal/ledger"
	"github.com/kfodor/coinledger/internal/money"
)

const (
	msgUnavailable   = "Coin system is not available."
	msgInvalidAmount = "Invalid amount specified."

	defaultTopN = 5
	maxTopN     = 25
)

type Handler struct {
	ledger *ledger.Ledger
	roster *game.Roster
	chat   game.Chat

	// available gates every command; when the coin system is down all
	// commands answer with the same notice.
	available func() bool
}

func New(l *ledger.Ledger, roster *game.Roster, chat game.Chat, available func() bool) *Handler {
	return &Handler{ledger: l, roster: roster, chat: chat, available: available}
}

// Dispatch parses one command line from caller and routes it. Unknown
// commands return false so the host can fall through to other handlers.
func (h *Handler) Dispatch(caller game.Player, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	name := strings.ToLower(strings.TrimPrefix(fields[0], "!"))
	args := fields[1:]

	switch name {
	case "coins":
		h.Coins(caller)
	case "coinhelp":
		h.Help(caller)
	case "top":
		n := defaultTopN
		if len(args) > 0 {
			if parsed, err := strconv.Atoi(args[0]); err == nil && parsed > 0 {
				n = min(parsed, maxTopN)
			}
		}
		h.Top(caller, n)
	case "givecoins":
		h.Give(caller, args)
	case "setcoins":
		h.Set(caller, args)
	case "resetcoins":
		h.Reset(caller, args)
	default:
		return false
	}

	return true
}

func (h *Handler) Coins(caller game.Player) {
	if !h.available() {
		h.chat.ToPlayer(caller.SteamID, msgUnavailable)
		return
	}

	balance := h.ledger.Balance(caller.SteamID)
	h.chat.ToPlayer(caller.SteamID, fmt.Sprintf("[Coins] You have %s coins.", money.FormatCents(balance)))
}

func (h *Handler) Help(caller game.Player) {
	for _, line := range []string{
		"[Coins] Available commands:",
		"[Coins] coins - show your balance",
		"[Coins] top [n] - show the richest players",
		"[Coins] givecoins <player> <amount> - grant coins (admin)",
		"[Coins] setcoins <player> <amount> - set a balance (admin)",
		"[Coins] resetcoins <player> - zero a balance (admin)",
	} {
		h.chat.ToPlayer(caller.SteamID, line)
	}
}

func (h *Handler) Top(caller game.Player, n int) {
	if !h.available() {
		h.chat.ToPlayer(caller.SteamID, msgUnavailable)
		return
	}

	entries := h.ledger.Top(n)
	if len(entries) == 0 {
		h.chat.ToPlayer(caller.SteamID, "[Coins] Nobody has any coins yet.")
		return
	}

	h.chat.ToPlayer(caller.SteamID, "[Coins] Top coin holders:")

	for i, e := range entries {
		name := strconv.FormatUint(e.SteamID, 10)
		if p, ok := h.roster.BySteamID(e.SteamID); ok {
			name = p.Name
		}

		h.chat.ToPlayer(caller.SteamID, fmt.Sprintf("[Coins] %d. %s - %s", i+1, name, money.FormatCents(e.Cents)))
	}
}

func (h *Handler) Give(caller game.Player, args []string) {
	target, cents, ok := h.resolveTargetAmount(caller, args)
	if !ok {
		return
	}

	total := h.ledger.Add(target.SteamID, cents)

	h.chat.ToPlayer(target.SteamID, fmt.Sprintf("[Coins] You received %s coins.", money.FormatCents(cents)))
	h.chat.ToPlayer(caller.SteamID, fmt.Sprintf("[Coins] %s now has %s coins.", target.Name, money.FormatCents(total)))
}

func (h *Handler) Set(caller game.Player, args []string) {
	target, cents, ok := h.resolveTargetAmount(caller, args)
	if !ok {
		return
	}

	h.ledger.Set(target.SteamID, cents)
	h.chat.ToPlayer(caller.SteamID, fmt.Sprintf("[Coins] %s now has %s coins.", target.Name, money.FormatCents(cents)))
}

func (h *Handler) Reset(caller game.Player, args []string) {
	if !h.available() {
		h.chat.ToPlayer(caller.SteamID, msgUnavailable)
		return
	}

	if len(args) < 1 {
		h.chat.ToPlayer(caller.SteamID, "[Coins] Usage: resetcoins <player>")
		return
	}

	target, ok := h.roster.Find(args[0])
	if !ok {
		h.chat.ToPlayer(caller.SteamID, fmt.Sprintf("Player '%s' not found.", args[0]))
		return
	}

	h.ledger.Reset(target.SteamID)
	h.chat.ToPlayer(caller.SteamID, fmt.Sprintf("[Coins] %s now has 0.00 coins.", target.Name))
}

// resolveTargetAmount handles the shared <player> <amount> argument pair
// of the admin commands, emitting the failure notice itself.
func (h *Handler) resolveTargetAmount(caller game.Player, args []string) (game.Player, int64, bool) {
	if !h.available() {
		h.chat.ToPlayer(caller.SteamID, msgUnavailable)
		return game.Player{}, 0, false
	}

	if len(args) < 2 {
		h.chat.ToPlayer(caller.SteamID, "[Coins] Usage: <player> <amount>")
		return game.Player{}, 0, false
	}

	target, ok := h.roster.Find(args[0])
	if !ok {
		h.chat.ToPlayer(caller.SteamID, fmt.Sprintf("Player '%s' not found.", args[0]))
		return game.Player{}, 0, false
	}

	cents, err := money.ParseCents(args[1])
	if err != nil || cents < 0 {
		h.chat.ToPlayer(caller.SteamID, msgInvalidAmount)
		return game.Player{}, 0, false
	}

	return target, cents, true
}
