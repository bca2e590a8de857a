package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/kfodor/coinledger/internal/config"
	"github.com/kfodor/coinledger/internal/game"
)

// refresher is the inventory-service slice the listener needs.
type refresher interface {
	Refresh(steamID uint64)
	MarkTimestamp(steamID uint64, ts int64)
}

// HandlerProvider wraps the game-side services and exposes the webhook
// handlers the website calls.
type HandlerProvider struct {
	cfg     config.ListenerConfig
	roster  *game.Roster
	frames  *game.FrameQueue
	chat    game.Chat
	refresh refresher
	limiter *rateLimiter
}

// NewHandler returns a new Handler provider.
func NewHandler(cfg config.ListenerConfig, roster *game.Roster, frames *game.FrameQueue, chat game.Chat, r refresher) *HandlerProvider {
	return &HandlerProvider{
		cfg:     cfg,
		roster:  roster,
		frames:  frames,
		chat:    chat,
		refresh: r,
		limiter: newRateLimiter(cfg.RateLimitWindow),
	}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeBody reads a capped, strict JSON body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB cap
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(v)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body")
		}

		return fmt.Errorf("invalid JSON")
	}

	return nil
}

// --- Handlers ---

type refreshRequest struct {
	SteamID string `json:"SteamId"`
	// LastUpdateTimestamp is the site's inventory timestamp for this
	// change, pushed so the auto-refresh sweep doesn't re-fetch it.
	LastUpdateTimestamp int64 `json:"LastUpdateTimestamp"`
}

// RefreshInventoryHandler handles POST /api/plugin/refresh-inventory.
// The website calls this after the player changes their loadout.
func (h *HandlerProvider) RefreshInventoryHandler(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	steamID, err := strconv.ParseUint(strings.TrimSpace(req.SteamID), 10, 64)
	if err != nil || steamID == 0 {
		writeError(w, http.StatusBadRequest, "invalid SteamId")
		return
	}

	if _, connected := h.roster.BySteamID(steamID); !connected {
		writeError(w, http.StatusNotFound, "player not connected")
		return
	}

	if !h.limiter.Allow(steamID) {
		writeError(w, http.StatusTooManyRequests, "refresh already pending")
		return
	}

	if req.LastUpdateTimestamp > 0 {
		h.refresh.MarkTimestamp(steamID, req.LastUpdateTimestamp)
	}

	// The refresh itself fetches off-loop; only the kick-off crosses to
	// the game thread.
	h.frames.NextFrame(func() {
		h.refresh.Refresh(steamID)
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type caseOpenedRequest struct {
	PlayerName string `json:"PlayerName"`
	ItemName   string `json:"ItemName"`
	Rarity     string `json:"Rarity"`
	StatTrak   bool   `json:"StatTrak"`
}

// CaseOpenedHandler handles POST /api/plugin/case-opened. The broadcast
// is delayed so it lands after the site's own unbox animation.
func (h *HandlerProvider) CaseOpenedHandler(w http.ResponseWriter, r *http.Request) {
	var req caseOpenedRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if strings.TrimSpace(req.PlayerName) == "" || strings.TrimSpace(req.ItemName) == "" {
		writeError(w, http.StatusBadRequest, "PlayerName and ItemName required")
		return
	}

	msg := unboxAnnouncement(req)

	h.frames.After(h.cfg.CaseOpenedDelay, func() {
		h.chat.ToAll(msg)
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func unboxAnnouncement(req caseOpenedRequest) string {
	item := req.ItemName
	if req.StatTrak {
		item = "StatTrak " + item
	}

	rarity := rarityLabel(req.Rarity)
	if rarity != "" {
		return fmt.Sprintf("[Drop] %s unboxed: %s (%s)", req.PlayerName, item, rarity)
	}

	return fmt.Sprintf("[Drop] %s unboxed: %s", req.PlayerName, item)
}

// rarityLabel normalizes the site's rarity slugs to display names.
func rarityLabel(rarity string) string {
	switch strings.ToLower(strings.TrimSpace(rarity)) {
	case "consumer":
		return "Consumer Grade"
	case "industrial":
		return "Industrial Grade"
	case "milspec", "mil-spec":
		return "Mil-Spec"
	case "restricted":
		return "Restricted"
	case "classified":
		return "Classified"
	case "covert":
		return "Covert"
	case "rare", "gold":
		return "Exceedingly Rare"
	case "":
		return ""
	default:
		return rarity
	}
}
