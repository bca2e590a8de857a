package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kfodor/coinledger/internal/config"
	"github.com/kfodor/coinledger/internal/game"
)

// NewRouter constructs the webhook router with all endpoints registered.
func NewRouter(cfg config.ListenerConfig, roster *game.Roster, frames *game.FrameQueue, chat game.Chat, refresh refresher) http.Handler {
	h := NewHandler(cfg, roster, frames, chat, refresh)
	r := chi.NewRouter()

	r.Use(requestLogger)
	r.Use(recoverer)
	r.Use(permissiveCORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/api/plugin/refresh-inventory", h.RefreshInventoryHandler)
	r.Post("/api/plugin/case-opened", h.CaseOpenedHandler)

	return r
}
