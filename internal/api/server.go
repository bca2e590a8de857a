package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kfodor/coinledger/internal/config"
	"github.com/kfodor/coinledger/internal/game"
)

// NewServer creates and returns a configured *http.Server for the
// webhook listener.
func NewServer(cfg config.ListenerConfig, roster *game.Roster, frames *game.FrameQueue, chat game.Chat, refresh refresher) *http.Server {
	mux := NewRouter(cfg, roster, frames, chat, refresh)

	addr := fmt.Sprintf(":%d", cfg.Port)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
