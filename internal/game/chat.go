package game

import "log/slog"

// Chat is the game chat output surface. Implementations must be safe to
// call from the game-loop goroutine only; other goroutines reach chat
// through the frame queue.
type Chat interface {
	ToPlayer(steamID uint64, msg string)
	ToAll(msg string)
}

// LogChat writes chat lines to the structured log. It stands in for the
// engine's chat when the service runs without a real host attached.
type LogChat struct{}

func (LogChat) ToPlayer(steamID uint64, msg string) {
	slog.Info("chat", "steam_id", steamID, "msg", msg)
}

func (LogChat) ToAll(msg string) {
	slog.Info("chat_all", "msg", msg)
}
