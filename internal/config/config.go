package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kfodor/coinledger/internal/money"
)

// Amount is a coin amount in cents, parsed from 2-decimal strings like
// "0.30" in the environment.
type Amount int64

func (a *Amount) UnmarshalText(text []byte) error {
	cents, err := money.ParseCents(string(text))
	if err != nil {
		return fmt.Errorf("parse amount: %w", err)
	}

	*a = Amount(cents)

	return nil
}

// DropRewardMode selects which side grants the case-pickup reward.
// Exactly one path runs per pickup.
type DropRewardMode string

const (
	// DropRewardLocal credits the ledger directly with a random amount.
	DropRewardLocal DropRewardMode = "local"
	// DropRewardWebsite notifies the site and lets it grant the reward.
	DropRewardWebsite DropRewardMode = "website"
)

func (m *DropRewardMode) UnmarshalText(text []byte) error {
	switch DropRewardMode(text) {
	case DropRewardLocal, DropRewardWebsite:
		*m = DropRewardMode(text)
		return nil
	default:
		return fmt.Errorf("invalid drop reward mode %q", text)
	}
}

// Config is the full option surface of the plugin.
type Config struct {
	LogLevel        slog.Level    `env:"COINS_LOG_LEVEL" default:"INFO"`
	Debug           bool          `env:"COINS_DEBUG" default:"false"`
	ShutdownTimeout time.Duration `env:"COINS_SHUTDOWN_TIMEOUT" default:"10s"`

	Web         WebConfig
	Listener    ListenerConfig
	Database    DatabaseConfig
	Rewards     RewardsConfig
	Drops       DropsConfig
	AutoRefresh AutoRefreshConfig
	Game        GameConfig
}

// WebConfig points at the external inventory website.
type WebConfig struct {
	Protocol string        `env:"COINS_WEB_PROTOCOL" default:"https"`
	Hostname string        `env:"COINS_WEB_HOSTNAME"`
	APIKey   string        `env:"COINS_WEB_APIKEY" default:""`
	Timeout  time.Duration `env:"COINS_WEB_TIMEOUT" default:"10s"`
}

// ListenerConfig configures the inbound webhook server.
type ListenerConfig struct {
	Port            uint16        `env:"COINS_LISTEN_PORT" default:"5005"`
	CaseOpenedDelay time.Duration `env:"COINS_CASE_OPENED_DELAY" default:"5s"`
	RateLimitWindow time.Duration `env:"COINS_REFRESH_RATE_WINDOW" default:"2s"`
}

// DatabaseConfig configures the persistence adapter. With Enabled false
// or an empty DSN the process runs memory-only from the start.
type DatabaseConfig struct {
	Enabled      bool          `env:"COINS_DB_ENABLED" default:"true"`
	DSN          string        `env:"COINS_DB_DSN" default:""`
	TableName    string        `env:"COINS_DB_TABLE" default:"player_coins"`
	SaveInterval time.Duration `env:"COINS_DB_SAVE_INTERVAL" default:"30s"`
	QueueSize    int           `env:"COINS_DB_QUEUE_SIZE" default:"256"`
}

// RewardsConfig carries the per-event toggles and flat amounts.
// Randomized rewards (kill, headshot, case) draw from fixed intervals
// and are not configurable, as in the original plugin.
type RewardsConfig struct {
	EnableKill     bool `env:"COINS_REWARD_KILL_ENABLED" default:"true"`
	EnableRoundWin bool `env:"COINS_REWARD_ROUNDWIN_ENABLED" default:"true"`
	EnableMvp      bool `env:"COINS_REWARD_MVP_ENABLED" default:"true"`
	EnableDaily    bool `env:"COINS_REWARD_DAILY_ENABLED" default:"true"`
	Announce       bool `env:"COINS_REWARD_ANNOUNCE" default:"true"`

	RoundWin Amount `env:"COINS_REWARD_ROUNDWIN" default:"1.00"`
	Mvp      Amount `env:"COINS_REWARD_MVP" default:"2.50"`
	Assist   Amount `env:"COINS_REWARD_ASSIST" default:"0.05"`
	Plant    Amount `env:"COINS_REWARD_PLANT" default:"0.20"`
	Defuse   Amount `env:"COINS_REWARD_DEFUSE" default:"0.30"`
	Daily    Amount `env:"COINS_REWARD_DAILY" default:"1.00"`
}

// DropsConfig configures the case-drop subsystem.
type DropsConfig struct {
	Enabled    bool           `env:"COINS_DROP_ENABLED" default:"true"`
	Chance     float64        `env:"COINS_DROP_CHANCE" default:"10"` // percent
	Model      string         `env:"COINS_DROP_MODEL" default:"models/props/crates/crate_01.vmdl"`
	Timeout    time.Duration  `env:"COINS_DROP_TIMEOUT" default:"30s"`
	Announce   bool           `env:"COINS_DROP_ANNOUNCE" default:"true"`
	UseRange   float64        `env:"COINS_DROP_USE_RANGE" default:"75"`
	RewardMode DropRewardMode `env:"COINS_DROP_REWARD_MODE" default:"local"`
}

// AutoRefreshConfig configures the inventory auto-refresh sweep.
type AutoRefreshConfig struct {
	Enabled  bool          `env:"COINS_AUTOREFRESH_ENABLED" default:"false"`
	Interval time.Duration `env:"COINS_AUTOREFRESH_INTERVAL" default:"1m"`
}

// GameConfig configures the stand-in host loop.
type GameConfig struct {
	TickInterval time.Duration `env:"COINS_TICK_INTERVAL" default:"15ms"`
}
