// Package config defines the top-level configuration for the arbitrage
// monitor and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBBOT_* environment variables.
type Config struct {
	Engine   EngineConfig  `toml:"engine"`
	Bybit    BybitConfig   `toml:"bybit"`
	Notify   NotifyConfig  `toml:"notify"`
	Flowlog  FlowlogConfig `toml:"flowlog"`
	Redis    RedisConfig   `toml:"redis"`
	Server   ServerConfig  `toml:"server"`
	Mode     string        `toml:"mode"`
	LogLevel string        `toml:"log_level"`
}

// EngineConfig holds the opportunity-detection parameters.
type EngineConfig struct {
	BaseCoin               string   `toml:"base_coin"`
	ProfitThreshold        float64  `toml:"profit_threshold"`
	MinTicks               int      `toml:"min_ticks"`
	HistoryLength          int      `toml:"history_length"`
	MinDistinctStates      int      `toml:"min_distinct_states"`
	FreezeTimeout          duration `toml:"freeze_timeout"`
	FreezeRequireAllLegs   bool     `toml:"freeze_require_all_legs"`
	RequireMovementToStart bool     `toml:"require_movement_to_start"`
	RequireMovementToKeep  bool     `toml:"require_movement_to_keep"`
	FeeMode                string   `toml:"fee_mode"`
	DefaultFeeRate         float64  `toml:"default_fee_rate"`
	FiltersEnabled         bool     `toml:"filters_enabled"`
	BroadcastInterval      duration `toml:"broadcast_interval"`
}

// BybitConfig holds Bybit API endpoints and credentials. Credentials are
// optional; without them the monitor runs on public data and the default fee
// rate.
type BybitConfig struct {
	RestURL   string `toml:"rest_url"`
	WsURL     string `toml:"ws_url"`
	ApiKey    string `toml:"api_key"`
	ApiSecret string `toml:"api_secret"`
}

// NotifyConfig holds notification channel credentials and throttling.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
	MinInterval       duration `toml:"min_interval"`
}

// FlowlogConfig holds the daily flow-event file logging parameters.
type FlowlogConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
	Format  string `toml:"format"` // "json", "txt", or "both"
}

// RedisConfig holds Redis connection parameters. Redis is optional: in
// monitor mode the engine output goes to the notifier and flow log only.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ServerConfig holds HTTP server parameters. An empty APIKey disables
// authentication.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "30s", "250ms").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Engine: EngineConfig{
			BaseCoin:               "USDT",
			ProfitThreshold:        0.05,
			MinTicks:               3,
			HistoryLength:          7,
			MinDistinctStates:      2,
			FreezeTimeout:          duration{30 * time.Second},
			FreezeRequireAllLegs:   false,
			RequireMovementToStart: true,
			RequireMovementToKeep:  true,
			FeeMode:                "taker",
			DefaultFeeRate:         0.001,
			FiltersEnabled:         true,
			BroadcastInterval:      duration{250 * time.Millisecond},
		},
		Bybit: BybitConfig{
			RestURL: "https://api.bybit.com",
			WsURL:   "wss://stream.bybit.com/v5/public/spot",
		},
		Notify: NotifyConfig{
			Events:      []string{"start", "end"},
			MinInterval: duration{3 * time.Second},
		},
		Flowlog: FlowlogConfig{
			Enabled: true,
			Dir:     "logs",
			Format:  "both",
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Server: ServerConfig{
			Enabled:     false,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Mode:     "monitor",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"monitor": true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validFeeModes enumerates the accepted values for EngineConfig.FeeMode.
var validFeeModes = map[string]bool{
	"maker": true,
	"taker": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: monitor, full)", c.Mode))
	}
	if strings.ToLower(c.Mode) == "full" && !c.Server.Enabled {
		errs = append(errs, "mode full requires the server to be enabled")
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Engine
	if c.Engine.BaseCoin == "" {
		errs = append(errs, "engine: base_coin must not be empty")
	}
	if c.Engine.MinTicks < 1 {
		errs = append(errs, "engine: min_ticks must be >= 1")
	}
	if c.Engine.HistoryLength < 1 {
		errs = append(errs, "engine: history_length must be >= 1")
	}
	if c.Engine.MinDistinctStates < 1 {
		errs = append(errs, "engine: min_distinct_states must be >= 1")
	}
	if c.Engine.MinDistinctStates > c.Engine.HistoryLength {
		errs = append(errs, "engine: min_distinct_states must not exceed history_length")
	}
	if c.Engine.FreezeTimeout.Duration <= 0 {
		errs = append(errs, "engine: freeze_timeout must be positive")
	}
	if !validFeeModes[strings.ToLower(c.Engine.FeeMode)] {
		errs = append(errs, fmt.Sprintf("engine: unknown fee_mode %q (valid: maker, taker)", c.Engine.FeeMode))
	}
	if c.Engine.DefaultFeeRate < 0 || c.Engine.DefaultFeeRate >= 1 {
		errs = append(errs, fmt.Sprintf("engine: default_fee_rate must be in [0, 1), got %v", c.Engine.DefaultFeeRate))
	}
	if c.Engine.BroadcastInterval.Duration <= 0 {
		errs = append(errs, "engine: broadcast_interval must be positive")
	}

	// Bybit
	if c.Bybit.RestURL == "" {
		errs = append(errs, "bybit: rest_url must not be empty")
	}
	if c.Bybit.WsURL == "" {
		errs = append(errs, "bybit: ws_url must not be empty")
	}
	if (c.Bybit.ApiKey != "") != (c.Bybit.ApiSecret != "") {
		errs = append(errs, "bybit: api_key and api_secret must be set together")
	}

	// Notify: token and chat id go together.
	if (c.Notify.TelegramToken != "") != (c.Notify.TelegramChatID != "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	// Flowlog
	if c.Flowlog.Enabled && c.Flowlog.Dir == "" {
		errs = append(errs, "flowlog: dir must not be empty when enabled")
	}
	switch c.Flowlog.Format {
	case "", "json", "txt", "both":
	default:
		errs = append(errs, fmt.Sprintf("flowlog: unknown format %q (valid: json, txt, both)", c.Flowlog.Format))
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if !c.Redis.Enabled {
			errs = append(errs, "server: requires redis to be enabled (snapshots and events are served from it)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
