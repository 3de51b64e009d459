package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Engine ──
	setStr(&cfg.Engine.BaseCoin, "ARBBOT_ENGINE_BASE_COIN")
	setFloat64(&cfg.Engine.ProfitThreshold, "ARBBOT_ENGINE_PROFIT_THRESHOLD")
	setInt(&cfg.Engine.MinTicks, "ARBBOT_ENGINE_MIN_TICKS")
	setInt(&cfg.Engine.HistoryLength, "ARBBOT_ENGINE_HISTORY_LENGTH")
	setInt(&cfg.Engine.MinDistinctStates, "ARBBOT_ENGINE_MIN_DISTINCT_STATES")
	setDuration(&cfg.Engine.FreezeTimeout, "ARBBOT_ENGINE_FREEZE_TIMEOUT")
	setBool(&cfg.Engine.FreezeRequireAllLegs, "ARBBOT_ENGINE_FREEZE_REQUIRE_ALL_LEGS")
	setBool(&cfg.Engine.RequireMovementToStart, "ARBBOT_ENGINE_REQUIRE_MOVEMENT_TO_START")
	setBool(&cfg.Engine.RequireMovementToKeep, "ARBBOT_ENGINE_REQUIRE_MOVEMENT_TO_KEEP")
	setStr(&cfg.Engine.FeeMode, "ARBBOT_ENGINE_FEE_MODE")
	setFloat64(&cfg.Engine.DefaultFeeRate, "ARBBOT_ENGINE_DEFAULT_FEE_RATE")
	setBool(&cfg.Engine.FiltersEnabled, "ARBBOT_FLOW_FILTERS_ENABLED")
	setDuration(&cfg.Engine.BroadcastInterval, "ARBBOT_ENGINE_BROADCAST_INTERVAL")

	// ── Bybit ──
	setStr(&cfg.Bybit.RestURL, "ARBBOT_BYBIT_REST_URL")
	setStr(&cfg.Bybit.WsURL, "ARBBOT_BYBIT_WS_URL")
	setStr(&cfg.Bybit.ApiKey, "ARBBOT_BYBIT_API_KEY")
	setStr(&cfg.Bybit.ApiSecret, "ARBBOT_BYBIT_API_SECRET")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ARBBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ARBBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ARBBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ARBBOT_NOTIFY_EVENTS")
	setDuration(&cfg.Notify.MinInterval, "ARBBOT_NOTIFY_MIN_INTERVAL")

	// ── Flowlog ──
	setBool(&cfg.Flowlog.Enabled, "ARBBOT_FLOWLOG_ENABLED")
	setStr(&cfg.Flowlog.Dir, "ARBBOT_FLOWLOG_DIR")
	setStr(&cfg.Flowlog.Format, "ARBBOT_FLOWLOG_FORMAT")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "ARBBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "ARBBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ARBBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ARBBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ARBBOT_REDIS_TLS_ENABLED")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ARBBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ARBBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ARBBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ARBBOT_SERVER_API_KEY")

	// ── Top-level ──
	setStr(&cfg.Mode, "ARBBOT_MODE")
	setStr(&cfg.LogLevel, "ARBBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
