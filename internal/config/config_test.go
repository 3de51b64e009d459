package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "full"

[engine]
base_coin = "USDC"
profit_threshold = 0.1
freeze_timeout = "45s"

[redis]
enabled = true

[server]
enabled = true
port = 9000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Engine.BaseCoin != "USDC" {
		t.Errorf("base_coin = %s, want USDC", cfg.Engine.BaseCoin)
	}
	if cfg.Engine.ProfitThreshold != 0.1 {
		t.Errorf("profit_threshold = %v, want 0.1", cfg.Engine.ProfitThreshold)
	}
	if cfg.Engine.FreezeTimeout.Duration != 45*time.Second {
		t.Errorf("freeze_timeout = %v, want 45s", cfg.Engine.FreezeTimeout.Duration)
	}
	// Untouched fields keep their defaults.
	if cfg.Engine.MinTicks != 3 {
		t.Errorf("min_ticks = %d, want default 3", cfg.Engine.MinTicks)
	}
	if cfg.Bybit.RestURL != "https://api.bybit.com" {
		t.Errorf("rest_url = %s, want default", cfg.Bybit.RestURL)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("ARBBOT_ENGINE_BASE_COIN", "BTC")
	t.Setenv("ARBBOT_ENGINE_MIN_TICKS", "5")
	t.Setenv("ARBBOT_FLOW_FILTERS_ENABLED", "false")
	t.Setenv("ARBBOT_BYBIT_API_KEY", "k")
	t.Setenv("ARBBOT_BYBIT_API_SECRET", "s")
	t.Setenv("ARBBOT_NOTIFY_EVENTS", "start, end ,")
	t.Setenv("ARBBOT_NOTIFY_MIN_INTERVAL", "10s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Engine.BaseCoin != "BTC" {
		t.Errorf("base_coin = %s, want BTC", cfg.Engine.BaseCoin)
	}
	if cfg.Engine.MinTicks != 5 {
		t.Errorf("min_ticks = %d, want 5", cfg.Engine.MinTicks)
	}
	if cfg.Engine.FiltersEnabled {
		t.Error("filters_enabled should be overridden to false")
	}
	if cfg.Bybit.ApiKey != "k" || cfg.Bybit.ApiSecret != "s" {
		t.Error("bybit credentials not overridden")
	}
	if len(cfg.Notify.Events) != 2 || cfg.Notify.Events[0] != "start" || cfg.Notify.Events[1] != "end" {
		t.Errorf("events = %v, want [start end]", cfg.Notify.Events)
	}
	if cfg.Notify.MinInterval.Duration != 10*time.Second {
		t.Errorf("min_interval = %v, want 10s", cfg.Notify.MinInterval.Duration)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"
	cfg.Engine.MinTicks = 0
	cfg.Engine.FeeMode = "vip"
	cfg.Engine.MinDistinctStates = 99
	cfg.Bybit.ApiKey = "key-without-secret"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"unknown mode", "min_ticks", "fee_mode", "history_length", "api_secret"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q:\n%v", want, err)
		}
	}
}

func TestServerRequiresRedis(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Enabled = true
	cfg.Redis.Enabled = false

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "requires redis") {
		t.Errorf("expected server/redis coupling error, got %v", err)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Bybit.ApiKey = "key"
	cfg.Bybit.ApiSecret = "secret"
	cfg.Notify.TelegramToken = "token"
	cfg.Redis.Password = "pw"

	red := RedactedConfig(&cfg)
	if red.Bybit.ApiKey != "***" || red.Bybit.ApiSecret != "***" ||
		red.Notify.TelegramToken != "***" || red.Redis.Password != "***" {
		t.Error("secrets not redacted")
	}
	if cfg.Bybit.ApiSecret != "secret" {
		t.Error("original config must not be mutated")
	}
	// Empty secrets stay empty rather than becoming "***".
	if red.Notify.DiscordWebhookURL != "" {
		t.Errorf("empty secret redacted to %q", red.Notify.DiscordWebhookURL)
	}
}
