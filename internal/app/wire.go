package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/cache/redis"
	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/config"
	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/domain"
	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/engine"
	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/flowlog"
	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/notify"
	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/platform/bybit"
)

// Dependencies bundles every collaborator that the application modes need to
// operate. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	Exchange *bybit.Client
	Engine   *engine.Engine
	Notifier *notify.Notifier
	FlowLog  *flowlog.Writer // nil when flow logging is disabled

	// Redis-backed collaborators; nil when Redis is disabled.
	SignalBus domain.SignalBus
	OppCache  domain.OpportunityCache
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Bybit REST client ---
	deps.Exchange = bybit.NewClient(cfg.Bybit.RestURL, cfg.Bybit.ApiKey, cfg.Bybit.ApiSecret)

	// --- Fee schedule ---
	// With credentials the live per-symbol schedule is fetched once at
	// startup; without them (or on fetch failure) the engine falls back to
	// its configured default rate for every leg.
	var fees domain.FeeSource
	if deps.Exchange.HasCredentials() {
		schedule, err := deps.Exchange.FeeRates(ctx)
		if err != nil {
			logger.Warn("wire: fee schedule fetch failed, using default rate",
				slog.Float64("default_fee_rate", cfg.Engine.DefaultFeeRate),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("wire: fee schedule loaded", slog.Int("symbols", len(schedule)))
			fees = schedule
		}
	} else {
		logger.Info("wire: no credentials, using default fee rate",
			slog.Float64("default_fee_rate", cfg.Engine.DefaultFeeRate),
		)
	}

	// --- Detection engine ---
	deps.Engine = engine.New(engineConfig(cfg.Engine), fees, logger)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, cfg.Notify.MinInterval.Duration, logger)

	// --- Flow log ---
	if cfg.Flowlog.Enabled {
		fl, err := flowlog.NewWriter(cfg.Flowlog.Dir, cfg.Flowlog.Format, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: flowlog: %w", err)
		}
		closers = append(closers, func() { _ = fl.Close() })
		deps.FlowLog = fl
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.OppCache = redis.NewOpportunityCache(redisClient)
	}

	return deps, cleanup, nil
}

// engineConfig translates the TOML engine section into the engine's own
// config type.
func engineConfig(c config.EngineConfig) engine.Config {
	return engine.Config{
		BaseCoin:               c.BaseCoin,
		ProfitThreshold:        c.ProfitThreshold,
		MinTicks:               c.MinTicks,
		HistoryLength:          c.HistoryLength,
		MinDistinctStates:      c.MinDistinctStates,
		FreezeTimeout:          c.FreezeTimeout.Duration,
		FreezeRequireAllLegs:   c.FreezeRequireAllLegs,
		RequireMovementToStart: c.RequireMovementToStart,
		RequireMovementToKeep:  c.RequireMovementToKeep,
		FeeMode:                domain.FeeMode(strings.ToLower(c.FeeMode)),
		DefaultFeeRate:         c.DefaultFeeRate,
		FiltersEnabled:         c.FiltersEnabled,
		BroadcastInterval:      c.BroadcastInterval.Duration,
	}
}
