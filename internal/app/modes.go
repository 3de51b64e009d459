package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/domain"
	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/feed"
	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/server"
	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/server/handler"
	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/server/ws"
)

// MonitorMode runs the detection pipeline headless: market data in, flow
// events out to the notifier and the flow log (plus Redis when enabled).
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)
	if err := a.startPipeline(ctx, g, deps); err != nil {
		return err
	}
	return g.Wait()
}

// FullMode runs the detection pipeline plus the HTTP + WebSocket API server.
// Validation guarantees Redis is enabled in this mode, so the bus and cache
// collaborators are present.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	if err := a.startPipeline(ctx, g, deps); err != nil {
		return err
	}
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// startPipeline boots the core detection pipeline: instrument discovery,
// engine, websocket feed, and the output dispatcher.
func (a *App) startPipeline(ctx context.Context, g *errgroup.Group, deps *Dependencies) error {
	// Discover tradable instruments and build the path catalog.
	instruments, err := deps.Exchange.Instruments(ctx)
	if err != nil {
		return fmt.Errorf("app: fetch instruments: %w", err)
	}
	deps.Engine.Rebuild(instruments)

	symbols := deps.Engine.Symbols()
	a.logger.InfoContext(ctx, "path catalog built",
		slog.Int("instruments", len(instruments)),
		slog.Int("paths", deps.Engine.PathCount()),
		slog.Int("symbols", len(symbols)),
	)
	if len(symbols) == 0 {
		return fmt.Errorf("app: no triangular paths for base coin %q", a.cfg.Engine.BaseCoin)
	}

	// Account balances are informational only; log and carry on.
	if deps.Exchange.HasCredentials() {
		if balances, err := deps.Exchange.WalletBalances(ctx); err != nil {
			a.logger.WarnContext(ctx, "wallet balance fetch failed",
				slog.String("error", err.Error()),
			)
		} else {
			for _, b := range balances {
				a.logger.InfoContext(ctx, "wallet balance",
					slog.String("coin", b.Coin),
					slog.Float64("balance", b.Balance),
				)
			}
		}
	}

	// Engine loop.
	g.Go(func() error {
		return deps.Engine.Run(ctx)
	})

	// Market data feed.
	wsFeed := feed.NewBybitWSFeed(
		a.cfg.Bybit.WsURL,
		symbols,
		func(ctx context.Context, t domain.BookTicker) {
			if err := deps.Engine.HandleTicker(ctx, t); err != nil && ctx.Err() == nil {
				a.logger.WarnContext(ctx, "ticker handoff failed",
					slog.String("symbol", t.Symbol),
					slog.String("error", err.Error()),
				)
			}
		},
		a.logger,
	)
	g.Go(func() error {
		defer wsFeed.Close()
		return wsFeed.Run(ctx)
	})

	// Output dispatcher.
	dispatcher := NewDispatcher(deps, a.logger)
	g.Go(func() error {
		return dispatcher.Run(ctx)
	})

	return nil
}

// startHTTPServer adds the HTTP server and WebSocket hub goroutines to the
// given errgroup. The server is shut down gracefully when the context is
// cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	hub := ws.NewHub(deps.SignalBus, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	}, a.logger)
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
		},
		server.Handlers{
			Health:        handler.NewHealthHandler(a.logger),
			Opportunities: handler.NewOpportunityHandler(deps.OppCache, a.logger),
		},
		hub,
		a.logger,
	)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
