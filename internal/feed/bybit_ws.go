// Package feed connects the exchange stream to the engine: it owns the
// WebSocket lifecycle and turns raw frames into engine input.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/domain"
	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/platform/bybit"
)

// reconnectDelay is the pause between reconnection attempts.
const reconnectDelay = 2 * time.Second

// TickerHandler receives each parsed top-of-book update.
type TickerHandler func(ctx context.Context, t domain.BookTicker)

// BybitWSFeed connects to the Bybit public spot stream, subscribes to the
// depth-1 orderbook topics for the given symbols, and invokes the handler on
// each complete top-of-book update. It reconnects on disconnect; each
// reconnect builds a fresh client so stale per-connection state is dropped.
type BybitWSFeed struct {
	wsURL     string
	symbols   []string
	handler   TickerHandler
	logger    *slog.Logger
	closeOnce sync.Once
	done      chan struct{}
}

// NewBybitWSFeed creates a feed for the given symbols.
func NewBybitWSFeed(wsURL string, symbols []string, handler TickerHandler, logger *slog.Logger) *BybitWSFeed {
	return &BybitWSFeed{
		wsURL:   wsURL,
		symbols: symbols,
		handler: handler,
		logger:  logger.With(slog.String("component", "bybit_ws_feed")),
		done:    make(chan struct{}),
	}
}

// Run connects and subscribes, then blocks until ctx is cancelled or the
// feed is closed. Connection failures trigger a reconnect after a short
// delay.
func (f *BybitWSFeed) Run(ctx context.Context) error {
	if len(f.symbols) == 0 {
		f.logger.Info("no symbols to subscribe, exiting")
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		err := f.runConnection(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("bybit ws disconnected, reconnecting", slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

// runConnection drives one connection until it fails or the context ends.
func (f *BybitWSFeed) runConnection(ctx context.Context) error {
	client := bybit.NewWSClient(f.wsURL)
	defer client.Close()

	client.OnBookTicker(func(t domain.BookTicker) {
		if f.handler != nil {
			f.handler(ctx, t)
		}
	})

	if err := client.Connect(ctx); err != nil {
		return err
	}
	if err := client.Subscribe(ctx, f.symbols); err != nil {
		return err
	}
	f.logger.Info("bybit ws subscribed", slog.Int("symbols", len(f.symbols)))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.done:
		return nil
	case err := <-client.Err():
		return err
	}
}

// Close stops the feed.
func (f *BybitWSFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}
