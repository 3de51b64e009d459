package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/domain"
	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/flowlog"
	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/notify"
	"github.com/Infernal1248/Bybit-Triangular-Arbitrage/internal/server/ws"
)

// Dispatcher drains the engine's output channels and fans each item out to
// the notifier, the flow log, and (when Redis is wired) the signal bus and
// the opportunity cache. Delivery failures are logged and never stop the
// loop.
type Dispatcher struct {
	engine interface {
		Events() <-chan domain.FlowEvent
		Snapshots() <-chan domain.Snapshot
	}
	notifier *notify.Notifier
	flowLog  *flowlog.Writer
	bus      domain.SignalBus
	cache    domain.OpportunityCache
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher over the wired dependencies.
func NewDispatcher(deps *Dependencies, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		engine:   deps.Engine,
		notifier: deps.Notifier,
		flowLog:  deps.FlowLog,
		bus:      deps.SignalBus,
		cache:    deps.OppCache,
		logger:   logger.With(slog.String("component", "dispatch")),
	}
}

// Run consumes engine output until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-d.engine.Events():
			if !ok {
				return nil
			}
			d.handleEvent(ctx, ev)
		case snap, ok := <-d.engine.Snapshots():
			if !ok {
				return nil
			}
			d.handleSnapshot(ctx, snap)
		}
	}
}

func (d *Dispatcher) handleEvent(ctx context.Context, ev domain.FlowEvent) {
	d.logger.InfoContext(ctx, "flow event",
		slog.String("kind", string(ev.Kind)),
		slog.String("path", ev.PathID),
		slog.Float64("value", ev.Value),
		slog.String("reason", ev.Reason),
	)

	if d.flowLog != nil {
		if err := d.flowLog.Append(ev); err != nil {
			d.logger.ErrorContext(ctx, "flow log append failed",
				slog.String("error", err.Error()),
			)
		}
	}

	title, message := renderEvent(ev)
	if err := d.notifier.NotifyEvent(ctx, string(ev.Kind), title, message); err != nil {
		d.logger.WarnContext(ctx, "notification failed",
			slog.String("error", err.Error()),
		)
	}

	if d.bus != nil {
		d.publish(ctx, ws.ChannelEvents, ev)
	}
}

func (d *Dispatcher) handleSnapshot(ctx context.Context, snap domain.Snapshot) {
	if d.cache != nil {
		if err := d.cache.SetActive(ctx, snap); err != nil {
			d.logger.WarnContext(ctx, "snapshot cache update failed",
				slog.String("error", err.Error()),
			)
		}
	}
	if d.bus != nil {
		d.publish(ctx, ws.ChannelActive, snap)
	}
}

func (d *Dispatcher) publish(ctx context.Context, channel string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		d.logger.ErrorContext(ctx, "publish marshal failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := d.bus.Publish(ctx, channel, payload); err != nil {
		d.logger.WarnContext(ctx, "publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

// renderEvent builds the notification title and body for a flow event.
func renderEvent(ev domain.FlowEvent) (title, message string) {
	switch ev.Kind {
	case domain.FlowStart:
		title = fmt.Sprintf("Opportunity %.3f%%", ev.Value)
		message = ev.Description
	case domain.FlowEnd:
		title = fmt.Sprintf("Opportunity ended %.3f%%", ev.Value)
		message = fmt.Sprintf("%s lasted %s", ev.PathID, ev.Duration)
		if ev.Reason != "" {
			message += fmt.Sprintf(" (%s)", ev.Reason)
		}
	default:
		title = string(ev.Kind)
		message = ev.Description
	}
	return title, message
}
