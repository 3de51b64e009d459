// Package notify provides a multi-channel notification system. Notifications
// are dispatched to all registered senders (Telegram, Discord, etc.), can be
// filtered by event type, and are rate limited so a burst of opportunity
// flips does not flood the operator's chat.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders. It maintains a
// set of allowed event types and a minimum interval between regular
// notifications; Notify enforces both, NotifyUrgent bypasses both.
type Notifier struct {
	senders     []Sender
	events      map[string]bool // allowed event types
	minInterval time.Duration
	logger      *slog.Logger

	mu       sync.Mutex
	lastSent time.Time
	now      func() time.Time
}

// NewNotifier creates a Notifier that will deliver to the given senders. Only
// events whose type appears in the events slice will be forwarded by Notify;
// if events is empty, all event types are allowed. minInterval throttles
// regular notifications; zero disables throttling.
func NewNotifier(senders []Sender, events []string, minInterval time.Duration, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders:     senders,
		events:      allowed,
		minInterval: minInterval,
		logger:      logger.With(slog.String("component", "notifier")),
		now:         time.Now,
	}
}

// Notify sends a notification to all senders if the event type is allowed
// and the rate limit permits. A throttled notification is dropped, not
// queued.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}

	n.mu.Lock()
	now := n.now()
	if n.minInterval > 0 && !n.lastSent.IsZero() && now.Sub(n.lastSent) < n.minInterval {
		n.mu.Unlock()
		n.logger.DebugContext(ctx, "notification throttled",
			slog.String("event", event),
			slog.String("title", title),
		)
		return nil
	}
	n.lastSent = now
	n.mu.Unlock()

	return n.dispatch(ctx, title, message)
}

// NotifyEvent sends a notification for a state transition. The event filter
// still applies, but the rate limit does not: transition notifications are
// never dropped, though they do reset the throttle window so routine
// notifications back off after a burst of flips.
func (n *Notifier) NotifyEvent(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}

	n.mu.Lock()
	n.lastSent = n.now()
	n.mu.Unlock()

	return n.dispatch(ctx, title, message)
}

// NotifyUrgent sends a notification to all senders regardless of event type
// and rate limit. Urgent sends do not count against the throttle window, so
// a routine notification immediately afterwards is still possible.
func (n *Notifier) NotifyUrgent(ctx context.Context, title, message string) error {
	return n.dispatch(ctx, title, message)
}

// dispatch iterates over all senders and sends the notification. Errors from
// individual senders are collected and returned as a combined error; a single
// sender failure does not prevent delivery to the remaining senders.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		} else {
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("title", title),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
