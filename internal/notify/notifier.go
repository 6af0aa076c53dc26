// Package notify delivers operator alerts for agent activity. Notifications
// go to all registered senders (Telegram, Discord) and are filtered by event
// type so operators receive only the alerts they care about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Event classifies a notification for filtering.
type Event string

const (
	// EventBurstOpened fires when a burst position is opened.
	EventBurstOpened Event = "burst_opened"
	// EventBurstClosed fires when a burst position is settled.
	EventBurstClosed Event = "burst_closed"
	// EventCycleFailed fires when a scheduled cycle exhausts its retries.
	EventCycleFailed Event = "cycle_failed"
	// EventStaleFeed fires when the keeper contract reports a stale feed.
	EventStaleFeed Event = "stale_feed"
)

// Sender is the interface each notification channel implements.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender.
	Name() string
}

// Notifier dispatches notifications to one or more Senders. It keeps a set
// of allowed event types; Notify only forwards messages whose event is in
// the allowed set. An empty set allows everything.
type Notifier struct {
	senders []Sender
	events  map[Event]bool
	logger  *slog.Logger
}

// New creates a Notifier delivering to the given senders, forwarding only
// the listed events. A nil Notifier is safe to call and drops everything.
func New(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[Event]bool, len(events))
	for _, e := range events {
		allowed[Event(strings.TrimSpace(e))] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify sends a notification to all senders if the event passes the filter.
func (n *Notifier) Notify(ctx context.Context, event Event, title, message string) error {
	if n == nil {
		return nil
	}
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", string(event)),
		)
		return nil
	}

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
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
