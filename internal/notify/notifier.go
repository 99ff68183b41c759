// Package notify implements the reminder scheduler: a single cooperative
// loop that computes due rooms every tick and dispatches reminders through
// an injected sender, deduplicated by notification records in the store.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/meetsburg/internal/persistence"
)

// Sender is the delivery capability injected at bootstrap. It is assumed
// idempotent-tolerant but not deduplicating: dedup is entirely the
// notifier's responsibility via notification records.
type Sender interface {
	Send(ctx context.Context, recipientID, text string) error
}

// Store captures the persistence operations the notifier needs.
type Store interface {
	DayAheadRooms(ctx context.Context, now time.Time, cutoffHour int) ([]persistence.DueRoom, error)
	RoomsStartingWithin(ctx context.Context, now time.Time, window time.Duration) ([]persistence.DueRoom, error)
	ListParticipants(ctx context.Context, roomID string) ([]persistence.Participation, error)
	IsNotificationSent(ctx context.Context, roomID string, kind persistence.NotificationKind) (bool, error)
	MarkNotificationSent(ctx context.Context, roomID string, kind persistence.NotificationKind, sentAt time.Time) (bool, error)
}

// Config holds the notifier's timing knobs.
type Config struct {
	// Tick is the loop interval.
	Tick time.Duration
	// CutoffHour is the local hour at which the day-ahead set switches to
	// tomorrow-only.
	CutoffHour int
	// ImminentWindow is how far ahead the imminent set looks.
	ImminentWindow time.Duration
}

// DefaultConfig returns the baseline timing: a 60 second tick, a 12:00
// cutoff, and a 30 minute imminent window.
func DefaultConfig() Config {
	return Config{Tick: time.Minute, CutoffHour: 12, ImminentWindow: 30 * time.Minute}
}

func (c Config) normalized() Config {
	if c.Tick <= 0 {
		c.Tick = time.Minute
	}
	if c.CutoffHour < 0 || c.CutoffHour > 23 {
		c.CutoffHour = 12
	}
	if c.ImminentWindow <= 0 {
		c.ImminentWindow = 30 * time.Minute
	}
	return c
}

// Notifier periodically reminds participants and owners ahead of their
// rooms. It runs independently of booking requests and touches only the
// store and the sender.
type Notifier struct {
	store  Store
	sender Sender
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

// NewNotifier constructs a notifier with the provided dependencies.
func NewNotifier(store Store, sender Sender, cfg Config, now func() time.Time, logger *slog.Logger) *Notifier {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{store: store, sender: sender, cfg: cfg.normalized(), now: now, logger: logger}
}

// Run loops until the context ends. Every error inside a tick is caught and
// logged; the loop always continues after its normal delay. One tick
// completes before the next begins.
func (n *Notifier) Run(ctx context.Context) error {
	n.logger.InfoContext(ctx, "notifier started",
		"tick", n.cfg.Tick, "cutoff_hour", n.cfg.CutoffHour, "imminent_window", n.cfg.ImminentWindow)

	ticker := time.NewTicker(n.cfg.Tick)
	defer ticker.Stop()

	for {
		n.RunTick(ctx)

		select {
		case <-ctx.Done():
			n.logger.InfoContext(ctx, "notifier stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunTick performs one compute-and-dispatch pass for both notification
// kinds. Store failures abort only the affected pass, never the loop.
func (n *Notifier) RunTick(ctx context.Context) {
	now := n.now()

	if err := n.dispatchDayAhead(ctx, now); err != nil {
		n.logger.ErrorContext(ctx, "day-ahead pass failed", "error", err)
	}
	if err := n.dispatchImminent(ctx, now); err != nil {
		n.logger.ErrorContext(ctx, "imminent pass failed", "error", err)
	}
}

func (n *Notifier) dispatchDayAhead(ctx context.Context, now time.Time) error {
	due, err := n.store.DayAheadRooms(ctx, now, n.cfg.CutoffHour)
	if err != nil {
		return fmt.Errorf("computing day-ahead set: %w", err)
	}

	for _, room := range due {
		n.dispatchRoom(ctx, now, room, persistence.KindDayAhead)
	}
	return nil
}

func (n *Notifier) dispatchImminent(ctx context.Context, now time.Time) error {
	due, err := n.store.RoomsStartingWithin(ctx, now, n.cfg.ImminentWindow)
	if err != nil {
		return fmt.Errorf("computing imminent set: %w", err)
	}

	for _, room := range due {
		n.dispatchRoom(ctx, now, room, persistence.KindThirtyMinutes)
	}
	return nil
}

// dispatchRoom sends one reminder batch for a due room. The notification
// record is written only when every recipient succeeded; a partial failure
// leaves the room due, so a later tick retries the whole batch and
// recipients who already got the message may get it again. That
// at-least-once behavior is deliberate: there is no per-recipient delivery
// record.
func (n *Notifier) dispatchRoom(ctx context.Context, now time.Time, room persistence.DueRoom, kind persistence.NotificationKind) {
	logger := n.logger.With("room_id", room.ID, "kind", string(kind))

	sent, err := n.store.IsNotificationSent(ctx, room.ID, kind)
	if err != nil {
		logger.ErrorContext(ctx, "failed to check notification record", "error", err)
		return
	}
	if sent {
		return
	}

	recipients, err := n.recipients(ctx, room)
	if err != nil {
		logger.ErrorContext(ctx, "failed to resolve recipients", "error", err)
		return
	}

	text := formatReminder(room, kind, now)

	allDelivered := true
	for _, recipient := range recipients {
		if err := n.sender.Send(ctx, recipient, text); err != nil {
			// Per-recipient delivery failures never block the rest of the
			// batch and never surface beyond this log line.
			logger.ErrorContext(ctx, "delivery failed", "recipient_id", recipient, "error", err)
			allDelivered = false
		}
	}

	if !allDelivered {
		return
	}

	if _, err := n.store.MarkNotificationSent(ctx, room.ID, kind, now); err != nil {
		logger.ErrorContext(ctx, "failed to mark notification sent", "error", err)
		return
	}
	logger.InfoContext(ctx, "reminder dispatched", "recipients", len(recipients))
}

// recipients returns the room's participants plus the meet owner, deduped,
// in join order with the owner appended last when not already present.
func (n *Notifier) recipients(ctx context.Context, room persistence.DueRoom) ([]string, error) {
	participants, err := n.store.ListParticipants(ctx, room.ID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(participants)+1)
	recipients := make([]string, 0, len(participants)+1)
	for _, p := range participants {
		if _, ok := seen[p.UserID]; ok {
			continue
		}
		seen[p.UserID] = struct{}{}
		recipients = append(recipients, p.UserID)
	}
	if _, ok := seen[room.MeetOwnerID]; !ok && room.MeetOwnerID != "" {
		recipients = append(recipients, room.MeetOwnerID)
	}

	return recipients, nil
}

func formatReminder(room persistence.DueRoom, kind persistence.NotificationKind, now time.Time) string {
	dayLabel := "Today"
	if room.MeetDate.After(dayStart(now)) {
		dayLabel = "Tomorrow"
	}

	switch kind {
	case persistence.KindThirtyMinutes:
		return fmt.Sprintf(
			"Your meeting starts soon!\n\n%s\nRoom %d\n%s (%s)\nIn 30 minutes (%s)\n%s",
			room.MeetTitle,
			room.Number,
			dayLabel,
			room.MeetDate.Format("02.01.2006"),
			room.StartsAt.Format("15:04"),
			room.MeetDescription,
		)
	default:
		return fmt.Sprintf(
			"Meeting reminder\n\n%s\nRoom %d\n%s (%s)\nAt %s\n%s",
			room.MeetTitle,
			room.Number,
			dayLabel,
			room.MeetDate.Format("02.01.2006"),
			room.StartsAt.Format("15:04"),
			room.MeetDescription,
		)
	}
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
