package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/meetsburg/internal/persistence"
)

// NotificationRepository implements persistence.NotificationRepository on
// SQLite.
type NotificationRepository struct {
	pool  *ConnectionPool
	retry RetryConfig
}

// NewNotificationRepository creates a notification repository sharing the
// given pool.
func NewNotificationRepository(pool *ConnectionPool, retry RetryConfig) *NotificationRepository {
	return &NotificationRepository{pool: pool, retry: retry}
}

// DayAheadRooms computes the day-ahead due set. At or after the cutoff hour
// only tomorrow's rooms are due. Before the cutoff the set also contains
// today's rooms whose start has not yet passed, which covers the first tick
// of a scheduler started before the cutoff.
func (r *NotificationRepository) DayAheadRooms(ctx context.Context, now time.Time, cutoffHour int) ([]persistence.DueRoom, error) {
	tomorrow, err := r.dueRoomsOnDate(ctx, now.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	if now.Hour() >= cutoffHour {
		return tomorrow, nil
	}

	today, err := r.dueRoomsOnDate(ctx, now)
	if err != nil {
		return nil, err
	}

	due := make([]persistence.DueRoom, 0, len(today)+len(tomorrow))
	for _, room := range today {
		if room.StartsAt.After(now) {
			due = append(due, room)
		}
	}
	due = append(due, tomorrow...)
	return due, nil
}

// RoomsStartingWithin returns today's rooms starting in (now, now+window].
func (r *NotificationRepository) RoomsStartingWithin(ctx context.Context, now time.Time, window time.Duration) ([]persistence.DueRoom, error) {
	today, err := r.dueRoomsOnDate(ctx, now)
	if err != nil {
		return nil, err
	}

	deadline := now.Add(window)
	var due []persistence.DueRoom
	for _, room := range today {
		if room.StartsAt.After(now) && !room.StartsAt.After(deadline) {
			due = append(due, room)
		}
	}
	return due, nil
}

// IsNotificationSent reports whether the (room, kind) pair was dispatched.
func (r *NotificationRepository) IsNotificationSent(ctx context.Context, roomID string, kind persistence.NotificationKind) (bool, error) {
	var one int
	err := r.pool.DB().QueryRowContext(ctx,
		`SELECT 1 FROM notification_records WHERE room_id = ? AND kind = ?`,
		roomID, string(kind)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapError(err)
	}
	return true, nil
}

// MarkNotificationSent records the pair as dispatched. Once written the
// record is never written again: a duplicate mark is a no-op reporting
// false.
func (r *NotificationRepository) MarkNotificationSent(ctx context.Context, roomID string, kind persistence.NotificationKind, sentAt time.Time) (bool, error) {
	var inserted bool
	err := withRetry(ctx, r.retry, func() error {
		result, err := r.pool.DB().ExecContext(ctx,
			`INSERT OR IGNORE INTO notification_records (room_id, kind, sent_at) VALUES (?, ?, ?)`,
			roomID, string(kind), formatTime(sentAt))
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		inserted = affected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// dueRoomsOnDate returns active rooms of active meets dated on the same
// calendar day as ref, with their meet context attached.
func (r *NotificationRepository) dueRoomsOnDate(ctx context.Context, ref time.Time) ([]persistence.DueRoom, error) {
	rows, err := r.pool.DB().QueryContext(ctx,
		`SELECT r.id, r.meet_id, r.room_number, r.starts_at, r.ends_at, r.capacity, r.occupancy, r.is_active,
		        m.title, m.date, m.description, m.owner_id
		 FROM rooms r
		 JOIN meets m ON m.id = r.meet_id
		 WHERE m.date = ? AND m.is_active = 1 AND r.is_active = 1
		 ORDER BY r.starts_at ASC, r.room_number ASC`, formatDate(ref))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var due []persistence.DueRoom
	for rows.Next() {
		var (
			d           persistence.DueRoom
			startsAtStr string
			endsAtStr   string
			dateStr     string
			isActive    int
		)
		err := rows.Scan(
			&d.ID, &d.MeetID, &d.Number, &startsAtStr, &endsAtStr, &d.Capacity, &d.Occupancy, &isActive,
			&d.MeetTitle, &dateStr, &d.MeetDescription, &d.MeetOwnerID,
		)
		if err != nil {
			return nil, mapError(err)
		}

		d.IsActive = isActive != 0
		if d.StartsAt, err = parseTime(startsAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse starts_at: %w", err)
		}
		if d.EndsAt, err = parseTime(endsAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse ends_at: %w", err)
		}
		if d.MeetDate, err = parseDate(dateStr); err != nil {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}

		due = append(due, d)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return due, nil
}
