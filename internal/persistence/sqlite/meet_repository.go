package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/meetsburg/internal/persistence"
)

// MeetRepository implements persistence.MeetRepository on SQLite.
type MeetRepository struct {
	pool  *ConnectionPool
	retry RetryConfig
}

// NewMeetRepository creates a meet repository sharing the given pool.
func NewMeetRepository(pool *ConnectionPool, retry RetryConfig) *MeetRepository {
	return &MeetRepository{pool: pool, retry: retry}
}

// CreateMeetWithRooms inserts the meet row and all room rows as one
// all-or-nothing transaction.
func (r *MeetRepository) CreateMeetWithRooms(ctx context.Context, meet persistence.Meet, rooms []persistence.Room) error {
	if meet.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if len(rooms) == 0 {
		return persistence.ErrConstraintViolation
	}

	return withRetry(ctx, r.retry, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			var passwordHash sql.NullString
			if meet.PasswordHash != nil {
				passwordHash = sql.NullString{String: *meet.PasswordHash, Valid: true}
			}

			_, err := tx.ExecContext(ctx, `
				INSERT INTO meets (id, owner_id, title, date, description, starts_at, password_hash, is_active, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)`,
				meet.ID,
				meet.OwnerID,
				meet.Title,
				formatDate(meet.Date),
				meet.Description,
				formatTime(meet.StartsAt),
				passwordHash,
				formatTime(meet.CreatedAt),
			)
			if err != nil {
				return err
			}

			for _, room := range rooms {
				_, err := tx.ExecContext(ctx, `
					INSERT INTO rooms (id, meet_id, room_number, starts_at, ends_at, capacity, occupancy, is_active)
					VALUES (?, ?, ?, ?, ?, ?, 0, 1)`,
					room.ID,
					meet.ID,
					room.Number,
					formatTime(room.StartsAt),
					formatTime(room.EndsAt),
					room.Capacity,
				)
				if err != nil {
					return err
				}
			}

			return nil
		})
	})
}

const meetColumns = `id, owner_id, title, date, description, starts_at, password_hash, is_active, created_at`

// GetMeet returns the meet when it is logically active: flagged active and
// dated today or later.
func (r *MeetRepository) GetMeet(ctx context.Context, id string) (persistence.Meet, error) {
	meet, err := r.GetMeetIncludingInactive(ctx, id)
	if err != nil {
		return persistence.Meet{}, err
	}
	if !meetLogicallyActive(meet, time.Now()) {
		return persistence.Meet{}, persistence.ErrNotFound
	}
	return meet, nil
}

// GetMeetIncludingInactive returns the meet regardless of its active flag.
func (r *MeetRepository) GetMeetIncludingInactive(ctx context.Context, id string) (persistence.Meet, error) {
	if id == "" {
		return persistence.Meet{}, persistence.ErrNotFound
	}

	row := r.pool.DB().QueryRowContext(ctx,
		`SELECT `+meetColumns+` FROM meets WHERE id = ?`, id)

	meet, err := scanMeet(row)
	if err != nil {
		return persistence.Meet{}, mapError(err)
	}
	return meet, nil
}

// ListMeetsByOwner returns the owner's active meets, newest first.
func (r *MeetRepository) ListMeetsByOwner(ctx context.Context, ownerID string) ([]persistence.Meet, error) {
	rows, err := r.pool.DB().QueryContext(ctx,
		`SELECT `+meetColumns+` FROM meets
		 WHERE owner_id = ? AND is_active = 1
		 ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var meets []persistence.Meet
	for rows.Next() {
		meet, err := scanMeet(rows)
		if err != nil {
			return nil, mapError(err)
		}
		meets = append(meets, meet)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return meets, nil
}

// SoftDeleteMeet flips the active flag when the requester owns the meet.
// A miss (wrong owner, unknown id, already deleted) reports false.
func (r *MeetRepository) SoftDeleteMeet(ctx context.Context, meetID, requesterID string) (bool, error) {
	var deleted bool
	err := withRetry(ctx, r.retry, func() error {
		result, err := r.pool.DB().ExecContext(ctx,
			`UPDATE meets SET is_active = 0 WHERE id = ? AND owner_id = ? AND is_active = 1`,
			meetID, requesterID)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		deleted = affected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeet(row rowScanner) (persistence.Meet, error) {
	var (
		meet         persistence.Meet
		dateStr      string
		startsAtStr  string
		createdAtStr string
		passwordHash sql.NullString
		isActive     int
	)

	err := row.Scan(
		&meet.ID,
		&meet.OwnerID,
		&meet.Title,
		&dateStr,
		&meet.Description,
		&startsAtStr,
		&passwordHash,
		&isActive,
		&createdAtStr,
	)
	if err != nil {
		return persistence.Meet{}, err
	}

	if passwordHash.Valid {
		hash := passwordHash.String
		meet.PasswordHash = &hash
	}
	meet.IsActive = isActive != 0

	if meet.Date, err = parseDate(dateStr); err != nil {
		return persistence.Meet{}, fmt.Errorf("failed to parse date: %w", err)
	}
	if meet.StartsAt, err = parseTime(startsAtStr); err != nil {
		return persistence.Meet{}, fmt.Errorf("failed to parse starts_at: %w", err)
	}
	if meet.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.Meet{}, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return meet, nil
}

// meetLogicallyActive applies the activity invariant: flag set and date
// today or later.
func meetLogicallyActive(meet persistence.Meet, now time.Time) bool {
	if !meet.IsActive {
		return false
	}
	today, _ := parseDate(formatDate(now))
	return !meet.Date.Before(today)
}
