package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/meetsburg/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository on SQLite.
type RoomRepository struct {
	pool  *ConnectionPool
	retry RetryConfig
	now   func() time.Time
}

// NewRoomRepository creates a room repository sharing the given pool.
func NewRoomRepository(pool *ConnectionPool, retry RetryConfig) *RoomRepository {
	return &RoomRepository{pool: pool, retry: retry, now: time.Now}
}

const roomColumns = `id, meet_id, room_number, starts_at, ends_at, capacity, occupancy, is_active`

// ListRoomsOfMeet returns the meet's rooms ordered by room number.
func (r *RoomRepository) ListRoomsOfMeet(ctx context.Context, meetID string) ([]persistence.Room, error) {
	rows, err := r.pool.DB().QueryContext(ctx,
		`SELECT `+roomColumns+` FROM rooms
		 WHERE meet_id = ? AND is_active = 1
		 ORDER BY room_number ASC`, meetID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, mapError(err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return rooms, nil
}

// JoinRoom reserves a slot for the user. The whole protocol runs inside one
// transaction serialized by the engine, and the occupancy bump is a
// conditional update that only matches while a slot remains, so two
// concurrent callers can never both take the last slot.
func (r *RoomRepository) JoinRoom(ctx context.Context, roomID, userID, displayName string) (persistence.JoinResult, error) {
	if roomID == "" || userID == "" {
		return persistence.JoinResult{}, persistence.ErrNotFound
	}

	var result persistence.JoinResult
	err := withRetry(ctx, r.retry, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			var capacity, occupancy int
			err := tx.QueryRowContext(ctx,
				`SELECT capacity, occupancy FROM rooms WHERE id = ? AND is_active = 1`,
				roomID).Scan(&capacity, &occupancy)
			if errors.Is(err, sql.ErrNoRows) {
				return persistence.ErrNotFound
			}
			if err != nil {
				return err
			}

			var one int
			err = tx.QueryRowContext(ctx,
				`SELECT 1 FROM participations WHERE room_id = ? AND user_id = ?`,
				roomID, userID).Scan(&one)
			if err == nil {
				result = persistence.JoinResult{Outcome: persistence.AlreadyJoined, Occupancy: occupancy, Capacity: capacity}
				return nil
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return err
			}

			res, err := tx.ExecContext(ctx,
				`UPDATE rooms SET occupancy = occupancy + 1 WHERE id = ? AND occupancy < capacity`,
				roomID)
			if err != nil {
				return err
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			if affected == 0 {
				result = persistence.JoinResult{Outcome: persistence.Full, Occupancy: occupancy, Capacity: capacity}
				return nil
			}

			_, err = tx.ExecContext(ctx,
				`INSERT INTO participations (room_id, user_id, display_name, joined_at) VALUES (?, ?, ?, ?)`,
				roomID, userID, displayName, formatTime(r.now()))
			if err != nil {
				return err
			}

			result = persistence.JoinResult{Outcome: persistence.Joined, Occupancy: occupancy + 1, Capacity: capacity}
			return nil
		})
	})
	if err != nil {
		return persistence.JoinResult{}, err
	}

	return result, nil
}

// ListParticipants returns the room's participations in join order.
func (r *RoomRepository) ListParticipants(ctx context.Context, roomID string) ([]persistence.Participation, error) {
	rows, err := r.pool.DB().QueryContext(ctx,
		`SELECT room_id, user_id, display_name, joined_at FROM participations
		 WHERE room_id = ?
		 ORDER BY joined_at ASC, rowid ASC`, roomID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var participants []persistence.Participation
	for rows.Next() {
		var (
			p           persistence.Participation
			joinedAtStr string
		)
		if err := rows.Scan(&p.RoomID, &p.UserID, &p.DisplayName, &joinedAtStr); err != nil {
			return nil, mapError(err)
		}
		if p.JoinedAt, err = parseTime(joinedAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse joined_at: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return participants, nil
}

// ListUserBookings returns the user's joined rooms across active meets,
// newest join first.
func (r *RoomRepository) ListUserBookings(ctx context.Context, userID string) ([]persistence.Booking, error) {
	rows, err := r.pool.DB().QueryContext(ctx,
		`SELECT m.id, m.title, m.date, m.starts_at,
		        r.id, r.room_number, r.starts_at, r.ends_at,
		        p.joined_at
		 FROM participations p
		 JOIN rooms r ON r.id = p.room_id
		 JOIN meets m ON m.id = r.meet_id
		 WHERE p.user_id = ? AND m.is_active = 1 AND r.is_active = 1
		 ORDER BY p.joined_at DESC, p.rowid DESC`, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var bookings []persistence.Booking
	for rows.Next() {
		var (
			b            persistence.Booking
			dateStr      string
			meetStartStr string
			roomStartStr string
			roomEndStr   string
			joinedAtStr  string
		)
		err := rows.Scan(
			&b.MeetID, &b.MeetTitle, &dateStr, &meetStartStr,
			&b.RoomID, &b.RoomNumber, &roomStartStr, &roomEndStr,
			&joinedAtStr,
		)
		if err != nil {
			return nil, mapError(err)
		}

		if b.MeetDate, err = parseDate(dateStr); err != nil {
			return nil, fmt.Errorf("failed to parse date: %w", err)
		}
		if b.MeetStartsAt, err = parseTime(meetStartStr); err != nil {
			return nil, fmt.Errorf("failed to parse meet starts_at: %w", err)
		}
		if b.RoomStartsAt, err = parseTime(roomStartStr); err != nil {
			return nil, fmt.Errorf("failed to parse room starts_at: %w", err)
		}
		if b.RoomEndsAt, err = parseTime(roomEndStr); err != nil {
			return nil, fmt.Errorf("failed to parse room ends_at: %w", err)
		}
		if b.JoinedAt, err = parseTime(joinedAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse joined_at: %w", err)
		}

		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return bookings, nil
}

func scanRoom(row rowScanner) (persistence.Room, error) {
	var (
		room        persistence.Room
		startsAtStr string
		endsAtStr   string
		isActive    int
	)

	err := row.Scan(
		&room.ID,
		&room.MeetID,
		&room.Number,
		&startsAtStr,
		&endsAtStr,
		&room.Capacity,
		&room.Occupancy,
		&isActive,
	)
	if err != nil {
		return persistence.Room{}, err
	}

	room.IsActive = isActive != 0
	if room.StartsAt, err = parseTime(startsAtStr); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse starts_at: %w", err)
	}
	if room.EndsAt, err = parseTime(endsAtStr); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to parse ends_at: %w", err)
	}

	return room, nil
}
