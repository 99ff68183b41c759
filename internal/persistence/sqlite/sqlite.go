package sqlite

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/example/meetsburg/internal/persistence"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339
)

var (
	_ persistence.MeetRepository         = (*MeetRepository)(nil)
	_ persistence.RoomRepository         = (*RoomRepository)(nil)
	_ persistence.NotificationRepository = (*NotificationRepository)(nil)
)

// Storage bundles the SQLite-backed repositories behind one lifecycle:
// open at startup, migrate once, close at shutdown.
type Storage struct {
	pool *ConnectionPool

	Meets         *MeetRepository
	Rooms         *RoomRepository
	Notifications *NotificationRepository
}

// Open creates the storage for the given database path. The path is
// decorated with the pragmas the store relies on (foreign keys, WAL, a
// short engine-level busy timeout below the retry delay).
func Open(path string, retry RetryConfig) (*Storage, error) {
	pool, err := NewConnectionPool(DSN(path))
	if err != nil {
		return nil, err
	}

	retry = retry.normalized()
	return &Storage{
		pool:          pool,
		Meets:         NewMeetRepository(pool, retry),
		Rooms:         NewRoomRepository(pool, retry),
		Notifications: NewNotificationRepository(pool, retry),
	}, nil
}

// DSN renders a file DSN with the store's pragmas applied. Paths already
// carrying query parameters are passed through untouched.
func DSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "busy_timeout(50)")
	return "file:" + path + "?" + params.Encode()
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping verifies the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates the schema. It is idempotent and safe to run on every
// startup.
func (s *Storage) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS meets (
			id            TEXT PRIMARY KEY,
			owner_id      TEXT NOT NULL,
			title         TEXT NOT NULL,
			date          TEXT NOT NULL,
			description   TEXT NOT NULL,
			starts_at     TEXT NOT NULL,
			password_hash TEXT,
			is_active     INTEGER NOT NULL DEFAULT 1,
			created_at    TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS rooms (
			id          TEXT PRIMARY KEY,
			meet_id     TEXT NOT NULL REFERENCES meets(id) ON DELETE CASCADE,
			room_number INTEGER NOT NULL,
			starts_at   TEXT NOT NULL,
			ends_at     TEXT NOT NULL,
			capacity    INTEGER NOT NULL CHECK (capacity > 0),
			occupancy   INTEGER NOT NULL DEFAULT 0
				CHECK (occupancy >= 0 AND occupancy <= capacity),
			is_active   INTEGER NOT NULL DEFAULT 1,
			UNIQUE (meet_id, room_number)
		)`,
		`CREATE TABLE IF NOT EXISTS participations (
			room_id      TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
			user_id      TEXT NOT NULL,
			display_name TEXT NOT NULL,
			joined_at    TEXT NOT NULL,
			PRIMARY KEY (room_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS notification_records (
			room_id TEXT NOT NULL,
			kind    TEXT NOT NULL,
			sent_at TEXT NOT NULL,
			PRIMARY KEY (room_id, kind)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_meets_owner ON meets(owner_id, is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_meets_date ON meets(date, is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_rooms_meet ON rooms(meet_id, room_number)`,
		`CREATE INDEX IF NOT EXISTS idx_participations_user ON participations(user_id, joined_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.DB().ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", mapError(err))
		}
	}

	return nil
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.Local)
}

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
