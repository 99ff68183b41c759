package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/meetsburg/internal/persistence"
)

var (
	meetCounter uint64
	roomCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.Local)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// MeetOption configures a generated meet fixture.
type MeetOption func(*persistence.Meet)

// NewMeetFixture returns a meet record with optional overrides. The meet
// falls on tomorrow's calendar day so it is logically active by default;
// lookups compare the meet date against the wall clock.
func NewMeetFixture(opts ...MeetOption) persistence.Meet {
	idx := atomic.AddUint64(&meetCounter, 1)
	date := dayStart(time.Now()).AddDate(0, 0, 1)
	meet := persistence.Meet{
		ID:          fmt.Sprintf("meet-%03d", idx),
		OwnerID:     fmt.Sprintf("owner-%03d", idx),
		Title:       fmt.Sprintf("Meet %03d", idx),
		Date:        date,
		Description: "fixture meet",
		StartsAt:    date.Add(14 * time.Hour),
		IsActive:    true,
		CreatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&meet)
	}
	return meet
}

// WithMeetID overrides the generated meet ID.
func WithMeetID(id string) MeetOption {
	return func(m *persistence.Meet) { m.ID = id }
}

// WithMeetOwner overrides the generated owner ID.
func WithMeetOwner(ownerID string) MeetOption {
	return func(m *persistence.Meet) { m.OwnerID = ownerID }
}

// WithMeetDate sets the meet's calendar day and shifts the start to 14:00
// on that day.
func WithMeetDate(date time.Time) MeetOption {
	return func(m *persistence.Meet) {
		m.Date = dayStart(date)
		m.StartsAt = m.Date.Add(14 * time.Hour)
	}
}

// WithMeetPasswordHash sets the stored password hash.
func WithMeetPasswordHash(hash string) MeetOption {
	return func(m *persistence.Meet) { m.PasswordHash = &hash }
}

// RoomOption configures a generated room fixture.
type RoomOption func(*persistence.Room)

// NewRoomFixture returns a deterministic room belonging to the given meet.
// The room starts when the meet starts and runs for 30 minutes.
func NewRoomFixture(meet persistence.Meet, number int, opts ...RoomOption) persistence.Room {
	idx := atomic.AddUint64(&roomCounter, 1)
	start := meet.StartsAt.Add(time.Duration(number-1) * 30 * time.Minute)
	room := persistence.Room{
		ID:       fmt.Sprintf("room-%03d", idx),
		MeetID:   meet.ID,
		Number:   number,
		StartsAt: start,
		EndsAt:   start.Add(30 * time.Minute),
		Capacity: 5,
		IsActive: true,
	}
	for _, opt := range opts {
		opt(&room)
	}
	return room
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(r *persistence.Room) { r.ID = id }
}

// WithRoomCapacity overrides the room capacity.
func WithRoomCapacity(capacity int) RoomOption {
	return func(r *persistence.Room) { r.Capacity = capacity }
}

// WithRoomStart sets the room's start and keeps its 30 minute length.
func WithRoomStart(start time.Time) RoomOption {
	return func(r *persistence.Room) {
		r.StartsAt = start
		r.EndsAt = start.Add(30 * time.Minute)
	}
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
