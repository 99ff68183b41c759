// Package schedule generates the room plan of a meet: a contiguous,
// non-overlapping, strictly increasing partition of fixed-duration
// intervals starting at the meet's start time. The package is pure and
// performs no I/O.
package schedule

import (
	"fmt"
	"time"
)

// Limits on a meet's room plan.
const (
	MinRooms = 1
	MaxRooms = 60

	MinRoomMinutes = 10
	MaxRoomMinutes = 600

	// DailyCapMinutes bounds the total span of all rooms of one meet.
	DailyCapMinutes = 600
)

// Slot is one generated room interval. Numbers run 1..n in interval order.
type Slot struct {
	Number   int
	StartsAt time.Time
	EndsAt   time.Time
}

// LimitError reports a rejected room plan. When the total duration exceeds
// the daily cap, MaxAdmissibleRooms carries the largest room count that
// would fit the requested duration.
type LimitError struct {
	Field              string
	Message            string
	MaxAdmissibleRooms int
}

// Error implements the error interface.
func (e *LimitError) Error() string {
	return fmt.Sprintf("schedule: %s: %s", e.Field, e.Message)
}

// Generate produces roomCount contiguous slots of roomMinutes each,
// starting at start. Validation is evaluated in a fixed order and the
// first failure wins: room count range, duration range, then the daily
// cap on the total span.
func Generate(start time.Time, roomCount, roomMinutes int) ([]Slot, error) {
	if roomCount < MinRooms || roomCount > MaxRooms {
		return nil, &LimitError{
			Field:   "room_count",
			Message: fmt.Sprintf("room count out of range: must be between %d and %d", MinRooms, MaxRooms),
		}
	}
	if roomMinutes < MinRoomMinutes || roomMinutes > MaxRoomMinutes {
		return nil, &LimitError{
			Field:   "room_duration",
			Message: fmt.Sprintf("duration out of range: must be between %d and %d minutes", MinRoomMinutes, MaxRoomMinutes),
		}
	}
	if total := roomCount * roomMinutes; total > DailyCapMinutes {
		return nil, &LimitError{
			Field: "room_count",
			Message: fmt.Sprintf("total duration exceeds daily cap: %d minutes requested, %d allowed",
				total, DailyCapMinutes),
			MaxAdmissibleRooms: DailyCapMinutes / roomMinutes,
		}
	}

	duration := time.Duration(roomMinutes) * time.Minute
	slots := make([]Slot, 0, roomCount)
	for i := 0; i < roomCount; i++ {
		slots = append(slots, Slot{
			Number:   i + 1,
			StartsAt: start.Add(time.Duration(i) * duration),
			EndsAt:   start.Add(time.Duration(i+1) * duration),
		})
	}

	return slots, nil
}
