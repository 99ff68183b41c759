package persistence

import (
	"context"
	"time"
)

// MeetRepository stores meets together with their generated rooms.
type MeetRepository interface {
	// CreateMeetWithRooms inserts the meet and all of its rooms in one
	// transaction. Callers never observe a meet with a partial room set.
	CreateMeetWithRooms(ctx context.Context, meet Meet, rooms []Room) error
	// GetMeet returns a logically active meet.
	GetMeet(ctx context.Context, id string) (Meet, error)
	// GetMeetIncludingInactive returns the meet regardless of its active
	// flag, for audit-style lookups.
	GetMeetIncludingInactive(ctx context.Context, id string) (Meet, error)
	// ListMeetsByOwner returns the owner's active meets, newest first.
	ListMeetsByOwner(ctx context.Context, ownerID string) ([]Meet, error)
	// SoftDeleteMeet flips the active flag when requester owns the meet.
	// It reports false, not an error, when no row matched.
	SoftDeleteMeet(ctx context.Context, meetID, requesterID string) (bool, error)
}

// RoomRepository stores rooms and participations.
type RoomRepository interface {
	// ListRoomsOfMeet returns the meet's rooms ordered by room number.
	ListRoomsOfMeet(ctx context.Context, meetID string) ([]Room, error)
	// JoinRoom atomically reserves a slot for the user. The existence
	// check, the capacity check, and the occupancy increment are
	// indivisible with respect to concurrent joins on the same room.
	JoinRoom(ctx context.Context, roomID, userID, displayName string) (JoinResult, error)
	// ListParticipants returns the room's participations in join order.
	ListParticipants(ctx context.Context, roomID string) ([]Participation, error)
	// ListUserBookings returns the user's joined rooms across active meets,
	// newest join first.
	ListUserBookings(ctx context.Context, userID string) ([]Booking, error)
}

// NotificationRepository stores due-set queries and dispatch records.
type NotificationRepository interface {
	// DayAheadRooms computes the day-ahead due set. At or after cutoffHour
	// it contains tomorrow's rooms; before the cutoff it additionally
	// contains today's rooms whose start has not yet passed.
	DayAheadRooms(ctx context.Context, now time.Time, cutoffHour int) ([]DueRoom, error)
	// RoomsStartingWithin returns rooms starting in (now, now+window].
	RoomsStartingWithin(ctx context.Context, now time.Time, window time.Duration) ([]DueRoom, error)
	// IsNotificationSent reports whether the (room, kind) pair was
	// dispatched before.
	IsNotificationSent(ctx context.Context, roomID string, kind NotificationKind) (bool, error)
	// MarkNotificationSent records the pair as dispatched. A duplicate mark
	// is a no-op reporting false, never an error.
	MarkNotificationSent(ctx context.Context, roomID string, kind NotificationKind, sentAt time.Time) (bool, error)
}
