package persistence

import "time"

// NotificationKind identifies one of the two reminder windows tracked per room.
type NotificationKind string

const (
	// KindDayAhead is the notice sent the day before a room starts.
	KindDayAhead NotificationKind = "day_ahead"
	// KindThirtyMinutes is the notice sent shortly before a room starts.
	KindThirtyMinutes NotificationKind = "thirty_minutes"
)

// Meet represents a published event owning an ordered set of rooms.
//
// A meet is logically active when IsActive is true and Date is today or
// later; read paths filter on both unless they explicitly audit inactive
// rows.
type Meet struct {
	ID           string
	OwnerID      string
	Title        string
	Date         time.Time
	Description  string
	StartsAt     time.Time
	PasswordHash *string
	IsActive     bool
	CreatedAt    time.Time
}

// Room represents one fixed time interval of a meet with bounded capacity.
// Occupancy always equals the number of participation rows for the room and
// never exceeds Capacity.
type Room struct {
	ID        string
	MeetID    string
	Number    int
	StartsAt  time.Time
	EndsAt    time.Time
	Capacity  int
	Occupancy int
	IsActive  bool
}

// Participation records a user's reserved slot in a room. Rows are created
// only by JoinRoom and never mutated afterwards.
type Participation struct {
	RoomID      string
	UserID      string
	DisplayName string
	JoinedAt    time.Time
}

// NotificationRecord marks a (room, kind) pair as dispatched. Its existence
// is the sole idempotency guard: present means never resend.
type NotificationRecord struct {
	RoomID string
	Kind   NotificationKind
	SentAt time.Time
}

// DueRoom is a room joined with the meet context the notifier needs to
// format and address a reminder.
type DueRoom struct {
	Room
	MeetTitle       string
	MeetDate        time.Time
	MeetDescription string
	MeetOwnerID     string
}

// Booking is a user's participation joined with its room and meet, as shown
// in the bookings listing.
type Booking struct {
	MeetID       string
	MeetTitle    string
	MeetDate     time.Time
	MeetStartsAt time.Time
	RoomID       string
	RoomNumber   int
	RoomStartsAt time.Time
	RoomEndsAt   time.Time
	JoinedAt     time.Time
}

// JoinOutcome is the definite result of a join attempt.
type JoinOutcome int

const (
	// Joined means a participation row was created and occupancy grew by one.
	Joined JoinOutcome = iota
	// AlreadyJoined means the user already held a slot; nothing changed.
	AlreadyJoined
	// Full means the room had no free slot; nothing changed.
	Full
)

// String returns a stable label for logging and API payloads.
func (o JoinOutcome) String() string {
	switch o {
	case Joined:
		return "joined"
	case AlreadyJoined:
		return "already_joined"
	case Full:
		return "full"
	}
	return "unknown"
}

// JoinResult reports the outcome of a join attempt together with the room's
// resulting occupancy.
type JoinResult struct {
	Outcome   JoinOutcome
	Occupancy int
	Capacity  int
}
