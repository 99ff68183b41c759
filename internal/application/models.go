package application

import (
	"time"

	"github.com/example/meetsburg/internal/persistence"
)

// MeetInput captures the fields the conversation layer collects before its
// single commit call.
type MeetInput struct {
	OwnerID             string
	Title               string
	Date                time.Time
	Description         string
	StartsAt            time.Time
	RoomCount           int
	RoomDurationMinutes int
	CapacityPerRoom     int
	Password            *string
}

// Meet is a published meet as exposed to callers. The password itself never
// leaves the store; HasPassword tells the caller whether to prompt.
type Meet struct {
	ID          string
	OwnerID     string
	Title       string
	Date        time.Time
	Description string
	StartsAt    time.Time
	HasPassword bool
	CreatedAt   time.Time
}

// Room is one bookable interval of a meet with its remaining capacity.
type Room struct {
	ID        string
	MeetID    string
	Number    int
	StartsAt  time.Time
	EndsAt    time.Time
	Capacity  int
	Occupancy int
	Remaining int
}

// CreatedMeet pairs a freshly committed meet with its generated rooms.
type CreatedMeet struct {
	Meet  Meet
	Rooms []Room
}

// Participant is a user's slot in a room, in join order.
type Participant struct {
	UserID      string
	DisplayName string
	JoinedAt    time.Time
}

// Booking is a user's joined room with its meet context.
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

// JoinParams wraps the data required to reserve a slot.
type JoinParams struct {
	RoomID      string
	UserID      string
	DisplayName string
}

// JoinResult is the definite outcome of a join attempt.
type JoinResult struct {
	Outcome   persistence.JoinOutcome
	Occupancy int
	Capacity  int
}

func toMeet(model persistence.Meet) Meet {
	return Meet{
		ID:          model.ID,
		OwnerID:     model.OwnerID,
		Title:       model.Title,
		Date:        model.Date,
		Description: model.Description,
		StartsAt:    model.StartsAt,
		HasPassword: model.PasswordHash != nil,
		CreatedAt:   model.CreatedAt,
	}
}

func toRoom(model persistence.Room) Room {
	return Room{
		ID:        model.ID,
		MeetID:    model.MeetID,
		Number:    model.Number,
		StartsAt:  model.StartsAt,
		EndsAt:    model.EndsAt,
		Capacity:  model.Capacity,
		Occupancy: model.Occupancy,
		Remaining: model.Capacity - model.Occupancy,
	}
}

func toParticipant(model persistence.Participation) Participant {
	return Participant{
		UserID:      model.UserID,
		DisplayName: model.DisplayName,
		JoinedAt:    model.JoinedAt,
	}
}

func toBooking(model persistence.Booking) Booking {
	return Booking{
		MeetID:       model.MeetID,
		MeetTitle:    model.MeetTitle,
		MeetDate:     model.MeetDate,
		MeetStartsAt: model.MeetStartsAt,
		RoomID:       model.RoomID,
		RoomNumber:   model.RoomNumber,
		RoomStartsAt: model.RoomStartsAt,
		RoomEndsAt:   model.RoomEndsAt,
		JoinedAt:     model.JoinedAt,
	}
}
