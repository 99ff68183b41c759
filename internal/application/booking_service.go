package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/meetsburg/internal/persistence"
	"github.com/example/meetsburg/internal/schedule"
)

// Capacity bounds for a single room. Capacity is validated here, not in the
// schedule generator: it is not part of interval math.
const (
	MinCapacityPerRoom = 1
	MaxCapacityPerRoom = 50
)

// MeetRepository captures the persistence operations the service needs for
// meets.
type MeetRepository interface {
	CreateMeetWithRooms(ctx context.Context, meet persistence.Meet, rooms []persistence.Room) error
	GetMeet(ctx context.Context, id string) (persistence.Meet, error)
	ListMeetsByOwner(ctx context.Context, ownerID string) ([]persistence.Meet, error)
	SoftDeleteMeet(ctx context.Context, meetID, requesterID string) (bool, error)
}

// RoomRepository captures the persistence operations the service needs for
// rooms and participations.
type RoomRepository interface {
	ListRoomsOfMeet(ctx context.Context, meetID string) ([]persistence.Room, error)
	JoinRoom(ctx context.Context, roomID, userID, displayName string) (persistence.JoinResult, error)
	ListParticipants(ctx context.Context, roomID string) ([]persistence.Participation, error)
	ListUserBookings(ctx context.Context, userID string) ([]persistence.Booking, error)
}

// BookingService orchestrates validation, schedule generation, and
// persistence for meets and room joins.
type BookingService struct {
	meets       MeetRepository
	rooms       RoomRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewBookingService constructs a booking service with the provided
// dependencies.
func NewBookingService(meets MeetRepository, rooms RoomRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		meets:       meets,
		rooms:       rooms,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// CreateMeet validates the input, generates the room plan, and persists the
// meet with all rooms as one atomic commit. The conversation wizard cannot
// partially persist: nothing is written before this call and the store
// writes meet and rooms in one transaction.
func (s *BookingService) CreateMeet(ctx context.Context, input MeetInput) (created CreatedMeet, err error) {
	logger := s.loggerWith(ctx, "CreateMeet", "owner_id", input.OwnerID)
	defer func() {
		if err != nil {
			if !expectedOutcome(err) {
				logger.ErrorContext(ctx, "failed to create meet", "error", err, "error_kind", ErrorKind(err))
			}
			return
		}
		logger.InfoContext(ctx, "meet created", "meet_id", created.Meet.ID, "rooms", len(created.Rooms))
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(input.OwnerID) == "" {
		vErr.add("owner_id", "owner is required")
	}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if input.Date.IsZero() {
		vErr.add("date", "date is required")
	} else if dayOf(input.Date).Before(dayOf(s.now())) {
		vErr.add("date", "date must be today or later")
	}
	if input.StartsAt.IsZero() {
		vErr.add("start_time", "start time is required")
	}
	if input.CapacityPerRoom < MinCapacityPerRoom || input.CapacityPerRoom > MaxCapacityPerRoom {
		vErr.add("capacity", fmt.Sprintf("capacity must be between %d and %d", MinCapacityPerRoom, MaxCapacityPerRoom))
	}
	if input.Password != nil && strings.TrimSpace(*input.Password) == "" {
		vErr.add("password", "password must not be empty")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	startsAt := combineDayAndClock(input.Date, input.StartsAt)
	slots, genErr := schedule.Generate(startsAt, input.RoomCount, input.RoomDurationMinutes)
	if genErr != nil {
		err = limitToValidationError(genErr)
		return
	}

	var passwordHash *string
	if input.Password != nil {
		hash, hashErr := CreatePasswordHash(strings.TrimSpace(*input.Password), DefaultArgon2idParams)
		if hashErr != nil {
			err = hashErr
			return
		}
		passwordHash = &hash
	}

	meet := persistence.Meet{
		ID:           s.idGenerator(),
		OwnerID:      input.OwnerID,
		Title:        strings.TrimSpace(input.Title),
		Date:         dayOf(input.Date),
		Description:  strings.TrimSpace(input.Description),
		StartsAt:     startsAt,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    s.now(),
	}

	rooms := make([]persistence.Room, 0, len(slots))
	for _, slot := range slots {
		rooms = append(rooms, persistence.Room{
			ID:       s.idGenerator(),
			MeetID:   meet.ID,
			Number:   slot.Number,
			StartsAt: slot.StartsAt,
			EndsAt:   slot.EndsAt,
			Capacity: input.CapacityPerRoom,
			IsActive: true,
		})
	}

	if err = mapRepoError(s.meets.CreateMeetWithRooms(ctx, meet, rooms)); err != nil {
		return
	}

	created.Meet = toMeet(meet)
	created.Rooms = make([]Room, 0, len(rooms))
	for _, room := range rooms {
		created.Rooms = append(created.Rooms, toRoom(room))
	}
	return
}

// GetMeet returns a logically active meet.
func (s *BookingService) GetMeet(ctx context.Context, id string) (Meet, error) {
	model, err := s.meets.GetMeet(ctx, id)
	if err != nil {
		return Meet{}, s.reportUnexpected(ctx, "GetMeet", mapRepoError(err), "meet_id", id)
	}
	return toMeet(model), nil
}

// ListOwnerMeets returns the owner's active meets, newest first.
func (s *BookingService) ListOwnerMeets(ctx context.Context, ownerID string) ([]Meet, error) {
	models, err := s.meets.ListMeetsByOwner(ctx, ownerID)
	if err != nil {
		return nil, s.reportUnexpected(ctx, "ListOwnerMeets", mapRepoError(err), "owner_id", ownerID)
	}

	meets := make([]Meet, 0, len(models))
	for _, model := range models {
		meets = append(meets, toMeet(model))
	}
	return meets, nil
}

// ListMeetRooms returns the rooms of a logically active meet in room number
// order, with remaining capacity attached. Inactive meets are rejected at
// this lookup step.
func (s *BookingService) ListMeetRooms(ctx context.Context, meetID string) ([]Room, error) {
	if _, err := s.meets.GetMeet(ctx, meetID); err != nil {
		return nil, s.reportUnexpected(ctx, "ListMeetRooms", mapRepoError(err), "meet_id", meetID)
	}

	models, err := s.rooms.ListRoomsOfMeet(ctx, meetID)
	if err != nil {
		return nil, s.reportUnexpected(ctx, "ListMeetRooms", mapRepoError(err), "meet_id", meetID)
	}

	rooms := make([]Room, 0, len(models))
	for _, model := range models {
		rooms = append(rooms, toRoom(model))
	}
	return rooms, nil
}

// JoinRoom reserves a slot for the user. The outcome is a value, not an
// error: AlreadyJoined and Full are expected results of a correct call.
func (s *BookingService) JoinRoom(ctx context.Context, params JoinParams) (result JoinResult, err error) {
	logger := s.loggerWith(ctx, "JoinRoom", "room_id", params.RoomID, "user_id", params.UserID)
	defer func() {
		if err != nil {
			if !expectedOutcome(err) {
				logger.ErrorContext(ctx, "failed to join room", "error", err, "error_kind", ErrorKind(err))
			}
			return
		}
		logger.InfoContext(ctx, "join handled", "outcome", result.Outcome.String(),
			"occupancy", result.Occupancy, "capacity", result.Capacity)
	}()

	displayName := strings.TrimSpace(params.DisplayName)
	if displayName == "" {
		displayName = "User_" + params.UserID
	}

	model, joinErr := s.rooms.JoinRoom(ctx, params.RoomID, params.UserID, displayName)
	if joinErr != nil {
		err = mapRepoError(joinErr)
		return
	}

	result = JoinResult{Outcome: model.Outcome, Occupancy: model.Occupancy, Capacity: model.Capacity}
	return
}

// ListRoomParticipants returns the room's participants in join order.
func (s *BookingService) ListRoomParticipants(ctx context.Context, roomID string) ([]Participant, error) {
	models, err := s.rooms.ListParticipants(ctx, roomID)
	if err != nil {
		return nil, s.reportUnexpected(ctx, "ListRoomParticipants", mapRepoError(err), "room_id", roomID)
	}

	participants := make([]Participant, 0, len(models))
	for _, model := range models {
		participants = append(participants, toParticipant(model))
	}
	return participants, nil
}

// ListUserBookings returns the user's joined rooms across active meets,
// newest join first.
func (s *BookingService) ListUserBookings(ctx context.Context, userID string) ([]Booking, error) {
	models, err := s.rooms.ListUserBookings(ctx, userID)
	if err != nil {
		return nil, s.reportUnexpected(ctx, "ListUserBookings", mapRepoError(err), "user_id", userID)
	}

	bookings := make([]Booking, 0, len(models))
	for _, model := range models {
		bookings = append(bookings, toBooking(model))
	}
	return bookings, nil
}

// DeleteMeet soft-deletes the meet when requester is its owner. A miss
// reports false without an error; in-flight joins are not retroactively
// failed and room or participation rows are left in place.
func (s *BookingService) DeleteMeet(ctx context.Context, meetID, requesterID string) (deleted bool, err error) {
	logger := s.loggerWith(ctx, "DeleteMeet", "meet_id", meetID, "requester_id", requesterID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete meet", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "meet delete handled", "deleted", deleted)
	}()

	deleted, err = s.meets.SoftDeleteMeet(ctx, meetID, requesterID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	return
}

// VerifyMeetPassword checks the shared meet password. Meets without a
// password accept any caller.
func (s *BookingService) VerifyMeetPassword(ctx context.Context, meetID, password string) error {
	model, err := s.meets.GetMeet(ctx, meetID)
	if err != nil {
		return s.reportUnexpected(ctx, "VerifyMeetPassword", mapRepoError(err), "meet_id", meetID)
	}
	if model.PasswordHash == nil {
		return nil
	}
	if err := VerifyPassword(*model.PasswordHash, password); err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			return ErrInvalidPassword
		}
		return s.reportUnexpected(ctx, "VerifyMeetPassword", err, "meet_id", meetID)
	}
	return nil
}

// reportUnexpected logs err unless it is an expected caller-facing outcome,
// then passes it through.
func (s *BookingService) reportUnexpected(ctx context.Context, operation string, err error, attrs ...any) error {
	if err == nil || expectedOutcome(err) {
		return err
	}
	s.loggerWith(ctx, operation, attrs...).ErrorContext(ctx, "operation failed", "error", err, "error_kind", ErrorKind(err))
	return err
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrBusy):
		return ErrBusy
	case errors.Is(err, persistence.ErrUnavailable):
		return ErrUnavailable
	}
	return err
}

func limitToValidationError(err error) error {
	var limitErr *schedule.LimitError
	if !errors.As(err, &limitErr) {
		return err
	}

	vErr := &ValidationError{}
	message := limitErr.Message
	if limitErr.MaxAdmissibleRooms > 0 {
		message = fmt.Sprintf("%s (at most %d rooms fit this duration)", message, limitErr.MaxAdmissibleRooms)
	}
	vErr.add(limitErr.Field, message)
	return vErr
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func combineDayAndClock(day, clock time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), 0, 0, day.Location())
}
