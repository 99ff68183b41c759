package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/meetsburg/internal/application"
)

// BookingService captures the core operations the API exposes to the
// external conversation layer.
type BookingService interface {
	CreateMeet(ctx context.Context, input application.MeetInput) (application.CreatedMeet, error)
	GetMeet(ctx context.Context, id string) (application.Meet, error)
	ListOwnerMeets(ctx context.Context, ownerID string) ([]application.Meet, error)
	ListMeetRooms(ctx context.Context, meetID string) ([]application.Room, error)
	JoinRoom(ctx context.Context, params application.JoinParams) (application.JoinResult, error)
	ListRoomParticipants(ctx context.Context, roomID string) ([]application.Participant, error)
	ListUserBookings(ctx context.Context, userID string) ([]application.Booking, error)
	DeleteMeet(ctx context.Context, meetID, requesterID string) (bool, error)
	VerifyMeetPassword(ctx context.Context, meetID, password string) error
}

// MeetHandler serves the meet-level endpoints.
type MeetHandler struct {
	service BookingService
	resp    responder
}

// NewMeetHandler constructs a meet handler.
func NewMeetHandler(service BookingService, logger *slog.Logger) *MeetHandler {
	return &MeetHandler{service: service, resp: newResponder(logger)}
}

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

type createMeetRequest struct {
	Title               string  `json:"title"`
	Date                string  `json:"date"`
	Description         string  `json:"description"`
	StartTime           string  `json:"start_time"`
	RoomCount           int     `json:"room_count"`
	RoomDurationMinutes int     `json:"room_duration_minutes"`
	CapacityPerRoom     int     `json:"capacity_per_room"`
	Password            *string `json:"password,omitempty"`
}

type meetResponse struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	Description string `json:"description"`
	StartsAt    string `json:"starts_at"`
	HasPassword bool   `json:"has_password"`
	CreatedAt   string `json:"created_at"`
}

type roomResponse struct {
	ID        string `json:"id"`
	MeetID    string `json:"meet_id"`
	Number    int    `json:"number"`
	StartsAt  string `json:"starts_at"`
	EndsAt    string `json:"ends_at"`
	Capacity  int    `json:"capacity"`
	Occupancy int    `json:"occupancy"`
	Remaining int    `json:"remaining"`
}

type createMeetResponse struct {
	Meet  meetResponse   `json:"meet"`
	Rooms []roomResponse `json:"rooms"`
}

// Create handles POST /api/meets.
func (h *MeetHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID := actingUser(r)
	if ownerID == "" {
		h.resp.writeError(ctx, w, http.StatusBadRequest, "missing "+userIDHeader+" header")
		return
	}

	var req createMeetRequest
	if err := decodeJSON(r, &req); err != nil {
		h.resp.writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := application.MeetInput{
		OwnerID:             ownerID,
		Title:               req.Title,
		Description:         req.Description,
		RoomCount:           req.RoomCount,
		RoomDurationMinutes: req.RoomDurationMinutes,
		CapacityPerRoom:     req.CapacityPerRoom,
		Password:            req.Password,
	}
	if req.Date != "" {
		date, err := time.ParseInLocation(dateLayout, req.Date, time.Local)
		if err != nil {
			h.resp.writeError(ctx, w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		input.Date = date
	}
	if req.StartTime != "" {
		start, err := time.ParseInLocation(clockLayout, req.StartTime, time.Local)
		if err != nil {
			h.resp.writeError(ctx, w, http.StatusBadRequest, "invalid start_time, expected HH:MM")
			return
		}
		input.StartsAt = start
	}

	created, err := h.service.CreateMeet(ctx, input)
	if err != nil {
		h.resp.handleServiceError(ctx, w, err)
		return
	}

	rooms := make([]roomResponse, 0, len(created.Rooms))
	for _, room := range created.Rooms {
		rooms = append(rooms, toRoomResponse(room))
	}
	h.resp.writeJSON(ctx, w, http.StatusCreated, createMeetResponse{
		Meet:  toMeetResponse(created.Meet),
		Rooms: rooms,
	})
}

// Get handles GET /api/meets/{meetID}.
func (h *MeetHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	meet, err := h.service.GetMeet(ctx, chi.URLParam(r, "meetID"))
	if err != nil {
		h.resp.handleServiceError(ctx, w, err)
		return
	}

	h.resp.writeJSON(ctx, w, http.StatusOK, toMeetResponse(meet))
}

// List handles GET /api/meets for the acting user's own meets.
func (h *MeetHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID := actingUser(r)
	if ownerID == "" {
		h.resp.writeError(ctx, w, http.StatusBadRequest, "missing "+userIDHeader+" header")
		return
	}

	meets, err := h.service.ListOwnerMeets(ctx, ownerID)
	if err != nil {
		h.resp.handleServiceError(ctx, w, err)
		return
	}

	payload := make([]meetResponse, 0, len(meets))
	for _, meet := range meets {
		payload = append(payload, toMeetResponse(meet))
	}
	h.resp.writeJSON(ctx, w, http.StatusOK, payload)
}

// Delete handles DELETE /api/meets/{meetID}.
func (h *MeetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requesterID := actingUser(r)
	if requesterID == "" {
		h.resp.writeError(ctx, w, http.StatusBadRequest, "missing "+userIDHeader+" header")
		return
	}

	deleted, err := h.service.DeleteMeet(ctx, chi.URLParam(r, "meetID"), requesterID)
	if err != nil {
		h.resp.handleServiceError(ctx, w, err)
		return
	}
	if !deleted {
		h.resp.writeError(ctx, w, http.StatusNotFound, "no matching meet owned by this user")
		return
	}

	h.resp.writeJSON(ctx, w, http.StatusNoContent, nil)
}

// ListRooms handles GET /api/meets/{meetID}/rooms.
func (h *MeetHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rooms, err := h.service.ListMeetRooms(ctx, chi.URLParam(r, "meetID"))
	if err != nil {
		h.resp.handleServiceError(ctx, w, err)
		return
	}

	payload := make([]roomResponse, 0, len(rooms))
	for _, room := range rooms {
		payload = append(payload, toRoomResponse(room))
	}
	h.resp.writeJSON(ctx, w, http.StatusOK, payload)
}

type verifyPasswordRequest struct {
	Password string `json:"password"`
}

// VerifyPassword handles POST /api/meets/{meetID}/password.
func (h *MeetHandler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req verifyPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.resp.writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.VerifyMeetPassword(ctx, chi.URLParam(r, "meetID"), req.Password); err != nil {
		h.resp.handleServiceError(ctx, w, err)
		return
	}

	h.resp.writeJSON(ctx, w, http.StatusNoContent, nil)
}

func toMeetResponse(meet application.Meet) meetResponse {
	return meetResponse{
		ID:          meet.ID,
		OwnerID:     meet.OwnerID,
		Title:       meet.Title,
		Date:        meet.Date.Format(dateLayout),
		Description: meet.Description,
		StartsAt:    meet.StartsAt.Format(time.RFC3339),
		HasPassword: meet.HasPassword,
		CreatedAt:   meet.CreatedAt.Format(time.RFC3339),
	}
}

func toRoomResponse(room application.Room) roomResponse {
	return roomResponse{
		ID:        room.ID,
		MeetID:    room.MeetID,
		Number:    room.Number,
		StartsAt:  room.StartsAt.Format(time.RFC3339),
		EndsAt:    room.EndsAt.Format(time.RFC3339),
		Capacity:  room.Capacity,
		Occupancy: room.Occupancy,
		Remaining: room.Remaining,
	}
}
