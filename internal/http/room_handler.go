package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/meetsburg/internal/application"
	"github.com/example/meetsburg/internal/persistence"
)

// RoomHandler serves the room-level endpoints: joining and participant and
// booking listings.
type RoomHandler struct {
	service BookingService
	resp    responder
}

// NewRoomHandler constructs a room handler.
func NewRoomHandler(service BookingService, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{service: service, resp: newResponder(logger)}
}

type joinRequest struct {
	DisplayName string `json:"display_name"`
}

type joinResponse struct {
	Outcome   string `json:"outcome"`
	Occupancy int    `json:"occupancy"`
	Capacity  int    `json:"capacity"`
}

// Join handles POST /api/rooms/{roomID}/join.
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := actingUser(r)
	if userID == "" {
		h.resp.writeError(ctx, w, http.StatusBadRequest, "missing "+userIDHeader+" header")
		return
	}

	var req joinRequest
	if err := decodeJSON(r, &req); err != nil {
		h.resp.writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.JoinRoom(ctx, application.JoinParams{
		RoomID:      chi.URLParam(r, "roomID"),
		UserID:      userID,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		h.resp.handleServiceError(ctx, w, err)
		return
	}

	status := http.StatusOK
	switch result.Outcome {
	case persistence.Joined:
		status = http.StatusCreated
	case persistence.Full:
		status = http.StatusConflict
	}

	h.resp.writeJSON(ctx, w, status, joinResponse{
		Outcome:   result.Outcome.String(),
		Occupancy: result.Occupancy,
		Capacity:  result.Capacity,
	})
}

type participantResponse struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	JoinedAt    string `json:"joined_at"`
}

// Participants handles GET /api/rooms/{roomID}/participants.
func (h *RoomHandler) Participants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	participants, err := h.service.ListRoomParticipants(ctx, chi.URLParam(r, "roomID"))
	if err != nil {
		h.resp.handleServiceError(ctx, w, err)
		return
	}

	payload := make([]participantResponse, 0, len(participants))
	for _, p := range participants {
		payload = append(payload, participantResponse{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			JoinedAt:    p.JoinedAt.Format(time.RFC3339),
		})
	}
	h.resp.writeJSON(ctx, w, http.StatusOK, payload)
}

type bookingResponse struct {
	MeetID       string `json:"meet_id"`
	MeetTitle    string `json:"meet_title"`
	MeetDate     string `json:"meet_date"`
	MeetStartsAt string `json:"meet_starts_at"`
	RoomID       string `json:"room_id"`
	RoomNumber   int    `json:"room_number"`
	RoomStartsAt string `json:"room_starts_at"`
	RoomEndsAt   string `json:"room_ends_at"`
	JoinedAt     string `json:"joined_at"`
}

// Bookings handles GET /api/bookings for the acting user.
func (h *RoomHandler) Bookings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := actingUser(r)
	if userID == "" {
		h.resp.writeError(ctx, w, http.StatusBadRequest, "missing "+userIDHeader+" header")
		return
	}

	bookings, err := h.service.ListUserBookings(ctx, userID)
	if err != nil {
		h.resp.handleServiceError(ctx, w, err)
		return
	}

	payload := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		payload = append(payload, bookingResponse{
			MeetID:       b.MeetID,
			MeetTitle:    b.MeetTitle,
			MeetDate:     b.MeetDate.Format(dateLayout),
			MeetStartsAt: b.MeetStartsAt.Format(time.RFC3339),
			RoomID:       b.RoomID,
			RoomNumber:   b.RoomNumber,
			RoomStartsAt: b.RoomStartsAt.Format(time.RFC3339),
			RoomEndsAt:   b.RoomEndsAt.Format(time.RFC3339),
			JoinedAt:     b.JoinedAt.Format(time.RFC3339),
		})
	}
	h.resp.writeJSON(ctx, w, http.StatusOK, payload)
}
