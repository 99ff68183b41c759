package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter assembles the API surface the conversation layer calls into.
func NewRouter(service BookingService, logger *slog.Logger) http.Handler {
	meets := NewMeetHandler(service, logger)
	rooms := NewRoomHandler(service, logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(logger))

	r.Route("/api", func(r chi.Router) {
		r.Route("/meets", func(r chi.Router) {
			r.Post("/", meets.Create)
			r.Get("/", meets.List)
			r.Get("/{meetID}", meets.Get)
			r.Delete("/{meetID}", meets.Delete)
			r.Get("/{meetID}/rooms", meets.ListRooms)
			r.Post("/{meetID}/password", meets.VerifyPassword)
		})

		r.Route("/rooms", func(r chi.Router) {
			r.Post("/{roomID}/join", rooms.Join)
			r.Get("/{roomID}/participants", rooms.Participants)
		})

		r.Get("/bookings", rooms.Bookings)
	})

	return r
}
