package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/meetsburg/internal/application"
	"github.com/example/meetsburg/internal/config"
	httptransport "github.com/example/meetsburg/internal/http"
	"github.com/example/meetsburg/internal/notify"
	"github.com/example/meetsburg/internal/persistence"
	"github.com/example/meetsburg/internal/persistence/sqlite"
)

func main() {
	configPath := flag.String("config", os.Getenv("MEETSBURG_CONFIG"), "path to YAML config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	storage, err := sqlite.Open(cfg.StoreParams.SQLitePath, sqlite.RetryConfig{
		Attempts: cfg.StoreParams.RetryAttempts,
		Delay:    cfg.StoreParams.RetryDelay,
	})
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	service := application.NewBookingService(storage.Meets, storage.Rooms, idGenerator, now, logger)

	var sender notify.Sender
	if cfg.NotifierParams.WebhookURL != "" {
		sender = notify.NewWebhookSender(cfg.NotifierParams.WebhookURL, nil)
	} else {
		sender = logSender{logger: logger}
	}

	notifier := notify.NewNotifier(
		notifierStore{rooms: storage.Rooms, notifications: storage.Notifications},
		sender,
		notify.Config{
			Tick:           cfg.NotifierParams.Tick,
			CutoffHour:     cfg.NotifierParams.CutoffHour,
			ImminentWindow: cfg.NotifierParams.ImminentWindow,
		},
		now,
		logger,
	)
	go func() {
		if err := notifier.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("notifier stopped with error", "error", err)
		}
	}()

	handler := httptransport.NewRouter(service, logger)

	server := &http.Server{
		Addr:              cfg.HTTPParams.GetAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("meetsburg API listening", "addr", server.Addr, "env", cfg.GeneralParams.Env)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// notifierStore joins the room and notification repositories into the single
// store surface the notifier consumes.
type notifierStore struct {
	rooms         *sqlite.RoomRepository
	notifications *sqlite.NotificationRepository
}

func (s notifierStore) DayAheadRooms(ctx context.Context, now time.Time, cutoffHour int) ([]persistence.DueRoom, error) {
	return s.notifications.DayAheadRooms(ctx, now, cutoffHour)
}

func (s notifierStore) RoomsStartingWithin(ctx context.Context, now time.Time, window time.Duration) ([]persistence.DueRoom, error) {
	return s.notifications.RoomsStartingWithin(ctx, now, window)
}

func (s notifierStore) ListParticipants(ctx context.Context, roomID string) ([]persistence.Participation, error) {
	return s.rooms.ListParticipants(ctx, roomID)
}

func (s notifierStore) IsNotificationSent(ctx context.Context, roomID string, kind persistence.NotificationKind) (bool, error) {
	return s.notifications.IsNotificationSent(ctx, roomID, kind)
}

func (s notifierStore) MarkNotificationSent(ctx context.Context, roomID string, kind persistence.NotificationKind, sentAt time.Time) (bool, error) {
	return s.notifications.MarkNotificationSent(ctx, roomID, kind, sentAt)
}

// logSender stands in when no webhook endpoint is configured; reminders are
// written to the log instead of delivered.
type logSender struct {
	logger *slog.Logger
}

func (s logSender) Send(ctx context.Context, recipientID, text string) error {
	s.logger.InfoContext(ctx, "reminder (no delivery endpoint configured)",
		"recipient_id", recipientID, "text", text)
	return nil
}
