package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/meetsburg/internal/persistence"
)

type fakeStore struct {
	dayAhead []persistence.DueRoom
	imminent []persistence.DueRoom

	participants map[string][]persistence.Participation
	sent         map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		participants: make(map[string][]persistence.Participation),
		sent:         make(map[string]bool),
	}
}

func recordKey(roomID string, kind persistence.NotificationKind) string {
	return roomID + "/" + string(kind)
}

func (s *fakeStore) DayAheadRooms(ctx context.Context, now time.Time, cutoffHour int) ([]persistence.DueRoom, error) {
	return s.dayAhead, nil
}

func (s *fakeStore) RoomsStartingWithin(ctx context.Context, now time.Time, window time.Duration) ([]persistence.DueRoom, error) {
	return s.imminent, nil
}

func (s *fakeStore) ListParticipants(ctx context.Context, roomID string) ([]persistence.Participation, error) {
	return s.participants[roomID], nil
}

func (s *fakeStore) IsNotificationSent(ctx context.Context, roomID string, kind persistence.NotificationKind) (bool, error) {
	return s.sent[recordKey(roomID, kind)], nil
}

func (s *fakeStore) MarkNotificationSent(ctx context.Context, roomID string, kind persistence.NotificationKind, sentAt time.Time) (bool, error) {
	key := recordKey(roomID, kind)
	if s.sent[key] {
		return false, nil
	}
	s.sent[key] = true
	return true, nil
}

type delivery struct {
	recipient string
	text      string
}

type fakeSender struct {
	deliveries []delivery
	failFor    map[string]bool
}

func (s *fakeSender) Send(ctx context.Context, recipientID, text string) error {
	if s.failFor[recipientID] {
		return errors.New("delivery refused")
	}
	s.deliveries = append(s.deliveries, delivery{recipient: recipientID, text: text})
	return nil
}

func dueRoomFixture(roomID, ownerID string, start time.Time) persistence.DueRoom {
	return persistence.DueRoom{
		Room: persistence.Room{
			ID:       roomID,
			MeetID:   "meet-1",
			Number:   1,
			StartsAt: start,
			EndsAt:   start.Add(30 * time.Minute),
			Capacity: 5,
			IsActive: true,
		},
		MeetTitle:       "Planning",
		MeetDate:        time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location()),
		MeetDescription: "weekly planning",
		MeetOwnerID:     ownerID,
	}
}

func participant(roomID, userID string) persistence.Participation {
	return persistence.Participation{RoomID: roomID, UserID: userID, DisplayName: userID}
}

func TestRunTickDispatchesOncePerRoomAndKind(t *testing.T) {
	now := time.Date(2024, time.March, 14, 13, 0, 0, 0, time.Local)
	store := newFakeStore()
	sender := &fakeSender{}

	room := dueRoomFixture("room-1", "owner-1", now.AddDate(0, 0, 1).Add(time.Hour))
	store.dayAhead = []persistence.DueRoom{room}
	store.participants["room-1"] = []persistence.Participation{
		participant("room-1", "alice"),
		participant("room-1", "bob"),
	}

	notifier := NewNotifier(store, sender, DefaultConfig(), func() time.Time { return now }, nil)

	notifier.RunTick(context.Background())

	if len(sender.deliveries) != 3 {
		t.Fatalf("expected 2 participants plus owner, got %d deliveries", len(sender.deliveries))
	}
	if sender.deliveries[2].recipient != "owner-1" {
		t.Fatalf("expected owner appended last, got %q", sender.deliveries[2].recipient)
	}
	if !store.sent[recordKey("room-1", persistence.KindDayAhead)] {
		t.Fatal("expected day-ahead record after a full batch")
	}

	notifier.RunTick(context.Background())

	if len(sender.deliveries) != 3 {
		t.Fatalf("expected no repeat deliveries, got %d", len(sender.deliveries))
	}
}

func TestRunTickOwnerNotDuplicated(t *testing.T) {
	now := time.Date(2024, time.March, 14, 13, 0, 0, 0, time.Local)
	store := newFakeStore()
	sender := &fakeSender{}

	room := dueRoomFixture("room-1", "alice", now.AddDate(0, 0, 1))
	store.dayAhead = []persistence.DueRoom{room}
	store.participants["room-1"] = []persistence.Participation{
		participant("room-1", "alice"),
		participant("room-1", "bob"),
	}

	notifier := NewNotifier(store, sender, DefaultConfig(), func() time.Time { return now }, nil)
	notifier.RunTick(context.Background())

	if len(sender.deliveries) != 2 {
		t.Fatalf("owner already participates, expected 2 deliveries, got %d", len(sender.deliveries))
	}
}

func TestRunTickRetriesWholeBatchAfterPartialFailure(t *testing.T) {
	now := time.Date(2024, time.March, 14, 13, 0, 0, 0, time.Local)
	store := newFakeStore()
	sender := &fakeSender{failFor: map[string]bool{"bob": true}}

	room := dueRoomFixture("room-1", "owner-1", now.AddDate(0, 0, 1))
	store.dayAhead = []persistence.DueRoom{room}
	store.participants["room-1"] = []persistence.Participation{
		participant("room-1", "alice"),
		participant("room-1", "bob"),
	}

	notifier := NewNotifier(store, sender, DefaultConfig(), func() time.Time { return now }, nil)

	notifier.RunTick(context.Background())

	if store.sent[recordKey("room-1", persistence.KindDayAhead)] {
		t.Fatal("a partial batch must not be marked sent")
	}
	firstRound := len(sender.deliveries)
	if firstRound != 2 {
		t.Fatalf("expected alice and the owner to be reached, got %d", firstRound)
	}

	// The next tick retries the whole batch, so recipients already reached
	// receive the reminder again.
	sender.failFor = nil
	notifier.RunTick(context.Background())

	if len(sender.deliveries) != firstRound+3 {
		t.Fatalf("expected a full resend, got %d total deliveries", len(sender.deliveries))
	}
	if !store.sent[recordKey("room-1", persistence.KindDayAhead)] {
		t.Fatal("expected record once every recipient was reached")
	}
}

func TestRunTickHandlesBothKindsIndependently(t *testing.T) {
	now := time.Date(2024, time.March, 14, 13, 0, 0, 0, time.Local)
	store := newFakeStore()
	sender := &fakeSender{}

	tomorrowRoom := dueRoomFixture("room-1", "owner-1", now.AddDate(0, 0, 1))
	soonRoom := dueRoomFixture("room-2", "owner-1", now.Add(20*time.Minute))
	store.dayAhead = []persistence.DueRoom{tomorrowRoom}
	store.imminent = []persistence.DueRoom{soonRoom}
	store.participants["room-1"] = []persistence.Participation{participant("room-1", "alice")}
	store.participants["room-2"] = []persistence.Participation{participant("room-2", "alice")}

	notifier := NewNotifier(store, sender, DefaultConfig(), func() time.Time { return now }, nil)
	notifier.RunTick(context.Background())

	if !store.sent[recordKey("room-1", persistence.KindDayAhead)] {
		t.Fatal("expected day-ahead record for room-1")
	}
	if !store.sent[recordKey("room-2", persistence.KindThirtyMinutes)] {
		t.Fatal("expected imminent record for room-2")
	}
	if store.sent[recordKey("room-1", persistence.KindThirtyMinutes)] {
		t.Fatal("room-1 is not imminent and must not carry that record")
	}
}

func TestReminderTextCarriesMeetContext(t *testing.T) {
	now := time.Date(2024, time.March, 14, 13, 0, 0, 0, time.Local)

	t.Run("day ahead", func(t *testing.T) {
		room := dueRoomFixture("room-1", "owner-1", now.AddDate(0, 0, 1).Add(time.Hour))
		text := formatReminder(room, persistence.KindDayAhead, now)

		for _, want := range []string{"Planning", "Room 1", "Tomorrow", "15.03.2024", "14:00", "weekly planning"} {
			if !strings.Contains(text, want) {
				t.Errorf("expected %q in reminder:\n%s", want, text)
			}
		}
	})

	t.Run("imminent", func(t *testing.T) {
		room := dueRoomFixture("room-2", "owner-1", now.Add(30*time.Minute))
		text := formatReminder(room, persistence.KindThirtyMinutes, now)

		if !strings.Contains(text, "starts soon") {
			t.Errorf("expected imminent wording in reminder:\n%s", text)
		}
		if !strings.Contains(text, "Today") {
			t.Errorf("expected Today label in reminder:\n%s", text)
		}
		if !strings.Contains(text, "13:30") {
			t.Errorf("expected start clock in reminder:\n%s", text)
		}
	})
}

func TestRunStopsWhenContextEnds(t *testing.T) {
	store := newFakeStore()
	notifier := NewNotifier(store, &fakeSender{}, Config{Tick: 5 * time.Millisecond}, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := notifier.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context error, got %v", err)
	}
}
