package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/meetsburg/internal/persistence"
	"github.com/example/meetsburg/internal/testfixtures"
)

func TestCreateMeetWithRoomsRoundTrip(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	meet := testfixtures.NewMeetFixture(testfixtures.WithMeetPasswordHash("secret-hash"))
	rooms := []persistence.Room{
		testfixtures.NewRoomFixture(meet, 1, testfixtures.WithRoomCapacity(3)),
		testfixtures.NewRoomFixture(meet, 2, testfixtures.WithRoomCapacity(3)),
	}

	if err := harness.Storage.Meets.CreateMeetWithRooms(ctx, meet, rooms); err != nil {
		t.Fatalf("CreateMeetWithRooms returned error: %v", err)
	}

	stored, err := harness.Storage.Meets.GetMeet(ctx, meet.ID)
	if err != nil {
		t.Fatalf("GetMeet returned error: %v", err)
	}
	if stored.OwnerID != meet.OwnerID || stored.Title != meet.Title {
		t.Fatalf("unexpected meet: %+v", stored)
	}
	if !stored.Date.Equal(meet.Date) {
		t.Fatalf("expected date %v, got %v", meet.Date, stored.Date)
	}
	if !stored.StartsAt.Equal(meet.StartsAt) {
		t.Fatalf("expected starts_at %v, got %v", meet.StartsAt, stored.StartsAt)
	}
	if stored.PasswordHash == nil || *stored.PasswordHash != "secret-hash" {
		t.Fatalf("expected stored password hash, got %v", stored.PasswordHash)
	}
	if !stored.IsActive {
		t.Fatal("expected stored meet to be active")
	}

	listed, err := harness.Storage.Rooms.ListRoomsOfMeet(ctx, meet.ID)
	if err != nil {
		t.Fatalf("ListRoomsOfMeet returned error: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(listed))
	}
	for i, room := range listed {
		if room.Number != i+1 {
			t.Fatalf("expected rooms in number order, got %d at index %d", room.Number, i)
		}
		if room.Occupancy != 0 {
			t.Fatalf("expected new room to be empty, got occupancy %d", room.Occupancy)
		}
		if room.Capacity != 3 {
			t.Fatalf("expected capacity 3, got %d", room.Capacity)
		}
	}
}

func TestCreateMeetWithRoomsIsAtomic(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	meet := testfixtures.NewMeetFixture()
	// The second room collides on (meet_id, room_number), so the whole
	// commit must be rolled back.
	rooms := []persistence.Room{
		testfixtures.NewRoomFixture(meet, 1),
		testfixtures.NewRoomFixture(meet, 1),
	}

	err := harness.Storage.Meets.CreateMeetWithRooms(ctx, meet, rooms)
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	if _, err := harness.Storage.Meets.GetMeetIncludingInactive(ctx, meet.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected no partial meet after rollback, got %v", err)
	}
}

func TestCreateMeetWithRoomsRejectsEmptyPlan(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)

	meet := testfixtures.NewMeetFixture()
	err := harness.Storage.Meets.CreateMeetWithRooms(context.Background(), meet, nil)
	if !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
}

func TestGetMeetHidesPastMeets(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	yesterday := time.Now().AddDate(0, 0, -1)
	meet := testfixtures.NewMeetFixture(testfixtures.WithMeetDate(yesterday))
	rooms := []persistence.Room{testfixtures.NewRoomFixture(meet, 1)}
	if err := harness.Storage.Meets.CreateMeetWithRooms(ctx, meet, rooms); err != nil {
		t.Fatalf("CreateMeetWithRooms returned error: %v", err)
	}

	if _, err := harness.Storage.Meets.GetMeet(ctx, meet.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected past meet to be hidden, got %v", err)
	}

	stored, err := harness.Storage.Meets.GetMeetIncludingInactive(ctx, meet.ID)
	if err != nil {
		t.Fatalf("GetMeetIncludingInactive returned error: %v", err)
	}
	if !stored.IsActive {
		t.Fatal("past meet should keep its active flag; only the date hides it")
	}
}

func TestSoftDeleteMeet(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	meet := testfixtures.NewMeetFixture()
	rooms := []persistence.Room{testfixtures.NewRoomFixture(meet, 1)}
	if err := harness.Storage.Meets.CreateMeetWithRooms(ctx, meet, rooms); err != nil {
		t.Fatalf("CreateMeetWithRooms returned error: %v", err)
	}

	t.Run("wrong owner reports miss", func(t *testing.T) {
		deleted, err := harness.Storage.Meets.SoftDeleteMeet(ctx, meet.ID, "someone-else")
		if err != nil {
			t.Fatalf("SoftDeleteMeet returned error: %v", err)
		}
		if deleted {
			t.Fatal("expected delete by non-owner to report false")
		}
	})

	t.Run("owner deletes once", func(t *testing.T) {
		deleted, err := harness.Storage.Meets.SoftDeleteMeet(ctx, meet.ID, meet.OwnerID)
		if err != nil {
			t.Fatalf("SoftDeleteMeet returned error: %v", err)
		}
		if !deleted {
			t.Fatal("expected delete by owner to report true")
		}

		if _, err := harness.Storage.Meets.GetMeet(ctx, meet.ID); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected deleted meet to be hidden, got %v", err)
		}
	})

	t.Run("second delete reports miss", func(t *testing.T) {
		deleted, err := harness.Storage.Meets.SoftDeleteMeet(ctx, meet.ID, meet.OwnerID)
		if err != nil {
			t.Fatalf("SoftDeleteMeet returned error: %v", err)
		}
		if deleted {
			t.Fatal("expected repeated delete to report false")
		}
	})
}

func TestListMeetsByOwnerNewestFirst(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	owner := "owner-listing"
	older := testfixtures.NewMeetFixture(testfixtures.WithMeetOwner(owner))
	older.CreatedAt = testfixtures.ReferenceTime()
	newer := testfixtures.NewMeetFixture(testfixtures.WithMeetOwner(owner))
	newer.CreatedAt = testfixtures.ReferenceTime().Add(time.Hour)
	foreign := testfixtures.NewMeetFixture()

	for _, meet := range []persistence.Meet{older, newer, foreign} {
		rooms := []persistence.Room{testfixtures.NewRoomFixture(meet, 1)}
		if err := harness.Storage.Meets.CreateMeetWithRooms(ctx, meet, rooms); err != nil {
			t.Fatalf("CreateMeetWithRooms returned error: %v", err)
		}
	}

	if _, err := harness.Storage.Meets.SoftDeleteMeet(ctx, older.ID, owner); err != nil {
		t.Fatalf("SoftDeleteMeet returned error: %v", err)
	}

	meets, err := harness.Storage.Meets.ListMeetsByOwner(ctx, owner)
	if err != nil {
		t.Fatalf("ListMeetsByOwner returned error: %v", err)
	}
	if len(meets) != 1 {
		t.Fatalf("expected only the remaining meet, got %d", len(meets))
	}
	if meets[0].ID != newer.ID {
		t.Fatalf("expected %s, got %s", newer.ID, meets[0].ID)
	}
}
