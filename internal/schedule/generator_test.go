package schedule

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateProducesContiguousSlots(t *testing.T) {
	start := time.Date(2024, time.March, 14, 14, 0, 0, 0, time.Local)

	slots, err := Generate(start, 3, 20)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}

	for i, slot := range slots {
		if slot.Number != i+1 {
			t.Errorf("slot %d: expected number %d, got %d", i, i+1, slot.Number)
		}
		wantStart := start.Add(time.Duration(i) * 20 * time.Minute)
		if !slot.StartsAt.Equal(wantStart) {
			t.Errorf("slot %d: expected start %v, got %v", i, wantStart, slot.StartsAt)
		}
		if !slot.EndsAt.Equal(wantStart.Add(20 * time.Minute)) {
			t.Errorf("slot %d: expected end %v, got %v", i, wantStart.Add(20*time.Minute), slot.EndsAt)
		}
	}

	if got := slots[2].EndsAt; !got.Equal(start.Add(time.Hour)) {
		t.Fatalf("expected last slot to end at %v, got %v", start.Add(time.Hour), got)
	}
}

func TestGenerateAdjacentSlotsShareBoundary(t *testing.T) {
	start := time.Date(2024, time.March, 14, 9, 30, 0, 0, time.Local)

	slots, err := Generate(start, 6, 100)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	for i := 1; i < len(slots); i++ {
		if !slots[i].StartsAt.Equal(slots[i-1].EndsAt) {
			t.Fatalf("slot %d does not start where slot %d ends: %v vs %v",
				i+1, i, slots[i].StartsAt, slots[i-1].EndsAt)
		}
	}
}

func TestGenerateValidation(t *testing.T) {
	start := time.Date(2024, time.March, 14, 14, 0, 0, 0, time.Local)

	tests := []struct {
		name      string
		count     int
		minutes   int
		wantField string
		wantMax   int
	}{
		{name: "zero rooms", count: 0, minutes: 30, wantField: "room_count"},
		{name: "too many rooms", count: 61, minutes: 30, wantField: "room_count"},
		{name: "duration too short", count: 3, minutes: 9, wantField: "room_duration"},
		{name: "duration too long", count: 1, minutes: 601, wantField: "room_duration"},
		{name: "daily cap exceeded", count: 40, minutes: 20, wantField: "room_count", wantMax: 30},
		{name: "daily cap exact fit rejected just above", count: 7, minutes: 90, wantField: "room_count", wantMax: 6},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Generate(start, tc.count, tc.minutes)
			var limitErr *LimitError
			if !errors.As(err, &limitErr) {
				t.Fatalf("expected LimitError, got %v", err)
			}
			if limitErr.Field != tc.wantField {
				t.Fatalf("expected field %q, got %q", tc.wantField, limitErr.Field)
			}
			if limitErr.MaxAdmissibleRooms != tc.wantMax {
				t.Fatalf("expected max admissible rooms %d, got %d", tc.wantMax, limitErr.MaxAdmissibleRooms)
			}
		})
	}
}

func TestGenerateValidationOrder(t *testing.T) {
	start := time.Date(2024, time.March, 14, 14, 0, 0, 0, time.Local)

	// Both the count and the duration are out of range; the count check
	// runs first.
	_, err := Generate(start, 0, 5)
	var limitErr *LimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected LimitError, got %v", err)
	}
	if limitErr.Field != "room_count" {
		t.Fatalf("expected room_count to be reported first, got %q", limitErr.Field)
	}
}

func TestGenerateAcceptsBoundaryValues(t *testing.T) {
	start := time.Date(2024, time.March, 14, 8, 0, 0, 0, time.Local)

	if _, err := Generate(start, 60, 10); err != nil {
		t.Fatalf("60 rooms of 10 minutes should fit the cap: %v", err)
	}
	if _, err := Generate(start, 1, 600); err != nil {
		t.Fatalf("1 room of 600 minutes should fit the cap: %v", err)
	}
}
