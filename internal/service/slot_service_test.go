package service

import (
	"context"
	"testing"
	"time"

	"github.com/aznacademy/aznexam-backend/internal/model"
	"github.com/google/uuid"
)

func TestSlotNumberAt(t *testing.T) {
	day := func(h, m int) time.Time {
		return time.Date(2026, 9, 1, h, m, 0, 0, time.Local)
	}

	tests := []struct {
		at   time.Time
		want int
	}{
		{day(0, 0), 1},
		{day(1, 59), 1},
		{day(2, 0), 2},
		{day(10, 30), 6},
		{day(11, 59), 6},
		{day(12, 0), 7},
		{day(23, 59), 12},
	}
	for _, tt := range tests {
		if got := SlotNumberAt(tt.at); got != tt.want {
			t.Errorf("SlotNumberAt(%v) = %d, want %d", tt.at, got, tt.want)
		}
	}
}

func TestSlotNumberStableWithinWindow(t *testing.T) {
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.Local)
	base := SlotNumberAt(start)
	for _, offset := range []time.Duration{0, time.Minute, time.Hour, 2*time.Hour - time.Second} {
		if got := SlotNumberAt(start.Add(offset)); got != base {
			t.Errorf("SlotNumberAt(+%v) = %d, want %d (same window)", offset, got, base)
		}
	}
	if got := SlotNumberAt(start.Add(2 * time.Hour)); got != base+1 {
		t.Errorf("next window = %d, want %d", got, base+1)
	}
}

func TestGetOrCreateSlot(t *testing.T) {
	store := &memSlotStore{slots: map[string]*model.Slot{}}
	svc := NewSlotService(store)
	svc.now = func() time.Time { return testClock }
	testID := uuid.New()
	ctx := context.Background()

	slot, err := svc.GetOrCreateSlot(ctx, testID)
	if err != nil {
		t.Fatalf("GetOrCreateSlot: %v", err)
	}
	if slot.SlotNumber != SlotNumberAt(testClock) {
		t.Errorf("slot number = %d, want %d", slot.SlotNumber, SlotNumberAt(testClock))
	}
	if slot.DurationMinutes != SlotWidthMinutes {
		t.Errorf("duration = %d, want %d", slot.DurationMinutes, SlotWidthMinutes)
	}
	if !slot.EndTime.Equal(slot.StartTime.Add(2 * time.Hour)) {
		t.Errorf("window [%v, %v) is not 2h wide", slot.StartTime, slot.EndTime)
	}
	if !slot.StartTime.After(testClock.Add(-2*time.Hour)) || slot.StartTime.After(testClock) {
		t.Errorf("start %v does not contain %v", slot.StartTime, testClock)
	}

	// Second call within the window returns the same row.
	again, err := svc.GetOrCreateSlot(ctx, testID)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != slot.ID {
		t.Errorf("second call minted a new slot: %s vs %s", again.ID, slot.ID)
	}
	if len(store.slots) != 1 {
		t.Errorf("slot rows = %d, want 1", len(store.slots))
	}
}
