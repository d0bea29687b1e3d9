package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aznacademy/aznexam-backend/internal/model"
	"github.com/aznacademy/aznexam-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SlotWidthMinutes is the fixed width of every test slot. Slot numbers are
// derived from wall-clock time anchored to local midnight, so a slot's
// number is stable for its whole window and increases across the day.
const SlotWidthMinutes = 120

const slotWidth = SlotWidthMinutes * time.Minute

// SlotStore is the persistence surface the slot and access-code services
// need. *repository.SlotRepository satisfies it.
type SlotStore interface {
	GetByTestAndNumber(ctx context.Context, testID uuid.UUID, slotNumber int) (*model.Slot, error)
	Create(ctx context.Context, s *model.Slot) error
	ListCodesByTest(ctx context.Context, testID uuid.UUID) ([]repository.SlotCode, error)
	HasSlots(ctx context.Context, testID uuid.UUID) (bool, error)
}

// SlotService computes the current slot and idempotently materializes its
// row.
type SlotService struct {
	slots SlotStore
	now   func() time.Time
}

// NewSlotService creates a new SlotService.
func NewSlotService(slots SlotStore) *SlotService {
	return &SlotService{slots: slots, now: time.Now}
}

// SlotNumberAt returns the 1-based slot number of the instant t.
func SlotNumberAt(t time.Time) int {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return int(t.Sub(midnight)/slotWidth) + 1
}

// slotBounds returns the [start, end) window of slotNumber on t's day.
func slotBounds(t time.Time, slotNumber int) (time.Time, time.Time) {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	start := midnight.Add(time.Duration(slotNumber-1) * slotWidth)
	return start, start.Add(slotWidth)
}

// GetOrCreateSlot finds the slot row for (test, current slot number),
// inserting it on first access. The lookup-then-insert is not atomic; a
// concurrent insert loses to UNIQUE(test_id, slot_number) and re-reads.
func (s *SlotService) GetOrCreateSlot(ctx context.Context, testID uuid.UUID) (*model.Slot, error) {
	now := s.now()
	slotNumber := SlotNumberAt(now)

	slot, err := s.slots.GetByTestAndNumber(ctx, testID, slotNumber)
	if err == nil {
		return slot, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get slot: %w", err)
	}

	start, end := slotBounds(now, slotNumber)
	slot = &model.Slot{
		TestID:          testID,
		SlotNumber:      slotNumber,
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: SlotWidthMinutes,
	}

	if err := s.slots.Create(ctx, slot); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost a concurrent create. The row exists now; re-read it.
			slot, err = s.slots.GetByTestAndNumber(ctx, testID, slotNumber)
			if err != nil {
				return nil, fmt.Errorf("concurrent slot create detected, but re-read failed: %w", err)
			}
			return slot, nil
		}
		return nil, fmt.Errorf("create slot: %w", err)
	}

	return slot, nil
}
