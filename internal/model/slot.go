package model

import (
	"time"

	"github.com/google/uuid"
)

// Slot is a fixed-width recurring time window for a test. One row exists
// per (test, slot number); the number is derived from wall-clock time.
type Slot struct {
	ID              uuid.UUID `json:"id"`
	TestID          uuid.UUID `json:"test_id"`
	SlotNumber      int       `json:"slot_number"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
}
