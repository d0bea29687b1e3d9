package model

import (
	"time"

	"github.com/google/uuid"
)

// AccessCode is a short rotating credential gating entry into a test during
// a slot. At most one code per slot is valid at any moment; expired codes
// are superseded, never deleted.
type AccessCode struct {
	ID         uuid.UUID `json:"id"`
	SlotID     uuid.UUID `json:"slot_id"`
	Code       string    `json:"code"`
	ValidUntil time.Time `json:"valid_until"`
	CreatedAt  time.Time `json:"created_at"`
}

// Valid reports whether the code is still usable at the given instant.
func (a *AccessCode) Valid(now time.Time) bool {
	return now.Before(a.ValidUntil)
}
