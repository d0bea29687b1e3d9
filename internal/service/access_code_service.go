package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aznacademy/aznexam-backend/internal/model"
	"github.com/aznacademy/aznexam-backend/internal/repository"
	"github.com/google/uuid"
)

const (
	accessCodeLength = 6
	// codeMintAttempts bounds regeneration when a freshly generated code
	// collides with an existing one (36^6 keyspace, so rarely more than 1).
	codeMintAttempts = 5
)

// AccessCodeStore is the persistence surface of the issuer.
// *repository.AccessCodeRepository satisfies it.
type AccessCodeStore interface {
	GetValidBySlot(ctx context.Context, slotID uuid.UUID, now time.Time) (*model.AccessCode, error)
	Create(ctx context.Context, c *model.AccessCode) error
}

// AccessCodeService issues and validates the short rotating codes that gate
// entry into a test during a slot.
type AccessCodeService struct {
	slots SlotStore
	codes AccessCodeStore
	now   func() time.Time
}

// NewAccessCodeService creates a new AccessCodeService.
func NewAccessCodeService(slots SlotStore, codes AccessCodeStore) *AccessCodeService {
	return &AccessCodeService{slots: slots, codes: codes, now: time.Now}
}

// GetOrCreate returns the slot's currently valid code unchanged, minting a
// new one only when none is valid. Codes are stable for their lifetime;
// validity is never extended, only replaced. Display clients poll this and
// show a countdown toward ValidUntil.
func (s *AccessCodeService) GetOrCreate(ctx context.Context, slotID uuid.UUID) (*model.AccessCode, error) {
	now := s.now()

	code, err := s.codes.GetValidBySlot(ctx, slotID, now)
	if err != nil {
		return nil, fmt.Errorf("get valid code: %w", err)
	}
	if code != nil {
		return code, nil
	}

	for attempt := 0; attempt < codeMintAttempts; attempt++ {
		code = &model.AccessCode{
			SlotID:     slotID,
			Code:       randomCode(accessCodeLength),
			ValidUntil: now.Add(slotWidth),
		}
		err = s.codes.Create(ctx, code)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, repository.ErrDuplicateAccessCode) {
			return nil, fmt.Errorf("create code: %w", err)
		}
	}

	return nil, fmt.Errorf("mint access code: %w", err)
}

// CodeValidation is the outcome of validating an entered access code.
type CodeValidation struct {
	SlotID     uuid.UUID
	SlotNumber int
}

// ValidateAccessCode scans all of the test's slots and codes for a matching,
// non-expired code. The returned slot number is the authoritative slot
// binding for the resulting submission, not whatever the client computed.
func (s *AccessCodeService) ValidateAccessCode(ctx context.Context, testID uuid.UUID, code string) (*CodeValidation, error) {
	rows, err := s.slots.ListCodesByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("list codes: %w", err)
	}

	if len(rows) == 0 {
		hasSlots, err := s.slots.HasSlots(ctx, testID)
		if err != nil {
			return nil, fmt.Errorf("check slots: %w", err)
		}
		if !hasSlots {
			return nil, ErrNoActiveSlots
		}
		return nil, ErrAccessCodeInvalid
	}

	now := s.now()
	expired := false
	for _, row := range rows {
		if row.Code != code {
			continue
		}
		if now.Before(row.ValidUntil) {
			return &CodeValidation{SlotID: row.SlotID, SlotNumber: row.SlotNumber}, nil
		}
		expired = true
	}

	if expired {
		return nil, ErrAccessCodeExpired
	}
	return nil, ErrAccessCodeInvalid
}
