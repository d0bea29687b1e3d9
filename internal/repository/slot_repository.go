package repository

import (
	"context"
	"time"

	"github.com/aznacademy/aznexam-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SlotRepository handles slot data access.
type SlotRepository struct {
	pool *pgxpool.Pool
}

// NewSlotRepository creates a new SlotRepository.
func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{pool: pool}
}

// GetByTestAndNumber retrieves the slot row for (test, slot number).
func (r *SlotRepository) GetByTestAndNumber(ctx context.Context, testID uuid.UUID, slotNumber int) (*model.Slot, error) {
	s := &model.Slot{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, test_id, slot_number, start_time, end_time, duration_minutes
		 FROM slots
		 WHERE test_id = $1 AND slot_number = $2`, testID, slotNumber,
	).Scan(&s.ID, &s.TestID, &s.SlotNumber, &s.StartTime, &s.EndTime, &s.DurationMinutes)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a slot row. UNIQUE(test_id, slot_number) makes concurrent
// find-or-create races benign: ON CONFLICT DO NOTHING returns pgx.ErrNoRows,
// which the caller treats as "lost the race, re-read".
func (r *SlotRepository) Create(ctx context.Context, s *model.Slot) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO slots (test_id, slot_number, start_time, end_time, duration_minutes)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (test_id, slot_number) DO NOTHING
		 RETURNING id`,
		s.TestID, s.SlotNumber, s.StartTime, s.EndTime, s.DurationMinutes,
	).Scan(&s.ID)
}

// SlotCode is one row of the slot/access-code join used for code validation
// and for the invigilator display.
type SlotCode struct {
	SlotID     uuid.UUID `json:"slot_id"`
	SlotNumber int       `json:"slot_number"`
	Code       string    `json:"code"`
	ValidUntil time.Time `json:"valid_until"`
}

// ListCodesByTest fetches all of a test's slots together with their access
// codes, newest codes first within a slot.
func (r *SlotRepository) ListCodesByTest(ctx context.Context, testID uuid.UUID) ([]SlotCode, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.slot_number, ac.code, ac.valid_until
		 FROM slots s
		 JOIN access_codes ac ON ac.slot_id = s.id
		 WHERE s.test_id = $1
		 ORDER BY s.slot_number, ac.valid_until DESC`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []SlotCode
	for rows.Next() {
		var c SlotCode
		if err := rows.Scan(&c.SlotID, &c.SlotNumber, &c.Code, &c.ValidUntil); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

// HasSlots reports whether any slot row exists for the test.
func (r *SlotRepository) HasSlots(ctx context.Context, testID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM slots WHERE test_id = $1)`, testID,
	).Scan(&exists)
	return exists, err
}
