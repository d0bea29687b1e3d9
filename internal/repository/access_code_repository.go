package repository

import (
	"context"
	"errors"
	"time"

	"github.com/aznacademy/aznexam-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccessCodeRepository handles access code data access.
type AccessCodeRepository struct {
	pool *pgxpool.Pool
}

// NewAccessCodeRepository creates a new AccessCodeRepository.
func NewAccessCodeRepository(pool *pgxpool.Pool) *AccessCodeRepository {
	return &AccessCodeRepository{pool: pool}
}

// GetValidBySlot returns the slot's currently valid code, or nil if none.
// Expired codes are superseded rather than deleted, so pick the freshest.
func (r *AccessCodeRepository) GetValidBySlot(ctx context.Context, slotID uuid.UUID, now time.Time) (*model.AccessCode, error) {
	c := &model.AccessCode{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, slot_id, code, valid_until, created_at
		 FROM access_codes
		 WHERE slot_id = $1 AND valid_until > $2
		 ORDER BY valid_until DESC
		 LIMIT 1`, slotID, now,
	).Scan(&c.ID, &c.SlotID, &c.Code, &c.ValidUntil, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a new access code. Returns ErrDuplicateAccessCode if the
// generated code collides with an existing one so the issuer can retry.
func (r *AccessCodeRepository) Create(ctx context.Context, c *model.AccessCode) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO access_codes (slot_id, code, valid_until)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		c.SlotID, c.Code, c.ValidUntil,
	).Scan(&c.ID, &c.CreatedAt)
	if isUniqueViolation(err, "access_codes_code_key") {
		return ErrDuplicateAccessCode
	}
	return err
}
