package repository

import (
	"context"
	"time"

	"github.com/aznacademy/aznexam-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RetestKeyRepository handles retest key data access.
type RetestKeyRepository struct {
	pool *pgxpool.Pool
}

// NewRetestKeyRepository creates a new RetestKeyRepository.
func NewRetestKeyRepository(pool *pgxpool.Pool) *RetestKeyRepository {
	return &RetestKeyRepository{pool: pool}
}

const retestKeyColumns = `id, test_id, submission_id, slot_number, student_name, key, is_used, used_by_submission_id, expires_at, created_at`

// Create inserts a new retest key.
func (r *RetestKeyRepository) Create(ctx context.Context, k *model.RetestKey) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO retest_keys (test_id, submission_id, slot_number, student_name, key, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		k.TestID, k.SubmissionID, k.SlotNumber, k.StudentName, k.Key, k.ExpiresAt,
	).Scan(&k.ID, &k.CreatedAt)
}

// FindActive looks up an unused, unexpired key scoped to a test.
func (r *RetestKeyRepository) FindActive(ctx context.Context, key string, testID uuid.UUID, now time.Time) (*model.RetestKey, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+retestKeyColumns+`
		 FROM retest_keys
		 WHERE key = $1 AND test_id = $2 AND is_used = FALSE AND expires_at > $3
		 ORDER BY created_at DESC
		 LIMIT 1`, key, testID, now))
}

// FindActiveGlobal looks up an unused, unexpired key by value alone, with no
// test pre-selected. The bound test/slot/student resolve implicitly from the
// key row. Convenience path for students; weakens per-test scoping.
func (r *RetestKeyRepository) FindActiveGlobal(ctx context.Context, key string, now time.Time) (*model.RetestKey, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+retestKeyColumns+`
		 FROM retest_keys
		 WHERE key = $1 AND is_used = FALSE AND expires_at > $2
		 ORDER BY created_at DESC
		 LIMIT 1`, key, now))
}

// MarkUsed consumes a key and links the submission that consumed it.
// Calling it twice is a harmless overwrite.
func (r *RetestKeyRepository) MarkUsed(ctx context.Context, keyID, submissionID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE retest_keys
		 SET is_used = TRUE, used_by_submission_id = $2
		 WHERE id = $1`, keyID, submissionID)
	return err
}

// ListByTest retrieves all keys issued for a test, newest first.
func (r *RetestKeyRepository) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.RetestKey, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+retestKeyColumns+`
		 FROM retest_keys
		 WHERE test_id = $1
		 ORDER BY created_at DESC`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []model.RetestKey
	for rows.Next() {
		var k model.RetestKey
		if err := rows.Scan(&k.ID, &k.TestID, &k.SubmissionID, &k.SlotNumber, &k.StudentName, &k.Key, &k.IsUsed, &k.UsedBySubmissionID, &k.ExpiresAt, &k.CreatedAt); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *RetestKeyRepository) scanOne(row rowScanner) (*model.RetestKey, error) {
	k := &model.RetestKey{}
	err := row.Scan(&k.ID, &k.TestID, &k.SubmissionID, &k.SlotNumber, &k.StudentName, &k.Key, &k.IsUsed, &k.UsedBySubmissionID, &k.ExpiresAt, &k.CreatedAt)
	if err != nil {
		return nil, err
	}
	return k, nil
}
