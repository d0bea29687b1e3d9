package repository

import (
	"context"

	"github.com/aznacademy/aznexam-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestRepository handles test data access.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

const testColumns = `id, title, duration_minutes, total_marks, passing_percentage, is_published, created_at, updated_at`

// Create inserts a new test in unpublished state.
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO tests (title, duration_minutes, passing_percentage)
		 VALUES ($1, $2, $3)
		 RETURNING id, total_marks, is_published, created_at, updated_at`,
		t.Title, t.DurationMinutes, t.PassingPercentage,
	).Scan(&t.ID, &t.TotalMarks, &t.IsPublished, &t.CreatedAt, &t.UpdatedAt)
}

// GetByID retrieves a single test.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t := &model.Test{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+testColumns+` FROM tests WHERE id = $1`, id,
	).Scan(&t.ID, &t.Title, &t.DurationMinutes, &t.TotalMarks, &t.PassingPercentage, &t.IsPublished, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// List retrieves all tests, newest first. publishedOnly restricts to
// published tests (the student entry listing).
func (r *TestRepository) List(ctx context.Context, publishedOnly bool) ([]model.Test, error) {
	query := `SELECT ` + testColumns + ` FROM tests`
	if publishedOnly {
		query += ` WHERE is_published = TRUE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		var t model.Test
		if err := rows.Scan(&t.ID, &t.Title, &t.DurationMinutes, &t.TotalMarks, &t.PassingPercentage, &t.IsPublished, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

// Update applies non-zero fields of the request to a test.
func (r *TestRepository) Update(ctx context.Context, id uuid.UUID, req *model.UpdateTestRequest) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tests SET
			title = COALESCE(NULLIF($2, ''), title),
			duration_minutes = COALESCE($3, duration_minutes),
			passing_percentage = COALESCE($4, passing_percentage),
			updated_at = NOW()
		 WHERE id = $1`,
		id, req.Title, req.DurationMinutes, req.PassingPercentage,
	)
	return err
}

// SetPublished flips the publish flag.
func (r *TestRepository) SetPublished(ctx context.Context, id uuid.UUID, published bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tests SET is_published = $2, updated_at = NOW() WHERE id = $1`,
		id, published,
	)
	return err
}

// Delete removes a test. Questions, slots, and submissions cascade at the
// schema level.
func (r *TestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tests WHERE id = $1`, id)
	return err
}
