package repository

import (
	"context"
	"fmt"

	"github.com/aznacademy/aznexam-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByTest retrieves all questions for a test in canonical number order.
// Display order is shuffled per session and never persisted.
func (r *QuestionRepository) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, number, type, text, options, correct_answers, marks, case_sensitive
		 FROM questions WHERE test_id = $1
		 ORDER BY number`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.TestID, &q.Number, &q.Type, &q.Text, &q.Options, &q.CorrectAnswers, &q.Marks, &q.CaseSensitive); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ReplaceAll swaps out a test's questions in one transaction and refreshes
// the test's total marks from the new set.
func (r *QuestionRepository) ReplaceAll(ctx context.Context, testID uuid.UUID, questions []model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE test_id = $1`, testID); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}

	var totalMarks float64
	for i := range questions {
		q := &questions[i]
		q.TestID = testID
		totalMarks += q.Marks
		err := tx.QueryRow(ctx,
			`INSERT INTO questions (test_id, number, type, text, options, correct_answers, marks, case_sensitive)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id`,
			q.TestID, q.Number, q.Type, q.Text, q.Options, q.CorrectAnswers, q.Marks, q.CaseSensitive,
		).Scan(&q.ID)
		if err != nil {
			return fmt.Errorf("insert question %d: %w", q.Number, err)
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE tests SET total_marks = $2, updated_at = NOW() WHERE id = $1`,
		testID, totalMarks,
	); err != nil {
		return fmt.Errorf("update total marks: %w", err)
	}

	return tx.Commit(ctx)
}
