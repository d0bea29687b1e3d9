package repository

import (
	"context"
	"fmt"

	"github.com/aznacademy/aznexam-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubmissionRepository handles submission and answer data access.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

const submissionColumns = `id, test_id, student_name, father_name, class_applying_for, student_code,
	slot_number, tab_switch_count, time_taken_seconds, score, total_marks, percentage,
	correct_count, wrong_count, needs_manual_review, malpractice_detected, status,
	retest_key_used, submitted_at`

// CreateWithAnswers inserts a submission and all of its answer rows in one
// transaction, so a failed answer write never leaves an orphaned submission.
// Returns ErrDuplicateStudentCode when UNIQUE(student_code) fires; the
// caller retries with a regenerated code.
func (r *SubmissionRepository) CreateWithAnswers(ctx context.Context, s *model.Submission, answers []model.Answer) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO submissions (test_id, student_name, father_name, class_applying_for,
			student_code, slot_number, tab_switch_count, time_taken_seconds, score,
			total_marks, percentage, correct_count, wrong_count, needs_manual_review,
			malpractice_detected, status, retest_key_used)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 RETURNING id, submitted_at`,
		s.TestID, s.StudentName, s.FatherName, s.ClassApplyingFor,
		s.StudentCode, s.SlotNumber, s.TabSwitchCount, s.TimeTakenSeconds, s.Score,
		s.TotalMarks, s.Percentage, s.CorrectCount, s.WrongCount, s.NeedsManualReview,
		s.MalpracticeDetected, s.Status, s.RetestKeyUsed,
	).Scan(&s.ID, &s.SubmittedAt)
	if err != nil {
		if isUniqueViolation(err, "submissions_student_code_key") {
			return ErrDuplicateStudentCode
		}
		return fmt.Errorf("insert submission: %w", err)
	}

	rows := make([][]interface{}, 0, len(answers))
	for i := range answers {
		a := &answers[i]
		a.ID = uuid.New()
		a.SubmissionID = s.ID
		rows = append(rows, []interface{}{
			a.ID, a.SubmissionID, a.QuestionID, a.StudentAnswer, a.IsCorrect, a.MarksAwarded,
		})
	}

	if _, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"answers"},
		[]string{"id", "submission_id", "question_id", "student_answer", "is_correct", "marks_awarded"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("copy answers: %w", err)
	}

	return tx.Commit(ctx)
}

// ExistsCompleted reports whether a completed submission already exists for
// the exact (test, slot, name, father name) tuple. Only completed rows
// count; auto_submitted and invalidated rows do not block a new attempt.
func (r *SubmissionRepository) ExistsCompleted(ctx context.Context, testID uuid.UUID, slotNumber int, studentName, fatherName string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM submissions
			WHERE test_id = $1 AND slot_number = $2
			  AND student_name = $3 AND father_name = $4
			  AND status = $5
		)`, testID, slotNumber, studentName, fatherName, model.SubmissionStatusCompleted,
	).Scan(&exists)
	return exists, err
}

// CountByTestSlotClass counts prior submissions for the student-code serial.
// Best-effort ordinal only; concurrent registrations may collide.
func (r *SubmissionRepository) CountByTestSlotClass(ctx context.Context, testID uuid.UUID, slotNumber int, class string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions
		 WHERE test_id = $1 AND slot_number = $2 AND class_applying_for = $3`,
		testID, slotNumber, class,
	).Scan(&n)
	return n, err
}

// InvalidatePrevious flips the most recent completed/auto_submitted
// submission matching the tuple to invalidated_by_retest. The score is left
// untouched; the status is purely a marker for admin reporting. No-op when
// nothing matches.
func (r *SubmissionRepository) InvalidatePrevious(ctx context.Context, testID uuid.UUID, slotNumber int, studentName, fatherName string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE submissions SET status = $1
		 WHERE id = (
			SELECT id FROM submissions
			WHERE test_id = $2 AND slot_number = $3
			  AND student_name = $4 AND father_name = $5
			  AND status IN ($6, $7)
			ORDER BY submitted_at DESC
			LIMIT 1
		 )`,
		model.SubmissionStatusInvalidated,
		testID, slotNumber, studentName, fatherName,
		model.SubmissionStatusCompleted, model.SubmissionStatusAutoSubmit,
	)
	return err
}

// GetByID retrieves a single submission.
func (r *SubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	s := &model.Submission{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id,
	).Scan(&s.ID, &s.TestID, &s.StudentName, &s.FatherName, &s.ClassApplyingFor, &s.StudentCode,
		&s.SlotNumber, &s.TabSwitchCount, &s.TimeTakenSeconds, &s.Score, &s.TotalMarks, &s.Percentage,
		&s.CorrectCount, &s.WrongCount, &s.NeedsManualReview, &s.MalpracticeDetected, &s.Status,
		&s.RetestKeyUsed, &s.SubmittedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListByTest retrieves a test's submissions with optional filters and
// pagination, newest first.
func (r *SubmissionRepository) ListByTest(ctx context.Context, testID uuid.UUID, page, perPage int, status *model.SubmissionStatus, slotNumber *int, needsReview *bool) ([]model.Submission, int64, error) {
	offset := (page - 1) * perPage

	baseQuery := ` FROM submissions WHERE test_id = $1`
	args := []any{testID}

	if status != nil {
		args = append(args, *status)
		baseQuery += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if slotNumber != nil {
		args = append(args, *slotNumber)
		baseQuery += fmt.Sprintf(" AND slot_number = $%d", len(args))
	}
	if needsReview != nil {
		args = append(args, *needsReview)
		baseQuery += fmt.Sprintf(" AND needs_manual_review = $%d", len(args))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*)"+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + submissionColumns + baseQuery + `
		ORDER BY submitted_at DESC
		LIMIT $` + fmt.Sprintf("%d", len(args)+1) + ` OFFSET $` + fmt.Sprintf("%d", len(args)+2)
	args = append(args, perPage, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(&s.ID, &s.TestID, &s.StudentName, &s.FatherName, &s.ClassApplyingFor, &s.StudentCode,
			&s.SlotNumber, &s.TabSwitchCount, &s.TimeTakenSeconds, &s.Score, &s.TotalMarks, &s.Percentage,
			&s.CorrectCount, &s.WrongCount, &s.NeedsManualReview, &s.MalpracticeDetected, &s.Status,
			&s.RetestKeyUsed, &s.SubmittedAt); err != nil {
			return nil, 0, err
		}
		subs = append(subs, s)
	}

	return subs, total, rows.Err()
}

// ListAnswers retrieves the answer rows of one submission, in question order.
func (r *SubmissionRepository) ListAnswers(ctx context.Context, submissionID uuid.UUID) ([]model.Answer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.submission_id, a.question_id, a.student_answer, a.is_correct, a.marks_awarded
		 FROM answers a
		 JOIN questions q ON q.id = a.question_id
		 WHERE a.submission_id = $1
		 ORDER BY q.number`, submissionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.ID, &a.SubmissionID, &a.QuestionID, &a.StudentAnswer, &a.IsCorrect, &a.MarksAwarded); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
