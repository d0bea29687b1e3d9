package model

import (
	"github.com/google/uuid"
)

// Answer is one student answer row, created together with its Submission.
// IsCorrect is tri-state: nil means the answer awaits manual review.
type Answer struct {
	ID            uuid.UUID `json:"id"`
	SubmissionID  uuid.UUID `json:"submission_id"`
	QuestionID    uuid.UUID `json:"question_id"`
	StudentAnswer []string  `json:"student_answer"`
	IsCorrect     *bool     `json:"is_correct"`
	MarksAwarded  float64   `json:"marks_awarded"`
}
