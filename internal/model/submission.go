package model

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus enumerates submission states. Transitions are
// one-directional; the only later change is the invalidation marker applied
// to a prior submission when a retest supersedes it.
type SubmissionStatus string

const (
	SubmissionStatusInProgress  SubmissionStatus = "in_progress"
	SubmissionStatusCompleted   SubmissionStatus = "completed"
	SubmissionStatusAutoSubmit  SubmissionStatus = "auto_submitted"
	SubmissionStatusInvalidated SubmissionStatus = "invalidated_by_retest"
)

// Submission is a graded test attempt, created exactly once at submit time.
type Submission struct {
	ID                  uuid.UUID        `json:"id"`
	TestID              uuid.UUID        `json:"test_id"`
	StudentName         string           `json:"student_name"`
	FatherName          string           `json:"father_name"`
	ClassApplyingFor    string           `json:"class_applying_for"`
	StudentCode         string           `json:"student_code"`
	SlotNumber          int              `json:"slot_number"`
	TabSwitchCount      int              `json:"tab_switch_count"`
	TimeTakenSeconds    int              `json:"time_taken_seconds"`
	Score               float64          `json:"score"`
	TotalMarks          float64          `json:"total_marks"`
	Percentage          float64          `json:"percentage"`
	CorrectCount        int              `json:"correct_count"`
	WrongCount          int              `json:"wrong_count"`
	NeedsManualReview   bool             `json:"needs_manual_review"`
	MalpracticeDetected bool             `json:"malpractice_detected"`
	Status              SubmissionStatus `json:"status"`
	RetestKeyUsed       *string          `json:"retest_key_used,omitempty"`
	SubmittedAt         time.Time        `json:"submitted_at"`
}
