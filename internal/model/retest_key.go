package model

import (
	"time"

	"github.com/google/uuid"
)

// RetestKey is a one-time token allowing a student to re-take a test,
// invalidating their prior attempt. Keys expire 24 hours after issuance.
type RetestKey struct {
	ID                 uuid.UUID  `json:"id"`
	TestID             uuid.UUID  `json:"test_id"`
	SubmissionID       uuid.UUID  `json:"submission_id"`
	SlotNumber         int        `json:"slot_number"`
	StudentName        string     `json:"student_name"`
	Key                string     `json:"key"`
	IsUsed             bool       `json:"is_used"`
	UsedBySubmissionID *uuid.UUID `json:"used_by_submission_id,omitempty"`
	ExpiresAt          time.Time  `json:"expires_at"`
	CreatedAt          time.Time  `json:"created_at"`
}

// IssueRetestKeyRequest is the payload for issuing a retest key against an
// existing submission.
type IssueRetestKeyRequest struct {
	SubmissionID uuid.UUID `json:"submission_id" binding:"required"`
}
