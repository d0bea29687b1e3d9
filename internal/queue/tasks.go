// Package queue defines the background task payloads exchanged between the
// request path and the workers, plus the Redis-backed dispatcher. Retest
// invalidation and key consumption must never block the critical submit
// path, so they travel through here instead of being awaited inline.
package queue

import (
	"github.com/google/uuid"
)

// RetestAction discriminates the two task kinds on the retest queue.
type RetestAction string

const (
	// ActionInvalidatePrevious marks a superseded submission.
	ActionInvalidatePrevious RetestAction = "invalidate_previous"
	// ActionConsumeKey marks a retest key used and links its submission.
	ActionConsumeKey RetestAction = "consume_key"
)

// RetestTask is one unit of best-effort retest bookkeeping.
type RetestTask struct {
	Action RetestAction `json:"action"`

	// Invalidation tuple.
	TestID      string `json:"test_id,omitempty"`
	SlotNumber  int    `json:"slot_number,omitempty"`
	StudentName string `json:"student_name,omitempty"`
	FatherName  string `json:"father_name,omitempty"`

	// Key consumption link.
	RetestKeyID  string `json:"retest_key_id,omitempty"`
	SubmissionID string `json:"submission_id,omitempty"`
}

// ViolationEvent is one recorded anti-cheat violation, queued for batch
// persistence and fanned out to the admin monitor.
type ViolationEvent struct {
	SessionID   uuid.UUID `json:"session_id"`
	TestID      uuid.UUID `json:"test_id"`
	StudentName string    `json:"student_name"`
	StudentCode string    `json:"student_code"`
	Kind        string    `json:"kind"`
	Count       int       `json:"count"`
	Timestamp   int64     `json:"timestamp"`
}

// MonitorEvent is what the admin live monitor receives over WebSocket.
type MonitorEvent struct {
	Type        string    `json:"type"`
	TestID      uuid.UUID `json:"test_id"`
	SessionID   uuid.UUID `json:"session_id"`
	StudentName string    `json:"student_name"`
	StudentCode string    `json:"student_code"`
	Detail      string    `json:"detail,omitempty"`
	Timestamp   int64     `json:"timestamp"`
}

const (
	MonitorEventStarted    = "session_started"
	MonitorEventViolation  = "violation"
	MonitorEventSubmitted  = "submitted"
	MonitorEventTerminated = "terminated_malpractice"
)
