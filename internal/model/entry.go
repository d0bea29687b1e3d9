package model

import (
	"github.com/google/uuid"
)

// StartSessionRequest is the student entry payload. TestID and AccessCode
// are normally required; a retest key alone is accepted on the global-lookup
// convenience path, where the bound test resolves from the key.
type StartSessionRequest struct {
	TestID           *uuid.UUID `json:"test_id" binding:"omitempty"`
	StudentName      string     `json:"student_name" binding:"required,min=2,max=100"`
	FatherName       string     `json:"father_name" binding:"required,min=2,max=100"`
	ClassApplyingFor string     `json:"class_applying_for" binding:"required,min=1,max=20"`
	AccessCode       string     `json:"access_code" binding:"omitempty,len=6"`
	RetestKey        string     `json:"retest_key" binding:"omitempty,min=4,max=32"`
}

// SaveAnswerRequest is the payload for autosaving one answer.
type SaveAnswerRequest struct {
	Answer []string `json:"answer" binding:"required"`
}

// ViolationRequest reports one anti-cheat violation event from the client.
type ViolationRequest struct {
	Kind string `json:"kind" binding:"required,oneof=tab_switch fullscreen_exit"`
}
