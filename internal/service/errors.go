package service

import "errors"

// Sentinel errors mapped to API error codes by the handlers. Validation
// failures surface to the user with no partial state created; storage
// failures wrap and propagate as internal errors.
var (
	ErrTestNotPublished    = errors.New("test is not published")
	ErrAccessCodeInvalid   = errors.New("access code not found")
	ErrAccessCodeExpired   = errors.New("access code expired")
	ErrNoActiveSlots       = errors.New("no slots exist for this test")
	ErrRetestKeyInvalid    = errors.New("retest key invalid, expired, or used")
	ErrAlreadyAttempted    = errors.New("test already attempted in this slot")
	ErrTestRequired        = errors.New("a test must be selected")
	ErrAccessCodeRequired  = errors.New("an access code is required")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionSubmitted    = errors.New("session already submitted")
	ErrSubmitInFlight      = errors.New("submission already in progress")
	ErrUnknownQuestion     = errors.New("question does not belong to this session")
	ErrStudentCodeConflict = errors.New("could not allocate a unique student code")
	ErrNoQuestions         = errors.New("test has no questions")
)
