package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired   ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid    ErrCode = "TOKEN_INVALID"
	ErrTokenExpired    ErrCode = "TOKEN_EXPIRED"
	ErrAdminKeyInvalid ErrCode = "ADMIN_KEY_INVALID"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Entry ─────────────────────────────────────────────────────────
	ErrTestNotPublished   ErrCode = "TEST_NOT_PUBLISHED"
	ErrTestRequired       ErrCode = "TEST_REQUIRED"
	ErrNoQuestions        ErrCode = "NO_QUESTIONS"
	ErrAccessCodeRequired ErrCode = "ACCESS_CODE_REQUIRED"
	ErrAccessCodeInvalid  ErrCode = "ACCESS_CODE_INVALID"
	ErrAccessCodeExpired  ErrCode = "ACCESS_CODE_EXPIRED"
	ErrNoActiveSlots      ErrCode = "NO_ACTIVE_SLOTS"
	ErrAlreadyAttempted   ErrCode = "ALREADY_ATTEMPTED"
	ErrRetestKeyInvalid   ErrCode = "RETEST_KEY_INVALID"

	// ─── Session ───────────────────────────────────────────────────────
	ErrSessionNotFound  ErrCode = "SESSION_NOT_FOUND"
	ErrSessionSubmitted ErrCode = "SESSION_SUBMITTED"
	ErrSubmitInFlight   ErrCode = "SUBMIT_IN_FLIGHT"
	ErrUnknownQuestion  ErrCode = "UNKNOWN_QUESTION"
	ErrSubmitFailed     ErrCode = "SUBMIT_FAILED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "A session token is required."
	case ErrTokenInvalid:
		return "The session token is not valid."
	case ErrTokenExpired:
		return "The session token has expired."
	case ErrAdminKeyInvalid:
		return "The admin key is not valid."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "The ID format is not valid."
	case ErrInvalidPayload:
		return "The request payload is not valid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "The resource was not found."
	case ErrConflict:
		return "The resource already exists."

	// ─── Entry ─────────────────────────────────────────────────────────
	case ErrTestNotPublished:
		return "This test is not open for registration."
	case ErrTestRequired:
		return "A test must be selected."
	case ErrNoQuestions:
		return "This test has no questions yet."
	case ErrAccessCodeRequired:
		return "An access code is required to start."
	case ErrAccessCodeInvalid:
		return "The access code is not valid."
	case ErrAccessCodeExpired:
		return "The access code has expired. Please ask for the current one."
	case ErrNoActiveSlots:
		return "No test slots are open right now."
	case ErrAlreadyAttempted:
		return "You have already taken this test in this slot."
	case ErrRetestKeyInvalid:
		return "The retest key is invalid, expired, or already used."

	// ─── Session ───────────────────────────────────────────────────────
	case ErrSessionNotFound:
		return "The test session was not found."
	case ErrSessionSubmitted:
		return "This test has already been submitted."
	case ErrSubmitInFlight:
		return "Your submission is already being processed."
	case ErrUnknownQuestion:
		return "The question does not belong to this test."
	case ErrSubmitFailed:
		return "The submission could not be saved. Please try again."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
