package handler

import (
	"errors"
	"net/http"

	"github.com/aznacademy/aznexam-backend/internal/middleware"
	"github.com/aznacademy/aznexam-backend/internal/model"
	"github.com/aznacademy/aznexam-backend/internal/response"
	"github.com/aznacademy/aznexam-backend/internal/service"
	"github.com/aznacademy/aznexam-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionHandler handles the in-test surface: the paper, answer autosave,
// violation reporting, recovery, and submission.
type SessionHandler struct {
	sessions *service.SessionService
	log      zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *service.SessionService, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		log:      log.With().Str("component", "session_handler").Logger(),
	}
}

// GetPaper godoc
// GET /api/v1/session
// Returns the session's shuffled paper, with correct answers stripped.
func (h *SessionHandler) GetPaper(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": sess.View()})
}

// GetState godoc
// GET /api/v1/session/state
// Returns the recovery snapshot: remaining time, saved answers, counters.
func (h *SessionHandler) GetState(c *gin.Context) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	state, err := h.sessions.State(c.Request.Context(), sessionID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"state": state})
}

// SaveAnswer godoc
// PUT /api/v1/session/answers/:question_id
// Autosaves one answer. Saving the empty list clears the answer.
func (h *SessionHandler) SaveAnswer(c *gin.Context) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessions.SaveAnswer(c.Request.Context(), sessionID, questionID, req.Answer); err != nil {
		status, code := sessionErrorCode(err)
		response.Fail(c, status, code)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"saved": true})
}

// ReportViolation godoc
// POST /api/v1/session/violations
// Records one anti-cheat violation. The response carries the updated
// counters and whether the session was force-terminated.
func (h *SessionHandler) ReportViolation(c *gin.Context) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.ViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	status, err := h.sessions.RecordViolation(c.Request.Context(), sessionID, service.ViolationKind(req.Kind))
	if err != nil {
		code, apiCode := sessionErrorCode(err)
		response.Fail(c, code, apiCode)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"violation": status})
}

// Submit godoc
// POST /api/v1/session/submit
// Submits the session. Safe to retry: a second call after success returns
// the same result.
func (h *SessionHandler) Submit(c *gin.Context) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sub, err := h.sessions.Submit(c.Request.Context(), sessionID)
	if err != nil {
		status, code := sessionErrorCode(err)
		if code == response.ErrInternal {
			h.log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Submit failed")
			code = response.ErrSubmitFailed
		}
		response.Fail(c, status, code)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"result": sub})
}

// GetResult godoc
// GET /api/v1/session/result
// Returns the graded submission of an already-submitted session.
func (h *SessionHandler) GetResult(c *gin.Context) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sub, err := h.sessions.Result(sessionID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"result": sub})
}

func (h *SessionHandler) session(c *gin.Context) (*service.TestSession, bool) {
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}
	sess, err := h.sessions.Get(sessionID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return nil, false
	}
	return sess, true
}

// sessionErrorCode maps in-test service errors to HTTP status and API code.
func sessionErrorCode(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, response.ErrSessionNotFound
	case errors.Is(err, service.ErrSessionSubmitted):
		return http.StatusConflict, response.ErrSessionSubmitted
	case errors.Is(err, service.ErrSubmitInFlight):
		return http.StatusConflict, response.ErrSubmitInFlight
	case errors.Is(err, service.ErrUnknownQuestion):
		return http.StatusBadRequest, response.ErrUnknownQuestion
	case errors.Is(err, service.ErrStudentCodeConflict):
		return http.StatusServiceUnavailable, response.ErrSubmitFailed
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}
