package handler

import (
	"errors"
	"net/http"

	"github.com/aznacademy/aznexam-backend/internal/config"
	"github.com/aznacademy/aznexam-backend/internal/model"
	"github.com/aznacademy/aznexam-backend/internal/response"
	"github.com/aznacademy/aznexam-backend/internal/service"
	"github.com/aznacademy/aznexam-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// EntryHandler handles the student entry flow: listing open tests and
// starting a test session.
type EntryHandler struct {
	cfg         *config.Config
	tests       *service.TestService
	sessions    *service.SessionService
	authService *service.AuthService
	log         zerolog.Logger
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(cfg *config.Config, tests *service.TestService, sessions *service.SessionService, authService *service.AuthService, log zerolog.Logger) *EntryHandler {
	return &EntryHandler{
		cfg:         cfg,
		tests:       tests,
		sessions:    sessions,
		authService: authService,
		log:         log.With().Str("component", "entry_handler").Logger(),
	}
}

// ListTests godoc
// GET /api/v1/tests
// Lists the tests currently open for registration.
func (h *EntryHandler) ListTests(c *gin.Context) {
	tests, err := h.tests.List(c.Request.Context(), true)
	if err != nil {
		h.log.Error().Err(err).Msg("List published tests failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"tests": tests})
}

// StartSession godoc
// POST /api/v1/entry/start
// Validates the entry payload and starts a new test session. On success the
// client receives its shuffled paper and a bearer token bound to the session.
func (h *EntryHandler) StartSession(c *gin.Context) {
	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, err := h.sessions.Start(c.Request.Context(), &req)
	if err != nil {
		status, code := entryErrorCode(err)
		if code == response.ErrInternal {
			h.log.Error().Err(err).Msg("Start session failed")
		}
		response.Fail(c, status, code)
		return
	}

	token, err := h.authService.MintSessionToken(sess.ID, h.cfg.SessionTokenTTL(sess.Test.DurationMinutes))
	if err != nil {
		h.log.Error().Err(err).Str("session_id", sess.ID.String()).Msg("Mint session token failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"token":   token,
		"session": sess.View(),
	})
}

// entryErrorCode maps entry-path service errors to HTTP status and API code.
func entryErrorCode(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrTestRequired):
		return http.StatusBadRequest, response.ErrTestRequired
	case errors.Is(err, service.ErrTestNotPublished):
		return http.StatusForbidden, response.ErrTestNotPublished
	case errors.Is(err, service.ErrNoQuestions):
		return http.StatusConflict, response.ErrNoQuestions
	case errors.Is(err, service.ErrAccessCodeRequired):
		return http.StatusBadRequest, response.ErrAccessCodeRequired
	case errors.Is(err, service.ErrAccessCodeInvalid):
		return http.StatusUnauthorized, response.ErrAccessCodeInvalid
	case errors.Is(err, service.ErrAccessCodeExpired):
		return http.StatusUnauthorized, response.ErrAccessCodeExpired
	case errors.Is(err, service.ErrNoActiveSlots):
		return http.StatusConflict, response.ErrNoActiveSlots
	case errors.Is(err, service.ErrRetestKeyInvalid):
		return http.StatusUnauthorized, response.ErrRetestKeyInvalid
	case errors.Is(err, service.ErrAlreadyAttempted):
		return http.StatusConflict, response.ErrAlreadyAttempted
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}
