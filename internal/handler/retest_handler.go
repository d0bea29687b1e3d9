package handler

import (
	"errors"
	"net/http"

	"github.com/aznacademy/aznexam-backend/internal/model"
	"github.com/aznacademy/aznexam-backend/internal/response"
	"github.com/aznacademy/aznexam-backend/internal/service"
	"github.com/aznacademy/aznexam-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// RetestHandler handles admin issuance and listing of retest keys.
type RetestHandler struct {
	retests *service.RetestService
	log     zerolog.Logger
}

// NewRetestHandler creates a new RetestHandler.
func NewRetestHandler(retests *service.RetestService, log zerolog.Logger) *RetestHandler {
	return &RetestHandler{
		retests: retests,
		log:     log.With().Str("component", "retest_handler").Logger(),
	}
}

// IssueKey godoc
// POST /api/v1/admin/tests/:test_id/retest-keys
// Issues a 24-hour one-time retest key against an existing submission.
func (h *RetestHandler) IssueKey(c *gin.Context) {
	testID, ok := parseID(c, "test_id")
	if !ok {
		return
	}

	var req model.IssueRetestKeyRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	key, err := h.retests.Issue(c.Request.Context(), testID, req.SubmissionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Warn().Err(err).Str("test_id", testID.String()).Msg("Issue retest key rejected")
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"retest_key": key})
}

// ListKeys godoc
// GET /api/v1/admin/tests/:test_id/retest-keys
func (h *RetestHandler) ListKeys(c *gin.Context) {
	testID, ok := parseID(c, "test_id")
	if !ok {
		return
	}

	keys, err := h.retests.ListByTest(c.Request.Context(), testID)
	if err != nil {
		h.log.Error().Err(err).Str("test_id", testID.String()).Msg("List retest keys failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"retest_keys": keys})
}
