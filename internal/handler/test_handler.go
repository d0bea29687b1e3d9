package handler

import (
	"errors"
	"net/http"

	"github.com/aznacademy/aznexam-backend/internal/model"
	"github.com/aznacademy/aznexam-backend/internal/response"
	"github.com/aznacademy/aznexam-backend/internal/service"
	"github.com/aznacademy/aznexam-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// TestHandler handles the admin test-setup endpoints.
type TestHandler struct {
	tests *service.TestService
	log   zerolog.Logger
}

// NewTestHandler creates a new TestHandler.
func NewTestHandler(tests *service.TestService, log zerolog.Logger) *TestHandler {
	return &TestHandler{
		tests: tests,
		log:   log.With().Str("component", "test_handler").Logger(),
	}
}

// ListTests godoc
// GET /api/v1/admin/tests
func (h *TestHandler) ListTests(c *gin.Context) {
	tests, err := h.tests.List(c.Request.Context(), false)
	if err != nil {
		h.log.Error().Err(err).Msg("List tests failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"tests": tests})
}

// CreateTest godoc
// POST /api/v1/admin/tests
func (h *TestHandler) CreateTest(c *gin.Context) {
	var req model.CreateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	test, err := h.tests.Create(c.Request.Context(), &req)
	if err != nil {
		h.log.Error().Err(err).Msg("Create test failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"test": test})
}

// GetTest godoc
// GET /api/v1/admin/tests/:test_id
func (h *TestHandler) GetTest(c *gin.Context) {
	testID, ok := parseID(c, "test_id")
	if !ok {
		return
	}

	test, err := h.tests.Get(c.Request.Context(), testID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Msg("Get test failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"test": test})
}

// UpdateTest godoc
// PATCH /api/v1/admin/tests/:test_id
func (h *TestHandler) UpdateTest(c *gin.Context) {
	testID, ok := parseID(c, "test_id")
	if !ok {
		return
	}

	var req model.UpdateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	test, err := h.tests.Update(c.Request.Context(), testID, &req)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Msg("Update test failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"test": test})
}

// DeleteTest godoc
// DELETE /api/v1/admin/tests/:test_id
func (h *TestHandler) DeleteTest(c *gin.Context) {
	testID, ok := parseID(c, "test_id")
	if !ok {
		return
	}

	if err := h.tests.Delete(c.Request.Context(), testID); err != nil {
		h.log.Error().Err(err).Msg("Delete test failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// SetPublished godoc
// POST /api/v1/admin/tests/:test_id/publish
// Body: {"published": true|false}
func (h *TestHandler) SetPublished(c *gin.Context) {
	testID, ok := parseID(c, "test_id")
	if !ok {
		return
	}

	var req struct {
		Published *bool `json:"published" binding:"required"`
	}
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.tests.SetPublished(c.Request.Context(), testID, *req.Published); err != nil {
		if errors.Is(err, service.ErrNoQuestions) {
			response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
			return
		}
		h.log.Error().Err(err).Msg("Set published failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"published": *req.Published})
}

// ListQuestions godoc
// GET /api/v1/admin/tests/:test_id/questions
// Returns questions with correct answers; admin-only by routing.
func (h *TestHandler) ListQuestions(c *gin.Context) {
	testID, ok := parseID(c, "test_id")
	if !ok {
		return
	}

	questions, err := h.tests.ListQuestions(c.Request.Context(), testID)
	if err != nil {
		h.log.Error().Err(err).Msg("List questions failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// ReplaceQuestions godoc
// PUT /api/v1/admin/tests/:test_id/questions
// Replaces the full question set and recomputes the test's total marks.
func (h *TestHandler) ReplaceQuestions(c *gin.Context) {
	testID, ok := parseID(c, "test_id")
	if !ok {
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, err := h.tests.ReplaceQuestions(c.Request.Context(), testID, &req)
	if err != nil {
		// Shape violations come back as descriptive errors; anything from
		// the storage layer is internal.
		h.log.Warn().Err(err).Str("test_id", testID.String()).Msg("Replace questions rejected")
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"questions": err.Error(),
		})
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// parseID parses a UUID path parameter, failing the request on bad input.
func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
