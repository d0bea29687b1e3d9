package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/aznacademy/aznexam-backend/internal/model"
	"github.com/aznacademy/aznexam-backend/internal/response"
	"github.com/aznacademy/aznexam-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// ResultHandler serves the admin submission listing and detail views.
type ResultHandler struct {
	results *service.ResultService
	log     zerolog.Logger
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(results *service.ResultService, log zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		results: results,
		log:     log.With().Str("component", "result_handler").Logger(),
	}
}

// ListSubmissions godoc
// GET /api/v1/admin/tests/:test_id/submissions
// Query: page, per_page, status, slot, needs_review
func (h *ResultHandler) ListSubmissions(c *gin.Context) {
	testID, ok := parseID(c, "test_id")
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	var filter service.ResultFilter
	if raw := c.Query("status"); raw != "" {
		status := model.SubmissionStatus(raw)
		filter.Status = &status
	}
	if raw := c.Query("slot"); raw != "" {
		slot, err := strconv.Atoi(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}
		filter.SlotNumber = &slot
	}
	if raw := c.Query("needs_review"); raw != "" {
		needsReview := raw == "true"
		filter.NeedsReview = &needsReview
	}

	subs, total, err := h.results.List(c.Request.Context(), testID, page, perPage, filter)
	if err != nil {
		h.log.Error().Err(err).Str("test_id", testID.String()).Msg("List submissions failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: int(math.Ceil(float64(total) / float64(perPage))),
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"submissions": subs}, pagination)
}

// GetSubmission godoc
// GET /api/v1/admin/submissions/:submission_id
// Returns one submission with its per-question answers.
func (h *ResultHandler) GetSubmission(c *gin.Context) {
	submissionID, ok := parseID(c, "submission_id")
	if !ok {
		return
	}

	sub, answers, err := h.results.Detail(c.Request.Context(), submissionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Str("submission_id", submissionID.String()).Msg("Get submission failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"submission": sub,
		"answers":    answers,
	})
}
