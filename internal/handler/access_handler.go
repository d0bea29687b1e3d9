package handler

import (
	"net/http"

	"github.com/aznacademy/aznexam-backend/internal/response"
	"github.com/aznacademy/aznexam-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AccessHandler serves the rotating access code for the hall display. The
// display polls this endpoint and shows the code with a countdown.
type AccessHandler struct {
	slots *service.SlotService
	codes *service.AccessCodeService
	log   zerolog.Logger
}

// NewAccessHandler creates a new AccessHandler.
func NewAccessHandler(slots *service.SlotService, codes *service.AccessCodeService, log zerolog.Logger) *AccessHandler {
	return &AccessHandler{
		slots: slots,
		codes: codes,
		log:   log.With().Str("component", "access_handler").Logger(),
	}
}

// CurrentAccessCode godoc
// GET /api/v1/admin/tests/:test_id/access-code
// Returns the current slot's valid access code, minting slot and code on
// first request of the window. Repeated polls within the window return the
// same code.
func (h *AccessHandler) CurrentAccessCode(c *gin.Context) {
	testID, ok := parseID(c, "test_id")
	if !ok {
		return
	}

	slot, err := h.slots.GetOrCreateSlot(c.Request.Context(), testID)
	if err != nil {
		h.log.Error().Err(err).Str("test_id", testID.String()).Msg("Get or create slot failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	code, err := h.codes.GetOrCreate(c.Request.Context(), slot.ID)
	if err != nil {
		h.log.Error().Err(err).Str("slot_id", slot.ID.String()).Msg("Get or create access code failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"slot":        slot,
		"access_code": code,
	})
}
