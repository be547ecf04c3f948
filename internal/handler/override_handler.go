package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saintraiser1433/react-attendance-system-sub001/internal/service"
	appErrors "github.com/saintraiser1433/react-attendance-system-sub001/pkg/errors"
	"github.com/saintraiser1433/react-attendance-system-sub001/pkg/response"
)

// OverrideHandler exposes schedule override endpoints.
type OverrideHandler struct {
	overrides *service.OverrideService
}

// NewOverrideHandler constructs handler.
func NewOverrideHandler(overrides *service.OverrideService) *OverrideHandler {
	return &OverrideHandler{overrides: overrides}
}

// Submit godoc
// @Summary Submit a date-specific schedule override
// @Tags Overrides
// @Accept json
// @Produce json
// @Param payload body service.SubmitOverrideRequest true "Override payload"
// @Success 201 {object} response.Envelope
// @Router /overrides [post]
func (h *OverrideHandler) Submit(c *gin.Context) {
	var req service.SubmitOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	override, err := h.overrides.Submit(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, override)
}

// Review godoc
// @Summary Approve or reject a pending override
// @Tags Overrides
// @Accept json
// @Produce json
// @Param id path string true "Override ID"
// @Param payload body service.ReviewOverrideRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Router /overrides/{id}/status [patch]
func (h *OverrideHandler) Review(c *gin.Context) {
	var req service.ReviewOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	override, err := h.overrides.Review(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, override, nil)
}
