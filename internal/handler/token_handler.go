package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saintraiser1433/react-attendance-system-sub001/internal/models"
	"github.com/saintraiser1433/react-attendance-system-sub001/internal/service"
	appErrors "github.com/saintraiser1433/react-attendance-system-sub001/pkg/errors"
	"github.com/saintraiser1433/react-attendance-system-sub001/pkg/qrimg"
	"github.com/saintraiser1433/react-attendance-system-sub001/pkg/response"
)

// TokenHandler exposes identity token endpoints.
type TokenHandler struct {
	tokens *service.TokenService
	terms  periodSource
}

// NewTokenHandler constructs handler.
func NewTokenHandler(tokens *service.TokenService, terms periodSource) *TokenHandler {
	return &TokenHandler{tokens: tokens, terms: terms}
}

// Issue godoc
// @Summary Issue or return the student's identity token for the active period
// @Tags Tokens
// @Accept json
// @Produce json
// @Param payload body service.IssueTokenRequest true "Token payload"
// @Success 200 {object} response.Envelope
// @Router /tokens [post]
func (h *TokenHandler) Issue(c *gin.Context) {
	var req service.IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.IssuerID = actorID(c)

	period, err := resolvePeriod(c.Request.Context(), h.terms)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.tokens.Issue(c.Request.Context(), req, period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"token": token, "payload": models.PayloadFor(token)}, nil)
}

// Verify godoc
// @Summary Verify a scanned token payload against its live record
// @Tags Tokens
// @Accept json
// @Produce json
// @Param payload body models.TokenPayload true "Token payload"
// @Success 200 {object} response.Envelope
// @Router /tokens/verify [post]
func (h *TokenHandler) Verify(c *gin.Context) {
	var payload models.TokenPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	token, err := h.tokens.VerifyLive(c.Request.Context(), payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"valid": true, "student_id": token.StudentID}, nil)
}

// QR godoc
// @Summary Render the student's identity token as a QR PNG
// @Tags Tokens
// @Produce png
// @Param studentId path string true "Student ID"
// @Param size query int false "Image size in pixels"
// @Success 200 {file} binary
// @Router /tokens/{studentId}/qr [get]
func (h *TokenHandler) QR(c *gin.Context) {
	period, err := resolvePeriod(c.Request.Context(), h.terms)
	if err != nil {
		response.Error(c, err)
		return
	}

	req := service.IssueTokenRequest{StudentID: c.Param("studentId"), IssuerID: actorID(c)}
	token, err := h.tokens.Issue(c.Request.Context(), req, period)
	if err != nil {
		response.Error(c, err)
		return
	}

	payload, err := json.Marshal(models.PayloadFor(token))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode token payload"))
		return
	}

	size := queryInt(c, "size", qrimg.DefaultSize)
	png, err := qrimg.EncodePNG(string(payload), size)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render QR code"))
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
