package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/saintraiser1433/react-attendance-system-sub001/internal/models"
	"github.com/saintraiser1433/react-attendance-system-sub001/internal/service"
	appErrors "github.com/saintraiser1433/react-attendance-system-sub001/pkg/errors"
	"github.com/saintraiser1433/react-attendance-system-sub001/pkg/response"
)

// ScanHandler exposes the attendance capture endpoints.
type ScanHandler struct {
	scans *service.ScanService
	terms periodSource
}

// NewScanHandler constructs handler.
func NewScanHandler(scans *service.ScanService, terms periodSource) *ScanHandler {
	return &ScanHandler{scans: scans, terms: terms}
}

// Scan godoc
// @Summary Record a time-in or time-out scan
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.ScanRequest true "Scan payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/scan [post]
func (h *ScanHandler) Scan(c *gin.Context) {
	var req service.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	period, err := resolvePeriod(c.Request.Context(), h.terms)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.scans.Scan(c.Request.Context(), req, period, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ScanWithToken godoc
// @Summary Record a scan from a signed QR token payload
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.TokenScanRequest true "Token scan payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/scan/token [post]
func (h *ScanHandler) ScanWithToken(c *gin.Context) {
	var req service.TokenScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	period, err := resolvePeriod(c.Request.Context(), h.terms)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.scans.ScanWithToken(c.Request.Context(), req, period, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param scheduleId query string false "Filter by schedule"
// @Param enrollmentId query string false "Filter by enrollment"
// @Param dateFrom query string false "Start date (YYYY-MM-DD)"
// @Param dateTo query string false "End date (YYYY-MM-DD)"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *ScanHandler) List(c *gin.Context) {
	filter := models.AttendanceFilter{
		ScheduleID:   c.Query("scheduleId"),
		EnrollmentID: c.Query("enrollmentId"),
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "pageSize", 20),
	}

	if raw := c.Query("dateFrom"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "dateFrom must be YYYY-MM-DD"))
			return
		}
		filter.DateFrom = &parsed
	}
	if raw := c.Query("dateTo"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "dateTo must be YYYY-MM-DD"))
			return
		}
		filter.DateTo = &parsed
	}
	if raw := c.Query("status"); raw != "" {
		status := models.AttendanceStatus(raw)
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status"))
			return
		}
		filter.Status = &status
	}

	records, pagination, err := h.scans.ListAttendance(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}
