package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/saintraiser1433/react-attendance-system-sub001/internal/models"
	"github.com/saintraiser1433/react-attendance-system-sub001/internal/service"
	appErrors "github.com/saintraiser1433/react-attendance-system-sub001/pkg/errors"
	"github.com/saintraiser1433/react-attendance-system-sub001/pkg/response"
)

// ScheduleHandler exposes schedule endpoints.
type ScheduleHandler struct {
	schedules *service.ScheduleService
	overrides *service.OverrideService
	terms     periodSource
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(schedules *service.ScheduleService, overrides *service.OverrideService, terms periodSource) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, overrides: overrides, terms: terms}
}

// List godoc
// @Summary List schedules
// @Tags Schedules
// @Produce json
// @Param teacherId query string false "Filter by teacher"
// @Param subjectId query string false "Filter by subject"
// @Param dayOfWeek query int false "Filter by day of week (0=Sunday)"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	filter := models.ScheduleFilter{
		TeacherID: c.Query("teacherId"),
		SubjectID: c.Query("subjectId"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "pageSize", 20),
	}
	if raw := c.Query("dayOfWeek"); raw != "" {
		day, err := strconv.Atoi(raw)
		if err != nil || day < 0 || day > 6 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "dayOfWeek must be an integer between 0 and 6"))
			return
		}
		filter.DayOfWeek = &day
	}

	if period, err := resolvePeriod(c.Request.Context(), h.terms); err == nil {
		filter.AcademicYearID = period.AcademicYearID
		filter.SemesterID = period.SemesterID
	}

	schedules, pagination, err := h.schedules.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, pagination)
}

// Get godoc
// @Summary Get one schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.schedules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Create godoc
// @Summary Create a schedule with strict conflict detection
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.CreateScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req service.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	period, err := resolvePeriod(c.Request.Context(), h.terms)
	if err != nil {
		response.Error(c, err)
		return
	}

	schedule, err := h.schedules.Create(c.Request.Context(), req, period, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// Update godoc
// @Summary Update a schedule, re-running conflict detection
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body service.CreateScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req service.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	period, err := resolvePeriod(c.Request.Context(), h.terms)
	if err != nil {
		response.Error(c, err)
		return
	}

	schedule, err := h.schedules.Update(c.Request.Context(), c.Param("id"), req, period, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// BulkAssign godoc
// @Summary Bulk-assign schedules, skipping conflicting items
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.BulkAssignRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Router /schedules/bulk-assign [post]
func (h *ScheduleHandler) BulkAssign(c *gin.Context) {
	var req service.BulkAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	period, err := resolvePeriod(c.Request.Context(), h.terms)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.schedules.BulkAssign(c.Request.Context(), req, period, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListOverrides godoc
// @Summary List overrides submitted for a schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/overrides [get]
func (h *ScheduleHandler) ListOverrides(c *gin.Context) {
	overrides, err := h.overrides.ListBySchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overrides, nil)
}
