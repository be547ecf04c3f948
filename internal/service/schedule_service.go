package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/saintraiser1433/react-attendance-system-sub001/internal/clock"
	"github.com/saintraiser1433/react-attendance-system-sub001/internal/models"
	appErrors "github.com/saintraiser1433/react-attendance-system-sub001/pkg/errors"
)

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error)
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	ListForTeacherDay(ctx context.Context, teacherID string, dayOfWeek int, period models.ActivePeriod) ([]models.Schedule, error)
	Create(ctx context.Context, schedule *models.Schedule) error
	BulkCreate(ctx context.Context, schedules []models.Schedule) error
	Update(ctx context.Context, schedule *models.Schedule) error
}

type scanCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CreateScheduleRequest describes payload for creating a schedule. Start
// and end accept both 24-hour ("08:00") and 12-hour ("8:00 AM") forms.
type CreateScheduleRequest struct {
	SubjectID    string  `json:"subject_id" validate:"required"`
	TeacherID    string  `json:"teacher_id" validate:"required"`
	DayOfWeek    int     `json:"day_of_week" validate:"min=0,max=6"`
	StartTime    string  `json:"start_time" validate:"required"`
	EndTime      string  `json:"end_time" validate:"required"`
	Room         string  `json:"room" validate:"required"`
	DepartmentID *string `json:"department_id,omitempty"`
	YearLevel    *string `json:"year_level,omitempty"`
	SectionID    *string `json:"section_id,omitempty"`
}

// BulkAssignRequest holds candidate schedules created while assigning a
// subject to a teacher in batch.
type BulkAssignRequest struct {
	Items []CreateScheduleRequest `json:"items" validate:"required,min=1,dive"`
}

// BulkAssignResult partitions the batch into persisted and skipped items.
type BulkAssignResult struct {
	Created   []models.Schedule         `json:"created"`
	Conflicts []models.ScheduleConflict `json:"conflicts,omitempty"`
}

// ScheduleService coordinates schedule creation and conflict detection.
type ScheduleService struct {
	repo      scheduleRepository
	audit     auditAppender
	cache     scanCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(repo scheduleRepository, audit auditAppender, cache scanCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, audit: audit, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// List returns schedules with pagination metadata.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, *models.Pagination, error) {
	schedules, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return schedules, pagination, nil
}

// Get loads a single schedule, consulting the scan-path cache first.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.Schedule, error) {
	key := scheduleCacheKey(id)
	if s.cache != nil {
		var cached models.Schedule
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, schedule, s.cacheTTL); err != nil {
			s.logger.Warn("schedule cache set failed", zap.String("schedule_id", id), zap.Error(err))
		}
	}
	return schedule, nil
}

// Create inserts a new schedule after strict conflict detection: any
// overlap with the teacher's existing schedules rejects the operation.
func (s *ScheduleService) Create(ctx context.Context, req CreateScheduleRequest, period models.ActivePeriod, actorID string) (*models.Schedule, error) {
	schedule, err := s.buildSchedule(req, period)
	if err != nil {
		return nil, err
	}

	if err := s.ensureNoConflict(ctx, schedule, "", nil); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}

	s.recordAudit(ctx, actorID, models.AuditActionScheduleCreate, schedule.ID, map[string]interface{}{
		"teacher_id": schedule.TeacherID,
		"subject_id": schedule.SubjectID,
		"window":     schedule.Window(),
	})
	return schedule, nil
}

// Update modifies an existing schedule under the same strict conflict rule,
// ignoring the schedule's own slot.
func (s *ScheduleService) Update(ctx context.Context, id string, req CreateScheduleRequest, period models.ActivePeriod, actorID string) (*models.Schedule, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	updated, err := s.buildSchedule(req, period)
	if err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt

	if err := s.ensureNoConflict(ctx, updated, existing.ID, nil); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}

	s.invalidateCache(ctx, updated.ID)
	s.recordAudit(ctx, actorID, models.AuditActionScheduleUpdate, updated.ID, map[string]interface{}{
		"teacher_id": updated.TeacherID,
		"window":     updated.Window(),
	})
	return updated, nil
}

// BulkAssign creates the candidate schedules that do not conflict and
// reports the rest. The operation succeeds as long as at least one
// candidate was valid; a batch where everything collides is a conflict.
func (s *ScheduleService) BulkAssign(ctx context.Context, req BulkAssignRequest, period models.ActivePeriod, actorID string) (*BulkAssignResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk assignment payload")
	}

	var accepted []models.Schedule
	var conflicts []models.ScheduleConflict

	for _, item := range req.Items {
		candidate, err := s.buildSchedule(item, period)
		if err != nil {
			return nil, err
		}
		if err := s.ensureNoConflict(ctx, candidate, "", accepted); err != nil {
			var domainErr *models.ScheduleConflictError
			if errors.As(err, &domainErr) {
				conflicts = append(conflicts, domainErr.Conflict)
				continue
			}
			return nil, err
		}
		accepted = append(accepted, *candidate)
	}

	if len(accepted) == 0 {
		return &BulkAssignResult{Conflicts: conflicts}, appErrors.Clone(appErrors.ErrConflict, "every schedule in the batch conflicts with an existing one")
	}

	if err := s.repo.BulkCreate(ctx, accepted); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedules")
	}

	s.recordAudit(ctx, actorID, models.AuditActionBulkAssign, "", map[string]interface{}{
		"created":   len(accepted),
		"conflicts": len(conflicts),
	})
	return &BulkAssignResult{Created: accepted, Conflicts: conflicts}, nil
}

func (s *ScheduleService) buildSchedule(req CreateScheduleRequest, period models.ActivePeriod) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	if period.Zero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no active academic period")
	}

	start, err := clock.Parse(req.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid start time %q", req.StartTime))
	}
	end, err := clock.Parse(req.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid end time %q", req.EndTime))
	}
	if !start.Before(end) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start time must be earlier than end time")
	}

	return &models.Schedule{
		SubjectID:      req.SubjectID,
		TeacherID:      req.TeacherID,
		DayOfWeek:      req.DayOfWeek,
		StartTime:      start,
		EndTime:        end,
		Room:           req.Room,
		DepartmentID:   req.DepartmentID,
		YearLevel:      req.YearLevel,
		SectionID:      req.SectionID,
		AcademicYearID: period.AcademicYearID,
		SemesterID:     period.SemesterID,
	}, nil
}

// ensureNoConflict checks the candidate against the teacher's persisted
// schedules for that day plus any pending in-batch acceptances. Boundary
// coincidence counts as a conflict: a class ending exactly when another
// starts is rejected.
func (s *ScheduleService) ensureNoConflict(ctx context.Context, candidate *models.Schedule, ignoreID string, pending []models.Schedule) error {
	period := models.ActivePeriod{AcademicYearID: candidate.AcademicYearID, SemesterID: candidate.SemesterID}
	existing, err := s.repo.ListForTeacherDay(ctx, candidate.TeacherID, candidate.DayOfWeek, period)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check schedule conflicts")
	}

	for _, item := range pending {
		if item.TeacherID == candidate.TeacherID && item.DayOfWeek == candidate.DayOfWeek {
			existing = append(existing, item)
		}
	}

	for _, item := range existing {
		if item.ID != "" && item.ID == ignoreID {
			continue
		}
		if item.Overlaps(candidate.StartTime, candidate.EndTime) {
			return s.wrapConflict(item)
		}
	}
	return nil
}

func (s *ScheduleService) wrapConflict(existing models.Schedule) error {
	message := fmt.Sprintf("teacher already has a class on %s", existing.Window())
	domainErr := &models.ScheduleConflictError{Message: message, Conflict: models.NewScheduleConflict(existing)}
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, fmt.Sprintf("schedule conflict: %s", message))
}

func (s *ScheduleService) invalidateCache(ctx context.Context, scheduleID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, scheduleCacheKey(scheduleID)); err != nil {
		s.logger.Warn("schedule cache invalidation failed", zap.String("schedule_id", scheduleID), zap.Error(err))
	}
}

func (s *ScheduleService) recordAudit(ctx context.Context, actorID, action, entityID string, metadata map[string]interface{}) {
	if s.audit == nil {
		return
	}
	body, _ := json.Marshal(metadata)
	entry := &models.AuditLog{ActorID: actorID, Action: action, Entity: "schedule", EntityID: entityID, Metadata: body}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", zap.String("action", action), zap.Error(err))
	}
}

func scheduleCacheKey(id string) string {
	return "scan:schedule:" + id
}
