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
	"github.com/saintraiser1433/react-attendance-system-sub001/internal/repository"
	appErrors "github.com/saintraiser1433/react-attendance-system-sub001/pkg/errors"
)

type overrideRepository interface {
	FindApproved(ctx context.Context, scheduleID string, date time.Time) (*models.ScheduleOverride, error)
	FindByID(ctx context.Context, id string) (*models.ScheduleOverride, error)
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.ScheduleOverride, error)
	Create(ctx context.Context, override *models.ScheduleOverride) error
	UpdateStatus(ctx context.Context, id string, status models.OverrideStatus, reviewerID string) error
}

type scheduleReader interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
}

// SubmitOverrideRequest describes a teacher's date-specific change request.
type SubmitOverrideRequest struct {
	ScheduleID string              `json:"schedule_id" validate:"required"`
	Date       string              `json:"date" validate:"required"`
	Type       models.OverrideType `json:"type" validate:"required"`
	Reason     string              `json:"reason" validate:"required"`
	NewStart   string              `json:"new_start,omitempty"`
	NewEnd     string              `json:"new_end,omitempty"`
}

// ReviewOverrideRequest records an admin's decision.
type ReviewOverrideRequest struct {
	Status models.OverrideStatus `json:"status" validate:"required"`
}

// OverrideService resolves and manages per-date schedule overrides.
type OverrideService struct {
	repo      overrideRepository
	schedules scheduleReader
	audit     auditAppender
	cache     scanCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOverrideService instantiates OverrideService.
func NewOverrideService(repo overrideRepository, schedules scheduleReader, audit auditAppender, cache scanCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *OverrideService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverrideService{repo: repo, schedules: schedules, audit: audit, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// Resolve returns the effective meeting window for a schedule on a date:
// the approved override's decision when one exists, the schedule's own
// times otherwise. It runs before eligibility and lateness computation on
// every scan, since both depend on the effective window.
func (s *OverrideService) Resolve(ctx context.Context, schedule *models.Schedule, date time.Time) (models.EffectiveWindow, error) {
	key := overrideCacheKey(schedule.ID, date)
	if s.cache != nil {
		var cached models.EffectiveWindow
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	window := models.EffectiveWindow{Start: schedule.StartTime, End: schedule.EndTime}

	override, err := s.repo.FindApproved(ctx, schedule.ID, date)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// No approved override; the static definition stands.
	case err != nil:
		return models.EffectiveWindow{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up schedule override")
	case override.Type == models.OverrideTypeCancel:
		window.Cancelled = true
		window.Reason = override.Reason
	case override.Type == models.OverrideTypeTimeChange:
		if override.NewStart != nil {
			window.Start = *override.NewStart
		}
		if override.NewEnd != nil {
			window.End = *override.NewEnd
		}
		window.Reason = override.Reason
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, window, s.cacheTTL); err != nil {
			s.logger.Warn("override cache set failed", zap.String("schedule_id", schedule.ID), zap.Error(err))
		}
	}
	return window, nil
}

// ListBySchedule returns every override submitted for a schedule.
func (s *OverrideService) ListBySchedule(ctx context.Context, scheduleID string) ([]models.ScheduleOverride, error) {
	overrides, err := s.repo.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list overrides")
	}
	return overrides, nil
}

// Submit files a PENDING override for one schedule occurrence. Teachers may
// only file against their own schedules; admins against any.
func (s *OverrideService) Submit(ctx context.Context, req SubmitOverrideRequest, claims *models.JWTClaims) (*models.ScheduleOverride, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid override payload")
	}
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown override type %q", req.Type))
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", req.Date))
	}

	schedule, err := s.schedules.FindByID(ctx, req.ScheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if claims != nil && claims.Role == models.RoleTeacher && schedule.TeacherID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "schedule belongs to another teacher")
	}

	override := &models.ScheduleOverride{
		ScheduleID: schedule.ID,
		Date:       date,
		Type:       req.Type,
		Reason:     req.Reason,
		Status:     models.OverrideStatusPending,
	}

	if req.Type == models.OverrideTypeTimeChange {
		start, err := clock.Parse(req.NewStart)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid new start time %q", req.NewStart))
		}
		end, err := clock.Parse(req.NewEnd)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid new end time %q", req.NewEnd))
		}
		if !start.Before(end) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "new start time must be earlier than new end time")
		}
		override.NewStart = &start
		override.NewEnd = &end
	}

	if err := s.repo.Create(ctx, override); err != nil {
		if errors.Is(err, repository.ErrDuplicateOverride) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an override already exists for this schedule and date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create override")
	}

	actorID := ""
	if claims != nil {
		actorID = claims.UserID
	}
	s.recordAudit(ctx, actorID, models.AuditActionOverrideSubmit, override.ID, map[string]interface{}{
		"schedule_id": override.ScheduleID,
		"date":        req.Date,
		"type":        string(override.Type),
	})
	return override, nil
}

// Review approves or rejects a pending override. Approval makes it visible
// to the scan path, so the cached window for that occurrence is dropped.
func (s *OverrideService) Review(ctx context.Context, id string, req ReviewOverrideRequest, reviewerID string) (*models.ScheduleOverride, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	if req.Status != models.OverrideStatusApproved && req.Status != models.OverrideStatusRejected {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("review status must be APPROVED or REJECTED, got %q", req.Status))
	}

	override, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "override not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load override")
	}
	if override.Status != models.OverrideStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("override has already been %s", override.Status))
	}

	if err := s.repo.UpdateStatus(ctx, id, req.Status, reviewerID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update override status")
	}

	override.Status = req.Status
	override.ReviewedBy = &reviewerID

	if s.cache != nil {
		if err := s.cache.Delete(ctx, overrideCacheKey(override.ScheduleID, override.Date)); err != nil {
			s.logger.Warn("override cache invalidation failed", zap.String("override_id", id), zap.Error(err))
		}
	}

	s.recordAudit(ctx, reviewerID, models.AuditActionOverrideReviewed, override.ID, map[string]interface{}{
		"schedule_id": override.ScheduleID,
		"status":      string(req.Status),
	})
	return override, nil
}

func (s *OverrideService) recordAudit(ctx context.Context, actorID, action, entityID string, metadata map[string]interface{}) {
	if s.audit == nil {
		return
	}
	body, _ := json.Marshal(metadata)
	entry := &models.AuditLog{ActorID: actorID, Action: action, Entity: "schedule_override", EntityID: entityID, Metadata: body}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", zap.String("action", action), zap.Error(err))
	}
}

func overrideCacheKey(scheduleID string, date time.Time) string {
	return "scan:override:" + scheduleID + ":" + date.Format("2006-01-02")
}
