package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saintraiser1433/react-attendance-system-sub001/internal/clock"
	"github.com/saintraiser1433/react-attendance-system-sub001/internal/models"
	"github.com/saintraiser1433/react-attendance-system-sub001/internal/repository"
	appErrors "github.com/saintraiser1433/react-attendance-system-sub001/pkg/errors"
)

type stubOverrideRepo struct {
	byID      map[string]*models.ScheduleOverride
	createErr error
	created   int
}

func (m *stubOverrideRepo) FindApproved(ctx context.Context, scheduleID string, date time.Time) (*models.ScheduleOverride, error) {
	for _, item := range m.byID {
		if item.ScheduleID == scheduleID && item.Date.Format("2006-01-02") == date.Format("2006-01-02") && item.Status == models.OverrideStatusApproved {
			return item, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *stubOverrideRepo) FindByID(ctx context.Context, id string) (*models.ScheduleOverride, error) {
	if item, ok := m.byID[id]; ok {
		return item, nil
	}
	return nil, sql.ErrNoRows
}

func (m *stubOverrideRepo) ListBySchedule(ctx context.Context, scheduleID string) ([]models.ScheduleOverride, error) {
	var result []models.ScheduleOverride
	for _, item := range m.byID {
		if item.ScheduleID == scheduleID {
			result = append(result, *item)
		}
	}
	return result, nil
}

func (m *stubOverrideRepo) Create(ctx context.Context, override *models.ScheduleOverride) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, item := range m.byID {
		if overrideCacheKey(item.ScheduleID, item.Date) == overrideCacheKey(override.ScheduleID, override.Date) {
			return repository.ErrDuplicateOverride
		}
	}
	if m.byID == nil {
		m.byID = make(map[string]*models.ScheduleOverride)
	}
	m.created++
	override.ID = fmt.Sprintf("ovr-%d", m.created)
	m.byID[override.ID] = override
	return nil
}

func (m *stubOverrideRepo) UpdateStatus(ctx context.Context, id string, status models.OverrideStatus, reviewerID string) error {
	item, ok := m.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	item.Status = status
	item.ReviewedBy = &reviewerID
	return nil
}

type stubScheduleReader struct {
	schedules map[string]*models.Schedule
}

func (m *stubScheduleReader) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	if schedule, ok := m.schedules[id]; ok {
		return schedule, nil
	}
	return nil, sql.ErrNoRows
}

func overrideTestSchedule() *models.Schedule {
	schedule := mondayScheduleFor("t1", "08:00", "09:30")
	return &schedule
}

func newOverrideService(repo *stubOverrideRepo, schedule *models.Schedule) *OverrideService {
	reader := &stubScheduleReader{schedules: map[string]*models.Schedule{schedule.ID: schedule}}
	return NewOverrideService(repo, reader, nil, nil, 0, nil, nil)
}

func TestOverrideResolveWithoutOverride(t *testing.T) {
	schedule := overrideTestSchedule()
	svc := newOverrideService(&stubOverrideRepo{}, schedule)

	window, err := svc.Resolve(context.Background(), schedule, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, window.Cancelled)
	assert.Equal(t, schedule.StartTime, window.Start)
	assert.Equal(t, schedule.EndTime, window.End)
}

func TestOverrideResolveCancellation(t *testing.T) {
	schedule := overrideTestSchedule()
	date := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	repo := &stubOverrideRepo{byID: map[string]*models.ScheduleOverride{
		"ovr-1": {ID: "ovr-1", ScheduleID: schedule.ID, Date: date, Type: models.OverrideTypeCancel, Reason: "Holiday", Status: models.OverrideStatusApproved},
	}}
	svc := newOverrideService(repo, schedule)

	window, err := svc.Resolve(context.Background(), schedule, date)
	require.NoError(t, err)
	assert.True(t, window.Cancelled)
	assert.Equal(t, "Holiday", window.Reason)

	// Other dates keep the static definition.
	other, err := svc.Resolve(context.Background(), schedule, date.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.False(t, other.Cancelled)
}

func TestOverrideResolveTimeChange(t *testing.T) {
	schedule := overrideTestSchedule()
	date := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	newStart := clock.MustParse("09:00")
	newEnd := clock.MustParse("10:30")
	repo := &stubOverrideRepo{byID: map[string]*models.ScheduleOverride{
		"ovr-1": {ID: "ovr-1", ScheduleID: schedule.ID, Date: date, Type: models.OverrideTypeTimeChange, Reason: "Assembly", NewStart: &newStart, NewEnd: &newEnd, Status: models.OverrideStatusApproved},
	}}
	svc := newOverrideService(repo, schedule)

	window, err := svc.Resolve(context.Background(), schedule, date)
	require.NoError(t, err)
	assert.False(t, window.Cancelled)
	assert.Equal(t, newStart, window.Start)
	assert.Equal(t, newEnd, window.End)
}

func TestOverrideResolveIgnoresPending(t *testing.T) {
	schedule := overrideTestSchedule()
	date := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	repo := &stubOverrideRepo{byID: map[string]*models.ScheduleOverride{
		"ovr-1": {ID: "ovr-1", ScheduleID: schedule.ID, Date: date, Type: models.OverrideTypeCancel, Reason: "Holiday", Status: models.OverrideStatusPending},
	}}
	svc := newOverrideService(repo, schedule)

	window, err := svc.Resolve(context.Background(), schedule, date)
	require.NoError(t, err)
	assert.False(t, window.Cancelled)
}

func TestOverrideSubmitTeacherOwnershipGuard(t *testing.T) {
	schedule := overrideTestSchedule()
	svc := newOverrideService(&stubOverrideRepo{}, schedule)

	req := SubmitOverrideRequest{ScheduleID: schedule.ID, Date: "2026-08-31", Type: models.OverrideTypeCancel, Reason: "Holiday"}
	claims := &models.JWTClaims{UserID: "t2", Role: models.RoleTeacher}
	_, err := svc.Submit(context.Background(), req, claims)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	owner := &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher}
	created, err := svc.Submit(context.Background(), req, owner)
	require.NoError(t, err)
	assert.Equal(t, models.OverrideStatusPending, created.Status)
}

func TestOverrideSubmitTimeChangeRequiresWindow(t *testing.T) {
	schedule := overrideTestSchedule()
	svc := newOverrideService(&stubOverrideRepo{}, schedule)
	claims := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}

	req := SubmitOverrideRequest{ScheduleID: schedule.ID, Date: "2026-08-31", Type: models.OverrideTypeTimeChange, Reason: "Assembly"}
	_, err := svc.Submit(context.Background(), req, claims)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	req.NewStart = "10:00"
	req.NewEnd = "09:00"
	_, err = svc.Submit(context.Background(), req, claims)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	req.NewStart = "9:00 AM"
	req.NewEnd = "10:30 AM"
	created, err := svc.Submit(context.Background(), req, claims)
	require.NoError(t, err)
	require.NotNil(t, created.NewStart)
	assert.Equal(t, clock.MustParse("09:00"), *created.NewStart)
}

func TestOverrideSubmitDuplicateDate(t *testing.T) {
	schedule := overrideTestSchedule()
	svc := newOverrideService(&stubOverrideRepo{}, schedule)
	claims := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}

	req := SubmitOverrideRequest{ScheduleID: schedule.ID, Date: "2026-08-31", Type: models.OverrideTypeCancel, Reason: "Holiday"}
	_, err := svc.Submit(context.Background(), req, claims)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), req, claims)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestOverrideReviewLifecycle(t *testing.T) {
	schedule := overrideTestSchedule()
	repo := &stubOverrideRepo{}
	svc := newOverrideService(repo, schedule)
	claims := &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher}

	req := SubmitOverrideRequest{ScheduleID: schedule.ID, Date: "2026-08-31", Type: models.OverrideTypeCancel, Reason: "Holiday"}
	created, err := svc.Submit(context.Background(), req, claims)
	require.NoError(t, err)

	reviewed, err := svc.Review(context.Background(), created.ID, ReviewOverrideRequest{Status: models.OverrideStatusApproved}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.OverrideStatusApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, "admin-1", *reviewed.ReviewedBy)

	// Decisions are final.
	_, err = svc.Review(context.Background(), created.ID, ReviewOverrideRequest{Status: models.OverrideStatusRejected}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestOverrideReviewRejectsPendingStatus(t *testing.T) {
	schedule := overrideTestSchedule()
	svc := newOverrideService(&stubOverrideRepo{}, schedule)
	claims := &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher}

	created, err := svc.Submit(context.Background(), SubmitOverrideRequest{ScheduleID: schedule.ID, Date: "2026-08-31", Type: models.OverrideTypeCancel, Reason: "Holiday"}, claims)
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), created.ID, ReviewOverrideRequest{Status: models.OverrideStatusPending}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
