package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saintraiser1433/react-attendance-system-sub001/internal/clock"
	"github.com/saintraiser1433/react-attendance-system-sub001/internal/models"
	appErrors "github.com/saintraiser1433/react-attendance-system-sub001/pkg/errors"
)

type stubScheduleRepo struct {
	schedules []models.Schedule
	created   int
}

func (m *stubScheduleRepo) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	return m.schedules, len(m.schedules), nil
}

func (m *stubScheduleRepo) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	for i := range m.schedules {
		if m.schedules[i].ID == id {
			return &m.schedules[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *stubScheduleRepo) ListForTeacherDay(ctx context.Context, teacherID string, dayOfWeek int, period models.ActivePeriod) ([]models.Schedule, error) {
	var result []models.Schedule
	for _, item := range m.schedules {
		if item.TeacherID == teacherID && item.DayOfWeek == dayOfWeek {
			result = append(result, item)
		}
	}
	return result, nil
}

func (m *stubScheduleRepo) Create(ctx context.Context, schedule *models.Schedule) error {
	m.created++
	schedule.ID = fmt.Sprintf("sch-%d", m.created)
	m.schedules = append(m.schedules, *schedule)
	return nil
}

func (m *stubScheduleRepo) BulkCreate(ctx context.Context, schedules []models.Schedule) error {
	for i := range schedules {
		if err := m.Create(ctx, &schedules[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *stubScheduleRepo) Update(ctx context.Context, schedule *models.Schedule) error {
	for i := range m.schedules {
		if m.schedules[i].ID == schedule.ID {
			m.schedules[i] = *schedule
			return nil
		}
	}
	return sql.ErrNoRows
}

func mondayScheduleFor(teacherID, start, end string) models.Schedule {
	return models.Schedule{
		ID:             "sch-existing",
		SubjectID:      "sub-1",
		TeacherID:      teacherID,
		DayOfWeek:      1,
		StartTime:      clock.MustParse(start),
		EndTime:        clock.MustParse(end),
		Room:           "101",
		AcademicYearID: "ay-2026",
		SemesterID:     "sem-1",
	}
}

func createRequest(teacherID, start, end string) CreateScheduleRequest {
	return CreateScheduleRequest{
		SubjectID: "sub-2",
		TeacherID: teacherID,
		DayOfWeek: 1,
		StartTime: start,
		EndTime:   end,
		Room:      "202",
	}
}

func TestScheduleServiceCreateRejectsOverlap(t *testing.T) {
	repo := &stubScheduleRepo{schedules: []models.Schedule{mondayScheduleFor("t1", "08:00", "09:30")}}
	svc := NewScheduleService(repo, nil, nil, 0, nil, nil)

	_, err := svc.Create(context.Background(), createRequest("t1", "09:00", "10:00"), activePeriod(), "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "already has a class")
}

func TestScheduleServiceCreateBoundaryCoincidenceConflicts(t *testing.T) {
	repo := &stubScheduleRepo{schedules: []models.Schedule{mondayScheduleFor("t1", "08:00", "09:30")}}
	svc := NewScheduleService(repo, nil, nil, 0, nil, nil)

	// Back-to-back is still a conflict: 09:30 start against a 09:30 end.
	_, err := svc.Create(context.Background(), createRequest("t1", "09:30", "10:30"), activePeriod(), "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	created, err := svc.Create(context.Background(), createRequest("t1", "09:31", "10:30"), activePeriod(), "admin-1")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
}

func TestScheduleServiceCreateOtherTeacherOrDayAllowed(t *testing.T) {
	repo := &stubScheduleRepo{schedules: []models.Schedule{mondayScheduleFor("t1", "08:00", "09:30")}}
	svc := NewScheduleService(repo, nil, nil, 0, nil, nil)

	_, err := svc.Create(context.Background(), createRequest("t2", "08:00", "09:30"), activePeriod(), "admin-1")
	require.NoError(t, err)

	tuesday := createRequest("t1", "08:00", "09:30")
	tuesday.DayOfWeek = 2
	_, err = svc.Create(context.Background(), tuesday, activePeriod(), "admin-1")
	require.NoError(t, err)
}

func TestScheduleServiceCreateValidation(t *testing.T) {
	svc := NewScheduleService(&stubScheduleRepo{}, nil, nil, 0, nil, nil)

	_, err := svc.Create(context.Background(), createRequest("t1", "10:00", "09:00"), activePeriod(), "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), createRequest("t1", "not a time", "09:00"), activePeriod(), "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceCreateAcceptsTwelveHourTimes(t *testing.T) {
	repo := &stubScheduleRepo{}
	svc := NewScheduleService(repo, nil, nil, 0, nil, nil)

	created, err := svc.Create(context.Background(), createRequest("t1", "8:00 AM", "9:30 AM"), activePeriod(), "admin-1")
	require.NoError(t, err)
	assert.Equal(t, clock.MustParse("08:00"), created.StartTime)
	assert.Equal(t, clock.MustParse("09:30"), created.EndTime)
}

func TestScheduleServiceUpdateIgnoresOwnSlot(t *testing.T) {
	repo := &stubScheduleRepo{schedules: []models.Schedule{mondayScheduleFor("t1", "08:00", "09:30")}}
	svc := NewScheduleService(repo, nil, nil, 0, nil, nil)

	updated, err := svc.Update(context.Background(), "sch-existing", createRequest("t1", "08:00", "09:45"), activePeriod(), "admin-1")
	require.NoError(t, err)
	assert.Equal(t, clock.MustParse("09:45"), updated.EndTime)
}

func TestScheduleServiceBulkAssignPartialAcceptance(t *testing.T) {
	repo := &stubScheduleRepo{schedules: []models.Schedule{mondayScheduleFor("t1", "08:00", "09:30")}}
	audit := &stubAudit{}
	svc := NewScheduleService(repo, audit, nil, 0, nil, nil)

	req := BulkAssignRequest{Items: []CreateScheduleRequest{
		createRequest("t1", "10:00", "11:00"),
		createRequest("t1", "09:00", "10:30"),
		createRequest("t1", "13:00", "14:00"),
	}}
	result, err := svc.BulkAssign(context.Background(), req, activePeriod(), "admin-1")
	require.NoError(t, err)
	assert.Len(t, result.Created, 2)
	assert.Len(t, result.Conflicts, 1)
	assert.Equal(t, 3, len(repo.schedules))
	assert.Len(t, audit.entries, 1)
}

func TestScheduleServiceBulkAssignDetectsInBatchConflict(t *testing.T) {
	repo := &stubScheduleRepo{}
	svc := NewScheduleService(repo, nil, nil, 0, nil, nil)

	req := BulkAssignRequest{Items: []CreateScheduleRequest{
		createRequest("t1", "08:00", "09:00"),
		createRequest("t1", "08:30", "09:30"),
	}}
	result, err := svc.BulkAssign(context.Background(), req, activePeriod(), "admin-1")
	require.NoError(t, err)
	assert.Len(t, result.Created, 1)
	assert.Len(t, result.Conflicts, 1)
}

func TestScheduleServiceBulkAssignAllConflictsFails(t *testing.T) {
	repo := &stubScheduleRepo{schedules: []models.Schedule{mondayScheduleFor("t1", "08:00", "12:00")}}
	svc := NewScheduleService(repo, nil, nil, 0, nil, nil)

	req := BulkAssignRequest{Items: []CreateScheduleRequest{
		createRequest("t1", "08:30", "09:30"),
		createRequest("t1", "10:00", "11:00"),
	}}
	result, err := svc.BulkAssign(context.Background(), req, activePeriod(), "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Len(t, result.Conflicts, 2)
	assert.Equal(t, 0, repo.created)
}
