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

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type enrollmentReader interface {
	Find(ctx context.Context, studentID, subjectID string, period models.ActivePeriod) (*models.Enrollment, error)
}

type attendanceRepository interface {
	FindByEnrollmentAndDate(ctx context.Context, enrollmentID string, date time.Time) (*models.Attendance, error)
	Create(ctx context.Context, record *models.Attendance) error
	SetTimeOut(ctx context.Context, id string, timeOut clock.ClockTime) error
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, int, error)
}

type scheduleGetter interface {
	Get(ctx context.Context, id string) (*models.Schedule, error)
}

type windowResolver interface {
	Resolve(ctx context.Context, schedule *models.Schedule, date time.Time) (models.EffectiveWindow, error)
}

type liveTokenVerifier interface {
	VerifyLive(ctx context.Context, payload models.TokenPayload) (*models.IdentityToken, error)
}

type scanMetrics interface {
	ObserveScan(action, result string)
}

// ScanRequest is a scan against a schedule with a bare student id. TimeIn
// and CustomDate are testing overrides honoured only for admin callers;
// everyone else scans on the server clock.
type ScanRequest struct {
	ScheduleID string  `json:"schedule_id" validate:"required"`
	StudentID  string  `json:"student_id" validate:"required"`
	Note       *string `json:"note,omitempty"`
	TimeIn     string  `json:"time_in,omitempty"`
	CustomDate string  `json:"custom_date,omitempty"`
}

// TokenScanRequest carries the full signed token payload in place of a
// bare student id; signature verification runs before anything else.
type TokenScanRequest struct {
	ScheduleID string              `json:"schedule_id" validate:"required"`
	Token      models.TokenPayload `json:"token"`
	Note       *string             `json:"note,omitempty"`
}

// ScanResult reports which transition a successful scan performed.
type ScanResult struct {
	AttendanceID string                  `json:"attendance_id"`
	Action       models.ScanAction       `json:"action"`
	Status       models.AttendanceStatus `json:"status"`
	IsLate       bool                    `json:"is_late"`
	LateMinutes  int                     `json:"late_minutes"`
	TimeIn       clock.ClockTime         `json:"time_in"`
	TimeOut      *clock.ClockTime        `json:"time_out,omitempty"`
	Message      string                  `json:"message"`
}

// ScanService validates scan eligibility and drives the two-phase
// attendance state machine: no record, time-in recorded, completed.
type ScanService struct {
	students    studentReader
	enrollments enrollmentReader
	attendance  attendanceRepository
	schedules   scheduleGetter
	windows     windowResolver
	tokens      liveTokenVerifier
	audit       auditAppender
	metrics     scanMetrics
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewScanService instantiates ScanService.
func NewScanService(students studentReader, enrollments enrollmentReader, attendance attendanceRepository, schedules scheduleGetter, windows windowResolver, tokens liveTokenVerifier, audit auditAppender, metrics scanMetrics, validate *validator.Validate, logger *zap.Logger) *ScanService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanService{
		students:    students,
		enrollments: enrollments,
		attendance:  attendance,
		schedules:   schedules,
		windows:     windows,
		tokens:      tokens,
		audit:       audit,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// Scan records a time-in or time-out for the student against the schedule.
func (s *ScanService) Scan(ctx context.Context, req ScanRequest, period models.ActivePeriod, claims *models.JWTClaims) (*ScanResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scan payload")
	}
	if period.Zero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no active academic period")
	}

	date, timeOfDay, err := s.scanMoment(req, claims)
	if err != nil {
		return nil, err
	}

	result, err := s.scan(ctx, req, period, claims, date, timeOfDay)
	s.observe(result, err)
	return result, err
}

// ScanWithToken verifies the signed payload against a live token record
// first, then performs the scan as that student.
func (s *ScanService) ScanWithToken(ctx context.Context, req TokenScanRequest, period models.ActivePeriod, claims *models.JWTClaims) (*ScanResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scan payload")
	}

	token, err := s.tokens.VerifyLive(ctx, req.Token)
	if err != nil {
		s.observe(nil, err)
		return nil, err
	}
	if token.AcademicYearID != period.AcademicYearID || token.SemesterID != period.SemesterID {
		err := appErrors.Clone(appErrors.ErrSignature, "token is not valid for the active academic period")
		s.observe(nil, err)
		return nil, err
	}

	return s.Scan(ctx, ScanRequest{
		ScheduleID: req.ScheduleID,
		StudentID:  token.StudentID,
		Note:       req.Note,
	}, period, claims)
}

// ListAttendance returns recorded attendance with pagination metadata.
func (s *ScanService) ListAttendance(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, *models.Pagination, error) {
	records, total, err := s.attendance.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return records, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *ScanService) scan(ctx context.Context, req ScanRequest, period models.ActivePeriod, claims *models.JWTClaims, date time.Time, timeOfDay clock.ClockTime) (*ScanResult, error) {
	schedule, err := s.schedules.Get(ctx, req.ScheduleID)
	if err != nil {
		return nil, err
	}

	if claims != nil && claims.Role == models.RoleTeacher && schedule.TeacherID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "this class is taught by another teacher")
	}

	// Day-of-week gate before anything date-specific.
	if int(date.Weekday()) != schedule.DayOfWeek {
		return nil, appErrors.Clone(appErrors.ErrEligibility, fmt.Sprintf("class meets on %s but today is %s", models.DayName(schedule.DayOfWeek), date.Weekday()))
	}

	window, err := s.windows.Resolve(ctx, schedule, date)
	if err != nil {
		return nil, err
	}
	if window.Cancelled {
		return nil, appErrors.Clone(appErrors.ErrEligibility, fmt.Sprintf("class is cancelled for %s: %s", date.Format("2006-01-02"), window.Reason))
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	if err := checkAttributes(schedule, student); err != nil {
		return nil, err
	}

	enrollment, err := s.enrollments.Find(ctx, student.ID, schedule.SubjectID, period)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrEligibility, "student is not enrolled in this subject for the active period")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up enrollment")
	}

	existing, err := s.attendance.FindByEnrollmentAndDate(ctx, enrollment.ID, date)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up attendance")
	}

	scannerID := ""
	if claims != nil {
		scannerID = claims.UserID
	}

	if errors.Is(err, sql.ErrNoRows) {
		return s.timeIn(ctx, enrollment, schedule, window, date, timeOfDay, scannerID, req.Note)
	}
	if existing.Complete() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "attendance already completed for today")
	}
	return s.timeOut(ctx, existing, window, timeOfDay, scannerID)
}

// timeIn performs the first transition of the day. Lateness is computed
// here, once, from the effective start time, and persisted. The unique
// constraint on (enrollment, date) decides concurrent creates; the earlier
// read was only an optimisation for a friendlier error.
func (s *ScanService) timeIn(ctx context.Context, enrollment *models.Enrollment, schedule *models.Schedule, window models.EffectiveWindow, date time.Time, timeOfDay clock.ClockTime, scannerID string, note *string) (*ScanResult, error) {
	lateMinutes := timeOfDay.Sub(window.Start)
	if lateMinutes < 0 {
		lateMinutes = 0
	}

	record := &models.Attendance{
		EnrollmentID:  enrollment.ID,
		Date:          date,
		Status:        models.AttendanceStatusPresent,
		TimeIn:        timeOfDay,
		ScannedAt:     s.now().UTC(),
		ScheduleID:    schedule.ID,
		ScannerUserID: scannerID,
		Note:          note,
		IsLate:        lateMinutes > 0,
		LateMinutes:   lateMinutes,
	}

	if err := s.attendance.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicateAttendance) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "attendance record already exists, please scan again for time-out")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create attendance record")
	}

	s.recordAudit(ctx, scannerID, models.AuditActionTimeIn, record.ID, map[string]interface{}{
		"enrollment_id": enrollment.ID,
		"schedule_id":   schedule.ID,
		"date":          date.Format("2006-01-02"),
		"late_minutes":  lateMinutes,
	})

	message := fmt.Sprintf("time in recorded at %s", timeOfDay.Format12())
	if record.IsLate {
		message = fmt.Sprintf("time in recorded at %s, %d minutes late", timeOfDay.Format12(), lateMinutes)
	}

	return &ScanResult{
		AttendanceID: record.ID,
		Action:       models.ScanActionTimeIn,
		Status:       record.Status,
		IsLate:       record.IsLate,
		LateMinutes:  record.LateMinutes,
		TimeIn:       record.TimeIn,
		Message:      message,
	}, nil
}

// timeOut completes the day's record. Only allowed once the effective end
// time has passed; status stays PRESENT, lateness was settled at time-in.
func (s *ScanService) timeOut(ctx context.Context, record *models.Attendance, window models.EffectiveWindow, timeOfDay clock.ClockTime, scannerID string) (*ScanResult, error) {
	if timeOfDay.Before(window.End) {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("time out only allowed at or after %s, current time is %s", window.End, timeOfDay))
	}

	if err := s.attendance.SetTimeOut(ctx, record.ID, timeOfDay); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record time out")
	}

	s.recordAudit(ctx, scannerID, models.AuditActionTimeOut, record.ID, map[string]interface{}{
		"enrollment_id": record.EnrollmentID,
		"schedule_id":   record.ScheduleID,
		"date":          record.Date.Format("2006-01-02"),
	})

	return &ScanResult{
		AttendanceID: record.ID,
		Action:       models.ScanActionTimeOut,
		Status:       record.Status,
		IsLate:       record.IsLate,
		LateMinutes:  record.LateMinutes,
		TimeIn:       record.TimeIn,
		TimeOut:      &timeOfDay,
		Message:      fmt.Sprintf("time out recorded at %s", timeOfDay.Format12()),
	}, nil
}

// scanMoment resolves the scan's date and time of day. The request's
// testing overrides apply only to admin callers.
func (s *ScanService) scanMoment(req ScanRequest, claims *models.JWTClaims) (time.Time, clock.ClockTime, error) {
	now := s.now()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	timeOfDay := clock.FromTime(now)

	if claims == nil || claims.Role != models.RoleAdmin {
		return date, timeOfDay, nil
	}

	if req.CustomDate != "" {
		parsed, err := time.Parse("2006-01-02", req.CustomDate)
		if err != nil {
			return time.Time{}, 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid custom date %q, expected YYYY-MM-DD", req.CustomDate))
		}
		date = parsed
	}
	if req.TimeIn != "" {
		parsed, err := clock.Parse(req.TimeIn)
		if err != nil {
			return time.Time{}, 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid time override %q", req.TimeIn))
		}
		timeOfDay = parsed
	}

	return date, timeOfDay, nil
}

// checkAttributes enforces the schedule's optional department, year level
// and section constraints. An unset attribute means any student passes.
func checkAttributes(schedule *models.Schedule, student *models.Student) error {
	if schedule.DepartmentID != nil && *schedule.DepartmentID != student.DepartmentID {
		return appErrors.Clone(appErrors.ErrEligibility, fmt.Sprintf("department mismatch: schedule requires %q, student belongs to %q", *schedule.DepartmentID, student.DepartmentID))
	}
	if schedule.YearLevel != nil {
		want := models.NormalizeYearLevel(*schedule.YearLevel)
		got := models.NormalizeYearLevel(student.YearLevel)
		if want != got {
			return appErrors.Clone(appErrors.ErrEligibility, fmt.Sprintf("year level mismatch: schedule requires %q, student is %q", *schedule.YearLevel, student.YearLevel))
		}
	}
	if schedule.SectionID != nil && *schedule.SectionID != student.SectionID {
		return appErrors.Clone(appErrors.ErrEligibility, fmt.Sprintf("section mismatch: schedule requires %q, student belongs to %q", *schedule.SectionID, student.SectionID))
	}
	return nil
}

func (s *ScanService) observe(result *ScanResult, err error) {
	if s.metrics == nil {
		return
	}
	action := "unknown"
	outcome := "ok"
	if result != nil {
		action = string(result.Action)
	}
	if err != nil {
		outcome = appErrors.FromError(err).Code
	}
	s.metrics.ObserveScan(action, outcome)
}

func (s *ScanService) recordAudit(ctx context.Context, actorID, action, entityID string, metadata map[string]interface{}) {
	if s.audit == nil {
		return
	}
	body, _ := json.Marshal(metadata)
	entry := &models.AuditLog{ActorID: actorID, Action: action, Entity: "attendance", EntityID: entityID, Metadata: body}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", zap.String("action", action), zap.Error(err))
	}
}
