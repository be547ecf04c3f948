package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/saintraiser1433/react-attendance-system-sub001/internal/clock"
	"github.com/saintraiser1433/react-attendance-system-sub001/internal/models"
)

// Sentinel errors surfaced when a storage unique constraint fires. The
// constraint, not the preceding read, is the arbiter under concurrency.
var (
	ErrDuplicateAttendance = errors.New("attendance record already exists for this enrollment and date")
	ErrDuplicateOverride   = errors.New("an override already exists for this schedule and date")
)

const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether err is a Postgres unique violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode
}

// AttendanceRepository handles persistence for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceColumns = "id, enrollment_id, date, status, time_in, time_out, scanned_at, schedule_id, scanner_user_id, note, is_late, late_minutes, created_at, updated_at"

// FindByEnrollmentAndDate loads the day's record for an enrollment.
// sql.ErrNoRows when the student has not scanned yet.
func (r *AttendanceRepository) FindByEnrollmentAndDate(ctx context.Context, enrollmentID string, date time.Time) (*models.Attendance, error) {
	const query = `SELECT ` + attendanceColumns + ` FROM attendance WHERE enrollment_id = $1 AND date = $2 LIMIT 1`
	var record models.Attendance
	if err := r.db.GetContext(ctx, &record, query, enrollmentID, date.Format("2006-01-02")); err != nil {
		return nil, err
	}
	return &record, nil
}

// Create inserts the first scan of the day. A concurrent insert for the
// same (enrollment, date) loses to the unique constraint and gets
// ErrDuplicateAttendance.
func (r *AttendanceRepository) Create(ctx context.Context, record *models.Attendance) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	const query = `INSERT INTO attendance (id, enrollment_id, date, status, time_in, scanned_at, schedule_id, scanner_user_id, note, is_late, late_minutes, created_at, updated_at) VALUES (:id, :enrollment_id, :date, :status, :time_in, :scanned_at, :schedule_id, :scanner_user_id, :note, :is_late, :late_minutes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicateAttendance
		}
		return fmt.Errorf("create attendance: %w", err)
	}
	return nil
}

// SetTimeOut completes the record with the second scan of the day.
func (r *AttendanceRepository) SetTimeOut(ctx context.Context, id string, timeOut clock.ClockTime) error {
	const query = `UPDATE attendance SET time_out = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, timeOut, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set attendance time out: %w", err)
	}
	return nil
}

// List returns attendance records with filtering and pagination.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, int, error) {
	base := "FROM attendance WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ScheduleID != "" {
		conditions = append(conditions, fmt.Sprintf("schedule_id = $%d", len(args)+1))
		args = append(args, filter.ScheduleID)
	}
	if filter.EnrollmentID != "" {
		conditions = append(conditions, fmt.Sprintf("enrollment_id = $%d", len(args)+1))
		args = append(args, filter.EnrollmentID)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, filter.DateFrom.Format("2006-01-02"))
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, filter.DateTo.Format("2006-01-02"))
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY date DESC, scanned_at DESC LIMIT %d OFFSET %d", attendanceColumns, base, size, offset)
	var records []models.Attendance
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}

	return records, total, nil
}
