package models

import (
	"time"

	"github.com/saintraiser1433/react-attendance-system-sub001/internal/clock"
)

// AttendanceStatus classifies an attendance record.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
	AttendanceStatusLate    AttendanceStatus = "LATE"
	AttendanceStatusExcused AttendanceStatus = "EXCUSED"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// ScanAction names which state transition a successful scan performed.
type ScanAction string

const (
	ScanActionTimeIn  ScanAction = "time_in"
	ScanActionTimeOut ScanAction = "time_out"
)

// Attendance is the daily attendance record for one enrollment. Unique per
// (enrollment, date); created on the first scan of the day, completed by
// the time-out scan, never deleted here. Lateness is computed once at
// time-in and persisted rather than rederived by readers.
type Attendance struct {
	ID            string           `db:"id" json:"id"`
	EnrollmentID  string           `db:"enrollment_id" json:"enrollment_id"`
	Date          time.Time        `db:"date" json:"date"`
	Status        AttendanceStatus `db:"status" json:"status"`
	TimeIn        clock.ClockTime  `db:"time_in" json:"time_in"`
	TimeOut       *clock.ClockTime `db:"time_out" json:"time_out,omitempty"`
	ScannedAt     time.Time        `db:"scanned_at" json:"scanned_at"`
	ScheduleID    string           `db:"schedule_id" json:"schedule_id"`
	ScannerUserID string           `db:"scanner_user_id" json:"scanner_user_id"`
	Note          *string          `db:"note" json:"note,omitempty"`
	IsLate        bool             `db:"is_late" json:"is_late"`
	LateMinutes   int              `db:"late_minutes" json:"late_minutes"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// Complete reports whether the record has both scans of the day.
func (a *Attendance) Complete() bool {
	return a.TimeOut != nil
}

// AttendanceFilter scopes attendance listing queries.
type AttendanceFilter struct {
	ScheduleID   string
	EnrollmentID string
	DateFrom     *time.Time
	DateTo       *time.Time
	Status       *AttendanceStatus
	Page         int
	PageSize     int
}
