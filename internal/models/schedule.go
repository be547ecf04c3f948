package models

import (
	"fmt"
	"time"

	"github.com/saintraiser1433/react-attendance-system-sub001/internal/clock"
)

// DayName maps a 0-6 day-of-week to its English name. Sunday is 0,
// matching time.Weekday.
func DayName(day int) string {
	if day < 0 || day > 6 {
		return fmt.Sprintf("day(%d)", day)
	}
	return time.Weekday(day).String()
}

// Schedule represents a weekly recurring class meeting within an academic
// period. Department/year-level/section are optional constraints on who may
// scan against it; nil means any.
type Schedule struct {
	ID             string          `db:"id" json:"id"`
	SubjectID      string          `db:"subject_id" json:"subject_id"`
	TeacherID      string          `db:"teacher_id" json:"teacher_id"`
	DayOfWeek      int             `db:"day_of_week" json:"day_of_week"`
	StartTime      clock.ClockTime `db:"start_time" json:"start_time"`
	EndTime        clock.ClockTime `db:"end_time" json:"end_time"`
	Room           string          `db:"room" json:"room"`
	DepartmentID   *string         `db:"department_id" json:"department_id,omitempty"`
	YearLevel      *string         `db:"year_level" json:"year_level,omitempty"`
	SectionID      *string         `db:"section_id" json:"section_id,omitempty"`
	AcademicYearID string          `db:"academic_year_id" json:"academic_year_id"`
	SemesterID     string          `db:"semester_id" json:"semester_id"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// Overlaps reports whether the candidate interval collides with this
// schedule. Boundary coincidence counts: a class starting exactly when
// another ends (or vice versa) is a conflict, so the test is a closed
// interval intersection rather than the usual half-open one.
func (s *Schedule) Overlaps(start, end clock.ClockTime) bool {
	return !start.After(s.EndTime) && !end.Before(s.StartTime)
}

// Window formats the schedule's meeting time for messages.
func (s *Schedule) Window() string {
	return fmt.Sprintf("%s %s-%s", DayName(s.DayOfWeek), s.StartTime.Format12(), s.EndTime.Format12())
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	TeacherID      string
	SubjectID      string
	DayOfWeek      *int
	AcademicYearID string
	SemesterID     string
	Page           int
	PageSize       int
}

// ScheduleConflict describes an existing schedule that blocks a candidate.
type ScheduleConflict struct {
	ScheduleID string `json:"schedule_id"`
	SubjectID  string `json:"subject_id"`
	TeacherID  string `json:"teacher_id"`
	DayOfWeek  int    `json:"day_of_week"`
	Day        string `json:"day"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Room       string `json:"room"`
}

// ScheduleConflictError is returned when a schedule collides with an
// existing one on the strict create/update path.
type ScheduleConflictError struct {
	Message  string           `json:"message"`
	Conflict ScheduleConflict `json:"conflict"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// NewScheduleConflict captures the conflicting schedule's coordinates.
func NewScheduleConflict(existing Schedule) ScheduleConflict {
	return ScheduleConflict{
		ScheduleID: existing.ID,
		SubjectID:  existing.SubjectID,
		TeacherID:  existing.TeacherID,
		DayOfWeek:  existing.DayOfWeek,
		Day:        DayName(existing.DayOfWeek),
		StartTime:  existing.StartTime.String(),
		EndTime:    existing.EndTime.String(),
		Room:       existing.Room,
	}
}
