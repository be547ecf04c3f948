package models

import "time"

// Enrollment links a student to a subject within an academic period.
// Unique per (student, subject, academic year, semester). Created by the
// teacher-facing enrollment workflow; read-only to this API.
type Enrollment struct {
	ID             string    `db:"id" json:"id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	SubjectID      string    `db:"subject_id" json:"subject_id"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	SemesterID     string    `db:"semester_id" json:"semester_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
