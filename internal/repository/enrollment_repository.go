package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/saintraiser1433/react-attendance-system-sub001/internal/models"
)

// EnrollmentRepository reads enrollments created by the external
// enrollment workflow.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Find returns the enrollment tying a student to a subject within a
// period. sql.ErrNoRows when the student is not enrolled.
func (r *EnrollmentRepository) Find(ctx context.Context, studentID, subjectID string, period models.ActivePeriod) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, subject_id, academic_year_id, semester_id, created_at FROM enrollments WHERE student_id = $1 AND subject_id = $2 AND academic_year_id = $3 AND semester_id = $4 LIMIT 1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, subjectID, period.AcademicYearID, period.SemesterID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}
