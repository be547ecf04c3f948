package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/saintraiser1433/react-attendance-system-sub001/internal/models"
)

// TermRepository resolves the active academic period. The settings row
// is owned by the admin subsystem; this API only reads it, once per
// request, and threads the value through explicitly.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository constructs the repository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

// FindActivePeriod returns the currently active (academic year, semester)
// pair. sql.ErrNoRows when no semester is marked active.
func (r *TermRepository) FindActivePeriod(ctx context.Context) (models.ActivePeriod, error) {
	const query = `SELECT academic_year_id, id AS semester_id FROM semesters WHERE active = TRUE LIMIT 1`
	var row struct {
		AcademicYearID string `db:"academic_year_id"`
		SemesterID     string `db:"semester_id"`
	}
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return models.ActivePeriod{}, err
	}
	return models.ActivePeriod{AcademicYearID: row.AcademicYearID, SemesterID: row.SemesterID}, nil
}
