package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/saintraiser1433/react-attendance-system-sub001/internal/models"
)

// OverrideRepository persists per-date schedule overrides.
type OverrideRepository struct {
	db *sqlx.DB
}

// NewOverrideRepository constructs the repository.
func NewOverrideRepository(db *sqlx.DB) *OverrideRepository {
	return &OverrideRepository{db: db}
}

const overrideColumns = "id, schedule_id, date, type, reason, new_start, new_end, status, reviewed_by, created_at, updated_at"

// FindApproved returns the single APPROVED override for (schedule, date).
// sql.ErrNoRows when none exists.
func (r *OverrideRepository) FindApproved(ctx context.Context, scheduleID string, date time.Time) (*models.ScheduleOverride, error) {
	const query = `SELECT ` + overrideColumns + ` FROM schedule_overrides WHERE schedule_id = $1 AND date = $2 AND status = $3 LIMIT 1`
	var override models.ScheduleOverride
	if err := r.db.GetContext(ctx, &override, query, scheduleID, date.Format("2006-01-02"), models.OverrideStatusApproved); err != nil {
		return nil, err
	}
	return &override, nil
}

// FindByID loads an override by id.
func (r *OverrideRepository) FindByID(ctx context.Context, id string) (*models.ScheduleOverride, error) {
	const query = `SELECT ` + overrideColumns + ` FROM schedule_overrides WHERE id = $1`
	var override models.ScheduleOverride
	if err := r.db.GetContext(ctx, &override, query, id); err != nil {
		return nil, err
	}
	return &override, nil
}

// ListBySchedule returns every override for a schedule, newest date first.
func (r *OverrideRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]models.ScheduleOverride, error) {
	const query = `SELECT ` + overrideColumns + ` FROM schedule_overrides WHERE schedule_id = $1 ORDER BY date DESC`
	var overrides []models.ScheduleOverride
	if err := r.db.SelectContext(ctx, &overrides, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list schedule overrides: %w", err)
	}
	return overrides, nil
}

// Create stores a submitted override. The unique constraint on
// (schedule_id, date) rejects a second submission for the same occurrence.
func (r *OverrideRepository) Create(ctx context.Context, override *models.ScheduleOverride) error {
	if override.ID == "" {
		override.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if override.CreatedAt.IsZero() {
		override.CreatedAt = now
	}
	override.UpdatedAt = now

	const query = `INSERT INTO schedule_overrides (id, schedule_id, date, type, reason, new_start, new_end, status, created_at, updated_at) VALUES (:id, :schedule_id, :date, :type, :reason, :new_start, :new_end, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, override); err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicateOverride
		}
		return fmt.Errorf("create schedule override: %w", err)
	}
	return nil
}

// UpdateStatus records the review decision for an override.
func (r *OverrideRepository) UpdateStatus(ctx context.Context, id string, status models.OverrideStatus, reviewerID string) error {
	const query = `UPDATE schedule_overrides SET status = $1, reviewed_by = $2, updated_at = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, status, reviewerID, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update override status: %w", err)
	}
	return nil
}
