package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/saintraiser1433/react-attendance-system-sub001/internal/models"
)

// TokenRepository persists student identity tokens.
type TokenRepository struct {
	db *sqlx.DB
}

// NewTokenRepository creates a new token repository.
func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

const tokenColumns = "id, student_id, academic_year_id, semester_id, uuid, sig, issued_at, issued_by, revoked, revoked_at"

// FindActive returns the non-revoked token for a student within a period.
// sql.ErrNoRows when none exists; the partial unique index on
// (student_id, academic_year_id, semester_id) WHERE NOT revoked guarantees
// at most one row.
func (r *TokenRepository) FindActive(ctx context.Context, studentID string, period models.ActivePeriod) (*models.IdentityToken, error) {
	const query = `SELECT ` + tokenColumns + ` FROM identity_tokens WHERE student_id = $1 AND academic_year_id = $2 AND semester_id = $3 AND revoked = FALSE LIMIT 1`
	var token models.IdentityToken
	if err := r.db.GetContext(ctx, &token, query, studentID, period.AcademicYearID, period.SemesterID); err != nil {
		return nil, err
	}
	return &token, nil
}

// FindByUUID loads a token by its embedded uuid.
func (r *TokenRepository) FindByUUID(ctx context.Context, tokenUUID string) (*models.IdentityToken, error) {
	const query = `SELECT ` + tokenColumns + ` FROM identity_tokens WHERE uuid = $1 LIMIT 1`
	var token models.IdentityToken
	if err := r.db.GetContext(ctx, &token, query, tokenUUID); err != nil {
		return nil, err
	}
	return &token, nil
}

// Create stores a freshly issued token.
func (r *TokenRepository) Create(ctx context.Context, token *models.IdentityToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.IssuedAt.IsZero() {
		token.IssuedAt = time.Now().UTC()
	}

	const query = `INSERT INTO identity_tokens (id, student_id, academic_year_id, semester_id, uuid, sig, issued_at, issued_by, revoked) VALUES (:id, :student_id, :academic_year_id, :semester_id, :uuid, :sig, :issued_at, :issued_by, FALSE)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create identity token: %w", err)
	}
	return nil
}
