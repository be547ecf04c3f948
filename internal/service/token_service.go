package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/saintraiser1433/react-attendance-system-sub001/internal/models"
	appErrors "github.com/saintraiser1433/react-attendance-system-sub001/pkg/errors"
)

type tokenRepository interface {
	FindActive(ctx context.Context, studentID string, period models.ActivePeriod) (*models.IdentityToken, error)
	FindByUUID(ctx context.Context, tokenUUID string) (*models.IdentityToken, error)
	Create(ctx context.Context, token *models.IdentityToken) error
}

type auditAppender interface {
	Append(ctx context.Context, entry *models.AuditLog) error
}

// IssueTokenRequest describes payload for issuing an identity token.
type IssueTokenRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	IssuerID  string `json:"-"`
}

// TokenService issues and verifies signed student identity tokens.
type TokenService struct {
	repo      tokenRepository
	audit     auditAppender
	secret    []byte
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTokenService instantiates TokenService.
func NewTokenService(repo tokenRepository, audit auditAppender, secret string, validate *validator.Validate, logger *zap.Logger) *TokenService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenService{repo: repo, audit: audit, secret: []byte(secret), validator: validate, logger: logger}
}

// Issue returns the student's identity token for the period, creating one
// on first request. Re-issuance is idempotent: an existing non-revoked
// token is returned unchanged, uuid and signature included.
func (s *TokenService) Issue(ctx context.Context, req IssueTokenRequest, period models.ActivePeriod) (*models.IdentityToken, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid token request")
	}
	if period.Zero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no active academic period")
	}

	existing, err := s.repo.FindActive(ctx, req.StudentID, period)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up existing token")
	}

	issuedAt := time.Now().UTC().Truncate(time.Second)
	token := &models.IdentityToken{
		StudentID:      req.StudentID,
		AcademicYearID: period.AcademicYearID,
		SemesterID:     period.SemesterID,
		UUID:           uuid.NewString(),
		IssuedAt:       issuedAt,
		IssuedBy:       req.IssuerID,
	}
	token.Signature = s.sign(token.StudentID, token.UUID, token.AcademicYearID, token.SemesterID, issuedAt.Format(time.RFC3339))

	if err := s.repo.Create(ctx, token); err != nil {
		// Two concurrent first issuances race to the partial unique
		// index; the loser returns the winner's token.
		if fetched, lookupErr := s.repo.FindActive(ctx, req.StudentID, period); lookupErr == nil {
			return fetched, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist token")
	}

	s.recordAudit(ctx, req.IssuerID, models.AuditActionTokenIssue, "identity_token", token.ID, map[string]interface{}{
		"student_id":       token.StudentID,
		"academic_year_id": token.AcademicYearID,
		"semester_id":      token.SemesterID,
	})

	return token, nil
}

// Verify checks a payload's signature. Missing fields reject before any
// signature work, with a distinct error from a mismatch.
func (s *TokenService) Verify(payload models.TokenPayload) error {
	if field := payload.MissingField(); field != "" {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("token payload missing required field %q", field))
	}

	expected := s.sign(payload.StudentID, payload.UUID, payload.AcademicYearID, payload.SemesterID, payload.IssuedAt)
	if !hmac.Equal([]byte(expected), []byte(payload.Sig)) {
		return appErrors.Clone(appErrors.ErrSignature, "token signature mismatch")
	}
	return nil
}

// VerifyLive validates the signature and then requires the uuid to resolve
// to a stored, non-revoked token for the same student and period. A valid
// signature alone is not sufficient.
func (s *TokenService) VerifyLive(ctx context.Context, payload models.TokenPayload) (*models.IdentityToken, error) {
	if err := s.Verify(payload); err != nil {
		return nil, err
	}

	token, err := s.repo.FindByUUID(ctx, payload.UUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrSignature, "token not recognized")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up token")
	}

	switch {
	case token.Revoked:
		return nil, appErrors.Clone(appErrors.ErrSignature, "token has been revoked")
	case token.StudentID != payload.StudentID:
		return nil, appErrors.Clone(appErrors.ErrSignature, "token does not belong to this student")
	case token.AcademicYearID != payload.AcademicYearID || token.SemesterID != payload.SemesterID:
		return nil, appErrors.Clone(appErrors.ErrSignature, "token was issued for a different academic period")
	}

	return token, nil
}

// sign computes the hex HMAC-SHA256 over the pipe-delimited canonical
// message studentID|uuid|yearID|semesterID|issuedAt.
func (s *TokenService) sign(studentID, tokenUUID, yearID, semesterID, issuedAt string) string {
	message := strings.Join([]string{studentID, tokenUUID, yearID, semesterID, issuedAt}, "|")
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *TokenService) recordAudit(ctx context.Context, actorID, action, entity, entityID string, metadata map[string]interface{}) {
	if s.audit == nil {
		return
	}
	body, _ := json.Marshal(metadata)
	entry := &models.AuditLog{ActorID: actorID, Action: action, Entity: entity, EntityID: entityID, Metadata: body}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", zap.String("action", action), zap.Error(err))
	}
}
