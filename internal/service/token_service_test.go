package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saintraiser1433/react-attendance-system-sub001/internal/models"
	appErrors "github.com/saintraiser1433/react-attendance-system-sub001/pkg/errors"
)

type stubTokenRepo struct {
	byUUID     map[string]*models.IdentityToken
	createErr  error
	raceWinner *models.IdentityToken
	created    int
}

func (m *stubTokenRepo) FindActive(ctx context.Context, studentID string, period models.ActivePeriod) (*models.IdentityToken, error) {
	for _, token := range m.byUUID {
		if token.StudentID == studentID && token.AcademicYearID == period.AcademicYearID && token.SemesterID == period.SemesterID && !token.Revoked {
			return token, nil
		}
	}
	if m.raceWinner != nil {
		return m.raceWinner, nil
	}
	return nil, sql.ErrNoRows
}

func (m *stubTokenRepo) FindByUUID(ctx context.Context, tokenUUID string) (*models.IdentityToken, error) {
	if token, ok := m.byUUID[tokenUUID]; ok {
		return token, nil
	}
	return nil, sql.ErrNoRows
}

func (m *stubTokenRepo) Create(ctx context.Context, token *models.IdentityToken) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.byUUID == nil {
		m.byUUID = make(map[string]*models.IdentityToken)
	}
	m.created++
	token.ID = fmt.Sprintf("tok-%d", m.created)
	m.byUUID[token.UUID] = token
	return nil
}

type stubAudit struct {
	entries []*models.AuditLog
}

func (m *stubAudit) Append(ctx context.Context, entry *models.AuditLog) error {
	m.entries = append(m.entries, entry)
	return nil
}

func activePeriod() models.ActivePeriod {
	return models.ActivePeriod{AcademicYearID: "ay-2026", SemesterID: "sem-1"}
}

func TestTokenServiceIssueAndVerify(t *testing.T) {
	repo := &stubTokenRepo{}
	audit := &stubAudit{}
	svc := NewTokenService(repo, audit, "test-secret", nil, nil)

	token, err := svc.Issue(context.Background(), IssueTokenRequest{StudentID: "stu-1", IssuerID: "admin-1"}, activePeriod())
	require.NoError(t, err)
	require.NotEmpty(t, token.UUID)
	require.NotEmpty(t, token.Signature)
	assert.Equal(t, "stu-1", token.StudentID)
	assert.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionTokenIssue, audit.entries[0].Action)

	require.NoError(t, svc.Verify(models.PayloadFor(token)))
}

func TestTokenServiceIssueIdempotent(t *testing.T) {
	repo := &stubTokenRepo{}
	svc := NewTokenService(repo, nil, "test-secret", nil, nil)

	first, err := svc.Issue(context.Background(), IssueTokenRequest{StudentID: "stu-1"}, activePeriod())
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), IssueTokenRequest{StudentID: "stu-1"}, activePeriod())
	require.NoError(t, err)

	assert.Equal(t, first.UUID, second.UUID)
	assert.Equal(t, first.Signature, second.Signature)
	assert.Equal(t, 1, repo.created)
}

func TestTokenServiceIssueRaceReturnsWinner(t *testing.T) {
	winner := &models.IdentityToken{ID: "tok-w", StudentID: "stu-1", UUID: "winner-uuid"}
	repo := &stubTokenRepo{createErr: errors.New("duplicate key value violates unique constraint")}
	svc := NewTokenService(repo, nil, "test-secret", nil, nil)

	// Simulate losing the insert race: the create fails and a concurrent
	// issuance has already persisted a token.
	repo.raceWinner = winner

	token, err := svc.Issue(context.Background(), IssueTokenRequest{StudentID: "stu-1"}, activePeriod())
	require.NoError(t, err)
	assert.Equal(t, "winner-uuid", token.UUID)
}

func TestTokenServiceVerifyRejectsTampering(t *testing.T) {
	repo := &stubTokenRepo{}
	svc := NewTokenService(repo, nil, "test-secret", nil, nil)

	token, err := svc.Issue(context.Background(), IssueTokenRequest{StudentID: "stu-1"}, activePeriod())
	require.NoError(t, err)

	tampered := models.PayloadFor(token)
	tampered.StudentID = "stu-2"
	err = svc.Verify(tampered)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSignature.Code, appErrors.FromError(err).Code)

	flipped := models.PayloadFor(token)
	flipped.Sig = flipped.Sig[:len(flipped.Sig)-1] + "0"
	if flipped.Sig == token.Signature {
		flipped.Sig = flipped.Sig[:len(flipped.Sig)-1] + "1"
	}
	err = svc.Verify(flipped)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSignature.Code, appErrors.FromError(err).Code)
}

func TestTokenServiceVerifyMissingFieldBeforeSignature(t *testing.T) {
	svc := NewTokenService(&stubTokenRepo{}, nil, "test-secret", nil, nil)

	payload := models.TokenPayload{
		StudentID:      "stu-1",
		UUID:           "u-1",
		AcademicYearID: "ay-2026",
		SemesterID:     "sem-1",
		IssuedAt:       "2026-08-31T08:00:00Z",
	}
	err := svc.Verify(payload)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "sig")
}

func TestTokenServiceVerifyLive(t *testing.T) {
	repo := &stubTokenRepo{}
	svc := NewTokenService(repo, nil, "test-secret", nil, nil)

	token, err := svc.Issue(context.Background(), IssueTokenRequest{StudentID: "stu-1"}, activePeriod())
	require.NoError(t, err)

	live, err := svc.VerifyLive(context.Background(), models.PayloadFor(token))
	require.NoError(t, err)
	assert.Equal(t, token.UUID, live.UUID)

	token.Revoked = true
	_, err = svc.VerifyLive(context.Background(), models.PayloadFor(token))
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Message, "revoked")
}

func TestTokenServiceVerifyLiveUnknownUUID(t *testing.T) {
	issuer := NewTokenService(&stubTokenRepo{}, nil, "test-secret", nil, nil)
	token, err := issuer.Issue(context.Background(), IssueTokenRequest{StudentID: "stu-1"}, activePeriod())
	require.NoError(t, err)

	// Valid signature, but no live record behind it.
	verifier := NewTokenService(&stubTokenRepo{}, nil, "test-secret", nil, nil)
	_, err = verifier.VerifyLive(context.Background(), models.PayloadFor(token))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSignature.Code, appErrors.FromError(err).Code)
}

func TestTokenServiceIssueRequiresActivePeriod(t *testing.T) {
	svc := NewTokenService(&stubTokenRepo{}, nil, "test-secret", nil, nil)

	_, err := svc.Issue(context.Background(), IssueTokenRequest{StudentID: "stu-1"}, models.ActivePeriod{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
