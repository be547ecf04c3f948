package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalmiddleware "github.com/saintraiser1433/react-attendance-system-sub001/internal/middleware"
	"github.com/saintraiser1433/react-attendance-system-sub001/internal/models"
	"github.com/saintraiser1433/react-attendance-system-sub001/internal/service"
	"github.com/saintraiser1433/react-attendance-system-sub001/pkg/response"
)

type tokenRepoMock struct {
	byUUID map[string]*models.IdentityToken
}

func (m *tokenRepoMock) FindActive(ctx context.Context, studentID string, period models.ActivePeriod) (*models.IdentityToken, error) {
	for _, token := range m.byUUID {
		if token.StudentID == studentID && !token.Revoked {
			return token, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *tokenRepoMock) FindByUUID(ctx context.Context, tokenUUID string) (*models.IdentityToken, error) {
	if token, ok := m.byUUID[tokenUUID]; ok {
		return token, nil
	}
	return nil, sql.ErrNoRows
}

func (m *tokenRepoMock) Create(ctx context.Context, token *models.IdentityToken) error {
	if m.byUUID == nil {
		m.byUUID = make(map[string]*models.IdentityToken)
	}
	token.ID = "tok-1"
	m.byUUID[token.UUID] = token
	return nil
}

type periodSourceMock struct{}

func (m *periodSourceMock) FindActivePeriod(ctx context.Context) (models.ActivePeriod, error) {
	return models.ActivePeriod{AcademicYearID: "ay-2026", SemesterID: "sem-1"}, nil
}

func newTokenHandlerFixture() (*TokenHandler, *tokenRepoMock) {
	repo := &tokenRepoMock{}
	svc := service.NewTokenService(repo, nil, "test-secret", nil, nil)
	return NewTokenHandler(svc, &periodSourceMock{}), repo
}

func withClaims(c *gin.Context, role models.UserRole) {
	c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: role})
}

func TestTokenHandlerIssue(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _ := newTokenHandlerFixture()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/tokens", bytes.NewReader([]byte(`{"student_id":"stu-1"}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	withClaims(c, models.RoleAdmin)

	h.Issue(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data struct {
			Payload models.TokenPayload `json:"payload"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "stu-1", envelope.Data.Payload.StudentID)
	assert.NotEmpty(t, envelope.Data.Payload.Sig)
}

func TestTokenHandlerIssueValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _ := newTokenHandlerFixture()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/tokens", bytes.NewReader([]byte(`{"student_id":`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	withClaims(c, models.RoleAdmin)

	h.Issue(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTokenHandlerVerifyTamperedSignature(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, repo := newTokenHandlerFixture()

	// Issue through the handler so a live record exists.
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/tokens", bytes.NewReader([]byte(`{"student_id":"stu-1"}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	withClaims(c, models.RoleAdmin)
	h.Issue(c)
	require.Equal(t, http.StatusOK, w.Code)

	var issued *models.IdentityToken
	for _, token := range repo.byUUID {
		issued = token
	}
	require.NotNil(t, issued)

	payload := models.PayloadFor(issued)
	payload.StudentID = "stu-2"
	body, _ := json.Marshal(payload)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	req, _ = http.NewRequest(http.MethodPost, "/tokens/verify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Verify(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "SIGNATURE_ERROR", envelope.Error.Code)
}

func TestTokenHandlerQRRendersPNG(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _ := newTokenHandlerFixture()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/tokens/stu-1/qr", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "studentId", Value: "stu-1"}}
	withClaims(c, models.RoleAdmin)

	h.QR(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	// PNG magic bytes.
	require.True(t, w.Body.Len() > 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, w.Body.Bytes()[:4])
}

func TestTokenHandlerRBACBlocksStudents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _ := newTokenHandlerFixture()

	router := gin.New()
	router.POST("/tokens", func(c *gin.Context) {
		withClaims(c, models.RoleStudent)
	}, internalmiddleware.RequireRoles(models.RoleAdmin), h.Issue)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/tokens", bytes.NewReader([]byte(`{"student_id":"stu-1"}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}
