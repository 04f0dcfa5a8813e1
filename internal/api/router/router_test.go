package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	httpmiddleware "github.com/pulsecare/portal-api/internal/http/middleware"
	"github.com/pulsecare/portal-api/internal/profiles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret"

func signToken(t *testing.T, userID, role string) string {
	t.Helper()
	claims := httpmiddleware.PortalClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func newTestConfig(t *testing.T) (*Config, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Config{
		AuthSecret:      testSecret,
		ProfilesHandler: profiles.NewHandler(profiles.NewRepository(db), nil),
	}, mock
}

func TestHealthEndpointIsPublic(t *testing.T) {
	cfg, _ := newTestConfig(t)
	h := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestAPIRequiresAuth(t *testing.T) {
	cfg, _ := newTestConfig(t)
	h := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAPIRejectsBadToken(t *testing.T) {
	cfg, _ := newTestConfig(t)
	h := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthedRequestReachesHandler(t *testing.T) {
	cfg, mock := newTestConfig(t)
	h := New(cfg)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM profiles WHERE id = \\$1").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "role", "full_name", "email", "is_onboarded", "specialization",
			"hospital_name", "experience_years", "age", "gender", "created_at", "updated_at",
		}).AddRow("u1", "patient", "Pat Doe", "pat@example.com", true,
			nil, nil, nil, nil, nil, now, now))

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "u1", httpmiddleware.RolePatient))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestUnwiredRoutesReturn404(t *testing.T) {
	cfg, _ := newTestConfig(t)
	h := New(cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/ai/analyze", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "u1", httpmiddleware.RolePatient))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPatientsRouteIsDoctorOnly(t *testing.T) {
	cfg, _ := newTestConfig(t)
	h := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "u1", httpmiddleware.RolePatient))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	cfg, _ := newTestConfig(t)
	cfg.CORSAllowedOrigins = []string{"https://portal.example.com"}
	h := New(cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/profile", nil)
	req.Header.Set("Origin", "https://portal.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "https://portal.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}
