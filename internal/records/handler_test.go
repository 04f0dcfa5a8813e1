package records

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pulsecare/portal-api/internal/http/middleware"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "records-test-secret"

func bearerToken(t *testing.T, userID, role string) string {
	t.Helper()
	claims := middleware.PortalClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(handlerTestSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func newTestRouter(t *testing.T) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	h := NewHandler(NewRepository(db), nil)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.PortalAuth(handlerTestSecret))
		r.Get("/api/records", h.List)
		r.Post("/api/records", h.Create)
		r.Get("/api/records/{recordID}", h.Get)
		r.Delete("/api/records/{recordID}", h.Delete)
	})
	return r, mock
}

func TestListEndpoint(t *testing.T) {
	router, mock := newTestRouter(t)

	rows := sqlmock.NewRows(recordCols).
		AddRow("r1", "u1", "lab_test", "2026-08-30", nil, "CBC", nil,
			[]byte(`{"hr":72}`), nil, nil, "patient", time.Now())
	mock.ExpectQuery("SELECT (.+) FROM medical_records WHERE user_id = \\$1").
		WithArgs("u1", 20).
		WillReturnRows(rows)

	req := httptest.NewRequest(http.MethodGet, "/api/records", nil)
	req.Header.Set("Authorization", bearerToken(t, "u1", middleware.RolePatient))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Records []MedicalRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Records, 1)
	require.Equal(t, RecordTypeLabTest, resp.Records[0].Type)
	require.NotNil(t, resp.Records[0].LabTest)
}

func TestCreateEndpointValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	body, _ := json.Marshal(CreateRecordRequest{RecordType: "imaging", Date: "2026-08-30"})
	req := httptest.NewRequest(http.MethodPost, "/api/records", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "u1", middleware.RolePatient))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateEndpoint(t *testing.T) {
	router, mock := newTestRouter(t)

	mock.ExpectExec("INSERT INTO medical_records").
		WillReturnResult(sqlmock.NewResult(0, 1))

	body, _ := json.Marshal(CreateRecordRequest{
		RecordType:  RecordTypeLabTest,
		Date:        "2026-08-30",
		TestName:    "CBC",
		TestResults: ResultSet{{Key: "hr", Value: 72}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/records", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "u1", middleware.RolePatient))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var rec MedicalRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	require.Equal(t, "u1", rec.UserID)
	require.Equal(t, "patient", rec.UploadedBy)
	require.NotEmpty(t, rec.ID)
}

func TestCreateEndpointDoctorOnBehalf(t *testing.T) {
	router, mock := newTestRouter(t)

	mock.ExpectExec("INSERT INTO medical_records").
		WillReturnResult(sqlmock.NewResult(0, 1))

	body, _ := json.Marshal(CreateRecordRequest{
		UserID:           "patient-9",
		RecordType:       RecordTypePrescription,
		Date:             "2026-08-30",
		DoctorName:       "Dr. Wilson",
		PrescriptionText: "Take twice daily",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/records", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "doc-1", middleware.RoleDoctor))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var rec MedicalRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	require.Equal(t, "patient-9", rec.UserID)
	require.Equal(t, "doctor", rec.UploadedBy)
}

func TestGetEndpointHidesForeignRecords(t *testing.T) {
	router, mock := newTestRouter(t)

	rows := sqlmock.NewRows(recordCols).
		AddRow("r1", "someone-else", "lab_test", "2026-08-30", nil, nil, nil,
			nil, nil, nil, "patient", time.Now())
	mock.ExpectQuery("SELECT (.+) FROM medical_records WHERE id = \\$1").
		WithArgs("r1").
		WillReturnRows(rows)

	req := httptest.NewRequest(http.MethodGet, "/api/records/r1", nil)
	req.Header.Set("Authorization", bearerToken(t, "u1", middleware.RolePatient))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeleteEndpoint(t *testing.T) {
	router, mock := newTestRouter(t)

	mock.ExpectExec("DELETE FROM medical_records").
		WithArgs("r1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest(http.MethodDelete, "/api/records/r1", nil)
	req.Header.Set("Authorization", bearerToken(t, "u1", middleware.RolePatient))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
}
