package messaging

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

const handlerTestSecret = "messaging-test-secret"

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

	h := NewHandler(NewRepository(db), nil, nil)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.PortalAuth(handlerTestSecret))
		r.Get("/api/conversations", h.ListConversations)
		r.Post("/api/conversations", h.CreateConversation)
		r.Get("/api/conversations/{conversationID}/messages", h.ListMessages)
		r.Post("/api/conversations/{conversationID}/messages", h.SendMessage)
	})
	return r, mock
}

func TestCreateConversationReusesExisting(t *testing.T) {
	router, mock := newTestRouter(t)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM conversations").
		WithArgs("u1", "doc-1").
		WillReturnRows(sqlmock.NewRows(conversationCols).
			AddRow("c1", "u1", "doc-1", now, now))

	body, _ := json.Marshal(CreateConversationRequest{ParticipantID: "doc-1"})
	req := httptest.NewRequest(http.MethodPost, "/api/conversations", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "u1", middleware.RolePatient))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var conv Conversation
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &conv))
	require.Equal(t, "c1", conv.ID)
}

func TestCreateConversationRejectsSelf(t *testing.T) {
	router, _ := newTestRouter(t)

	body, _ := json.Marshal(CreateConversationRequest{ParticipantID: "u1"})
	req := httptest.NewRequest(http.MethodPost, "/api/conversations", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "u1", middleware.RolePatient))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSendMessageRequiresMembership(t *testing.T) {
	router, mock := newTestRouter(t)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM conversations WHERE id = \\$1").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(conversationCols).
			AddRow("c1", "other-1", "other-2", now, now))

	body, _ := json.Marshal(SendMessageRequest{Content: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/api/conversations/c1/messages", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "intruder", middleware.RolePatient))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestSendMessageStoresAndReturns(t *testing.T) {
	router, mock := newTestRouter(t)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM conversations WHERE id = \\$1").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(conversationCols).
			AddRow("c1", "u1", "doc-1", now, now))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO messages").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE conversations SET last_message_at").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	body, _ := json.Marshal(SendMessageRequest{Content: "How are the new results?"})
	req := httptest.NewRequest(http.MethodPost, "/api/conversations/c1/messages", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "doc-1", middleware.RoleDoctor))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var msg Message
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &msg))
	require.Equal(t, "doc-1", msg.SenderID)
	require.Equal(t, "How are the new results?", msg.Content)
}

func TestListMessagesNotFound(t *testing.T) {
	router, mock := newTestRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM conversations WHERE id = \\$1").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(conversationCols))

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/ghost/messages", nil)
	req.Header.Set("Authorization", bearerToken(t, "u1", middleware.RolePatient))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
}
