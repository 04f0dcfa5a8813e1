package messaging

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pulsecare/portal-api/internal/http/middleware"
	"github.com/pulsecare/portal-api/pkg/logging"
)

const (
	defaultMessageLimit = 100
	maxMessageLimit     = 500
)

// Handler exposes the direct-messaging HTTP surface.
type Handler struct {
	repo   *Repository
	hub    *Hub
	logger *logging.Logger
}

func NewHandler(repo *Repository, hub *Hub, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, hub: hub, logger: logger}
}

// CreateConversationRequest starts (or resumes) a thread with another user.
type CreateConversationRequest struct {
	ParticipantID string `json:"participant_id"`
}

// SendMessageRequest posts a message into an existing conversation.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// ListConversations handles GET /api/conversations.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.PortalClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conversations, err := h.repo.ListConversations(r.Context(), claims.UserID())
	if err != nil {
		h.logger.Error("failed to list conversations", "error", err, "user_id", claims.UserID())
		http.Error(w, "failed to list conversations", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

// CreateConversation handles POST /api/conversations. Reuses the
// existing thread when one already connects the two users.
func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.PortalClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.ParticipantID = strings.TrimSpace(req.ParticipantID)
	if req.ParticipantID == "" {
		http.Error(w, "participant_id is required", http.StatusBadRequest)
		return
	}
	if req.ParticipantID == claims.UserID() {
		http.Error(w, "cannot start a conversation with yourself", http.StatusBadRequest)
		return
	}

	existing, err := h.repo.FindConversation(r.Context(), claims.UserID(), req.ParticipantID)
	if err != nil {
		h.logger.Error("failed to look up conversation", "error", err, "user_id", claims.UserID())
		http.Error(w, "failed to create conversation", http.StatusInternalServerError)
		return
	}
	if existing != nil {
		h.writeJSON(w, http.StatusOK, existing)
		return
	}

	conv, err := h.repo.CreateConversation(r.Context(), claims.UserID(), req.ParticipantID)
	if err != nil {
		h.logger.Error("failed to create conversation", "error", err, "user_id", claims.UserID())
		http.Error(w, "failed to create conversation", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusCreated, conv)
}

// ListMessages handles GET /api/conversations/{conversationID}/messages.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.PortalClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conv := h.memberConversation(w, r, claims.UserID())
	if conv == nil {
		return
	}

	limit := defaultMessageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}

	messages, err := h.repo.ListMessages(r.Context(), conv.ID, limit)
	if err != nil {
		h.logger.Error("failed to list messages", "error", err, "conversation_id", conv.ID)
		http.Error(w, "failed to list messages", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// SendMessage handles POST /api/conversations/{conversationID}/messages.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.PortalClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conv := h.memberConversation(w, r, claims.UserID())
	if conv == nil {
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}

	msg, err := h.repo.CreateMessage(r.Context(), conv.ID, claims.UserID(), req.Content)
	if err != nil {
		h.logger.Error("failed to store message", "error", err, "conversation_id", conv.ID)
		http.Error(w, "failed to send message", http.StatusInternalServerError)
		return
	}
	if h.hub != nil {
		h.hub.Publish(conv, msg)
	}
	h.writeJSON(w, http.StatusCreated, msg)
}

// memberConversation loads the routed conversation and enforces that
// userID participates in it. Writes the error response and returns nil
// when access is denied or the thread does not exist.
func (h *Handler) memberConversation(w http.ResponseWriter, r *http.Request, userID string) *Conversation {
	conversationID := chi.URLParam(r, "conversationID")
	conv, err := h.repo.GetConversation(r.Context(), conversationID)
	if err != nil {
		h.logger.Error("failed to load conversation", "error", err, "conversation_id", conversationID)
		http.Error(w, "failed to load conversation", http.StatusInternalServerError)
		return nil
	}
	if conv == nil {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return nil
	}
	if !conv.HasParticipant(userID) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return nil
	}
	return conv
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
