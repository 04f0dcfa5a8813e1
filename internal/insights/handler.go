package insights

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pulsecare/portal-api/internal/http/middleware"
	"github.com/pulsecare/portal-api/pkg/logging"
)

// Handler wires HTTP requests to the analysis service.
type Handler struct {
	service     *Service
	transcripts *TranscriptStore
	logger      *logging.Logger
}

// NewHandler creates an insights handler. transcripts may be nil, which
// disables the chat-session endpoints' history persistence.
func NewHandler(service *Service, transcripts *TranscriptStore, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service:     service,
		transcripts: transcripts,
		logger:      logger,
	}
}

// AnalyzeRequest is the payload for POST /api/ai/analyze. HistoryContext is
// already flattened to "ROLE: content" lines by the caller. IncludeRecords
// asks for the caller's recent medical records to be added as context.
type AnalyzeRequest struct {
	Query          string `json:"query"`
	HistoryContext string `json:"history_context,omitempty"`
	IncludeRecords bool   `json:"include_records,omitempty"`
}

// AnalyzeResponse carries the assistant's answer. Response is always
// displayable text, including for every backend failure mode.
type AnalyzeResponse struct {
	Response string `json:"response"`
}

// ChatMessageRequest is the payload for posting one chat turn.
type ChatMessageRequest struct {
	Message string `json:"message"`
}

// ChatHistoryResponse lists the stored turns of a chat session.
type ChatHistoryResponse struct {
	Messages []ChatMessage `json:"messages"`
}

// Analyze handles POST /api/ai/analyze.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode analyze request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	userID := ""
	if req.IncludeRecords {
		if claims, ok := middleware.PortalClaimsFromContext(r.Context()); ok {
			userID = claims.UserID()
		}
	}

	result := h.service.Analyze(r.Context(), req.Query, req.HistoryContext, userID)
	h.writeJSON(w, http.StatusOK, AnalyzeResponse{Response: result})
}

// Insight handles POST /api/ai/insight: the canned records summary for the
// dashboard health panel.
func (h *Handler) Insight(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.PortalClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	result := h.service.Insight(r.Context(), claims.UserID())
	h.writeJSON(w, http.StatusOK, AnalyzeResponse{Response: result})
}

// ChatHistory handles GET /api/ai/chat/{sessionID}.
func (h *Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.PortalClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if h.transcripts == nil {
		h.writeJSON(w, http.StatusOK, ChatHistoryResponse{Messages: []ChatMessage{}})
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	transcript, err := h.transcripts.Load(r.Context(), claims.UserID(), sessionID)
	if err != nil {
		h.logger.Error("failed to load chat transcript", "error", err, "session_id", sessionID)
		http.Error(w, "Failed to load chat history", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, ChatHistoryResponse{Messages: transcript})
}

// ChatMessage handles POST /api/ai/chat/{sessionID}. The stored transcript
// is flattened into a single history string before analysis, so the core
// still receives history the one way it accepts it.
func (h *Handler) ChatMessage(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.PortalClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req ChatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode chat message", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	var transcript []ChatMessage
	if h.transcripts != nil {
		loaded, err := h.transcripts.Load(r.Context(), claims.UserID(), sessionID)
		if err != nil {
			// A lost transcript only costs conversational context.
			h.logger.Warn("chat transcript unavailable, continuing without history",
				"error", err, "session_id", sessionID)
		} else {
			transcript = loaded
		}
	}

	historyContext := FlattenHistory(transcript)
	result := h.service.Analyze(r.Context(), req.Message, historyContext, "")

	if h.transcripts != nil {
		transcript = append(transcript,
			ChatMessage{Role: ChatRoleUser, Content: req.Message},
			ChatMessage{Role: ChatRoleAssistant, Content: result},
		)
		if err := h.transcripts.Save(r.Context(), claims.UserID(), sessionID, transcript); err != nil {
			h.logger.Warn("failed to persist chat transcript", "error", err, "session_id", sessionID)
		}
	}

	h.writeJSON(w, http.StatusOK, AnalyzeResponse{Response: result})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
