package messaging

import (
	"net/http"
	"sync"
	"time"

	"github.com/pulsecare/portal-api/internal/http/middleware"
	"github.com/pulsecare/portal-api/pkg/logging"
	"golang.org/x/net/websocket"
)

// OutboundEvent is what the realtime hub pushes to connected clients.
type OutboundEvent struct {
	Type           string   `json:"type"` // "message", "pong", "error"
	ConversationID string   `json:"conversation_id,omitempty"`
	Message        *Message `json:"message,omitempty"`
	Text           string   `json:"text,omitempty"`
}

type inboundEvent struct {
	Type string `json:"type"` // "ping"
}

// Hub tracks live WebSocket connections per user and fans new
// messages out to whoever is online.
type Hub struct {
	logger *logging.Logger

	mu    sync.RWMutex
	conns map[string][]*wsConn // userID -> active connections
}

type wsConn struct {
	conn *websocket.Conn
	done chan struct{}
}

func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		logger: logger,
		conns:  make(map[string][]*wsConn),
	}
}

// HandleWebSocket upgrades to WebSocket and keeps the connection
// registered until the client disconnects. Auth middleware must run
// before this handler.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.PortalClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, claims.UserID())
	}).ServeHTTP(w, r)
}

func (h *Hub) serveWS(conn *websocket.Conn, userID string) {
	wsc := &wsConn{conn: conn, done: make(chan struct{})}
	h.mu.Lock()
	h.conns[userID] = append(h.conns[userID], wsc)
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		live := h.conns[userID][:0]
		for _, c := range h.conns[userID] {
			if c != wsc {
				live = append(live, c)
			}
		}
		if len(live) == 0 {
			delete(h.conns, userID)
		} else {
			h.conns[userID] = live
		}
		h.mu.Unlock()
		close(wsc.done)
	}()

	h.logger.Info("messaging: connection opened", "user_id", userID)

	for {
		var msg inboundEvent
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("messaging: connection closed", "user_id", userID, "error", err)
			return
		}
		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundEvent{Type: "pong"})
		}
	}
}

// Publish delivers a stored message to both participants' live
// connections. Offline users pick it up from the message list.
func (h *Hub) Publish(conv *Conversation, msg *Message) {
	event := OutboundEvent{
		Type:           "message",
		ConversationID: conv.ID,
		Message:        msg,
	}
	h.sendToUser(conv.Participant1ID, event)
	h.sendToUser(conv.Participant2ID, event)
}

func (h *Hub) sendToUser(userID string, event OutboundEvent) {
	h.mu.RLock()
	conns := append([]*wsConn(nil), h.conns[userID]...)
	h.mu.RUnlock()
	for _, c := range conns {
		_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		_ = websocket.JSON.Send(c.conn, event)
	}
}

// Online reports whether userID has at least one live connection.
func (h *Hub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID]) > 0
}
