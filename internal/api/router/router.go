package router

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpmiddleware "github.com/pulsecare/portal-api/internal/http/middleware"
	"github.com/pulsecare/portal-api/internal/insights"
	"github.com/pulsecare/portal-api/internal/messaging"
	"github.com/pulsecare/portal-api/internal/profiles"
	"github.com/pulsecare/portal-api/internal/records"
	"github.com/pulsecare/portal-api/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger           *logging.Logger
	InsightsHandler  *insights.Handler
	RecordsHandler   *records.Handler
	ProfilesHandler  *profiles.Handler
	MessagingHandler *messaging.Handler
	RealtimeHub      *messaging.Hub
	MetricsHandler   http.Handler

	AuthSecret         string
	CORSAllowedOrigins []string

	// AI endpoints get their own, stricter rate limit.
	AIRateLimitPerSec float64
	AIRateLimitBurst  int

	// Optional; when set, /health pings the database.
	DB *sql.DB
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck(cfg.DB))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Authenticated API
	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.PortalAuth(cfg.AuthSecret))

		if cfg.ProfilesHandler != nil {
			api.Get("/profile", cfg.ProfilesHandler.Get)
			api.Put("/profile", cfg.ProfilesHandler.Update)
			api.With(httpmiddleware.RequireRole(httpmiddleware.RoleDoctor, httpmiddleware.RoleAdmin)).
				Get("/patients", cfg.ProfilesHandler.ListPatients)
		}

		if cfg.RecordsHandler != nil {
			api.Route("/records", func(rec chi.Router) {
				rec.Get("/", cfg.RecordsHandler.List)
				rec.Post("/", cfg.RecordsHandler.Create)
				rec.Get("/{recordID}", cfg.RecordsHandler.Get)
				rec.Delete("/{recordID}", cfg.RecordsHandler.Delete)
			})
		}

		if cfg.MessagingHandler != nil {
			api.Route("/conversations", func(conv chi.Router) {
				conv.Get("/", cfg.MessagingHandler.ListConversations)
				conv.Post("/", cfg.MessagingHandler.CreateConversation)
				conv.Get("/{conversationID}/messages", cfg.MessagingHandler.ListMessages)
				conv.Post("/{conversationID}/messages", cfg.MessagingHandler.SendMessage)
			})
		}

		if cfg.InsightsHandler != nil {
			api.Route("/ai", func(ai chi.Router) {
				if cfg.AIRateLimitPerSec > 0 {
					ai.Use(httpmiddleware.RateLimit(cfg.AIRateLimitPerSec, cfg.AIRateLimitBurst))
				}
				ai.Post("/analyze", cfg.InsightsHandler.Analyze)
				ai.Post("/insight", cfg.InsightsHandler.Insight)
				ai.Get("/chat/{sessionID}", cfg.InsightsHandler.ChatHistory)
				ai.Post("/chat/{sessionID}", cfg.InsightsHandler.ChatMessage)
			})
		}
	})

	// Realtime messaging socket
	if cfg.RealtimeHub != nil {
		r.Group(func(ws chi.Router) {
			ws.Use(httpmiddleware.PortalAuth(cfg.AuthSecret))
			ws.Get("/ws/conversations", cfg.RealtimeHub.HandleWebSocket)
		})
	}

	return r
}

func healthCheck(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}
