package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/pulsecare/portal-api/internal/api/router"
	appconfig "github.com/pulsecare/portal-api/internal/config"
	"github.com/pulsecare/portal-api/internal/insights"
	"github.com/pulsecare/portal-api/internal/messaging"
	"github.com/pulsecare/portal-api/internal/observability/metrics"
	"github.com/pulsecare/portal-api/internal/profiles"
	"github.com/pulsecare/portal-api/internal/records"
	"github.com/pulsecare/portal-api/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel, cfg.Env)
	logger.Info("starting portal API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.AuthJWTSecret == "" {
		logger.Error("AUTH_JWT_SECRET is required")
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	aiMetrics := metrics.NewAIMetrics(registry)

	// AI completion providers. The server still serves every other route
	// when no provider is configured; the AI endpoints answer with their
	// unavailable message instead.
	var llmClient insights.LLMClient
	if cfg.GroqAPIKey != "" {
		groq, err := insights.NewGroqLLMClient(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GroqModel)
		if err != nil {
			logger.Error("failed to build completion client", "error", err)
			os.Exit(1)
		}
		llmClient = groq
		if cfg.GeminiAPIKey != "" {
			gemini, err := insights.NewGeminiLLMClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
			if err != nil {
				logger.Error("failed to build fallback completion client", "error", err)
				os.Exit(1)
			}
			defer func() { _ = gemini.Close() }()
			llmClient = insights.NewFallbackLLMClient(groq, gemini, logger)
		}
	} else {
		logger.Warn("GROQ_API_KEY not set, AI analysis disabled")
	}

	// Wire the analysis pipeline
	recordsRepo := records.NewRepository(db)
	contextBuilder := insights.NewContextBuilder(recordsRepo, logger).WithMetrics(aiMetrics)
	completer := insights.NewCompleter(llmClient, cfg.GroqModel, cfg.AIRequestTimeout, logger)
	analysisService := insights.NewService(contextBuilder, completer, aiMetrics, logger)
	transcripts := insights.NewTranscriptStore(redisClient)

	profilesRepo := profiles.NewRepository(db)
	messagingRepo := messaging.NewRepository(db)
	hub := messaging.NewHub(logger)

	routerCfg := &router.Config{
		Logger:             logger,
		InsightsHandler:    insights.NewHandler(analysisService, transcripts, logger),
		RecordsHandler:     records.NewHandler(recordsRepo, logger),
		ProfilesHandler:    profiles.NewHandler(profilesRepo, logger),
		MessagingHandler:   messaging.NewHandler(messagingRepo, hub, logger),
		RealtimeHub:        hub,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AuthSecret:         cfg.AuthJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AIRateLimitPerSec:  cfg.AIRateLimitPerSec,
		AIRateLimitBurst:   cfg.AIRateLimitBurst,
		DB:                 db,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
