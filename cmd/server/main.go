package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"hooklens/internal/api"
	"hooklens/internal/api/handlers"
	"hooklens/internal/api/middleware"
	"hooklens/internal/engine/capture"
	"hooklens/internal/engine/endpoints"
	"hooklens/internal/engine/notify"
	"hooklens/internal/engine/ratelimit"
	"hooklens/internal/engine/sink"
	"hooklens/internal/pkg/logger"
	"hooklens/internal/platform/audit"
	"hooklens/internal/platform/auth"
	"hooklens/internal/platform/config"
	"hooklens/internal/platform/database"
	"hooklens/internal/platform/repositories"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging)

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("jwt.secret must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	webhookRepo := repositories.NewWebhookRepository(db)
	requestRepo := repositories.NewRequestRepository(db)
	rateLimitRepo := repositories.NewRateLimitRepository(db)

	// Notifications
	dispatcher := notify.NewDispatcher(cfg.Notifications,
		notify.NewEmailNotifier(cfg.Email.SMTP, userRepo, cfg.Domains.AppURL),
		notify.NewSlackNotifier(cfg.Notifications.SlackWebhookURL, cfg.Domains.AppURL),
	)
	dispatcher.Start()

	// Services
	urls := endpoints.URLBuilder{BaseURL: cfg.Domains.PublicBaseURL}
	registry := endpoints.NewRegistry(webhookRepo, endpoints.NewCache(cfg.Cache.MaxEntries, cfg.Cache.EndpointTTL), urls)
	webhookSvc := endpoints.NewService(webhookRepo, requestRepo, urls)
	tokenSvc := auth.NewTokenService(cfg.JWT)
	loginLimiter := ratelimit.NewWindow(rateLimitRepo, cfg.RateLimit.LoginAttempts, cfg.RateLimit.LoginWindow)
	auditLog := audit.NewLogger()

	deps := &api.Dependencies{
		CaptureHandler: handlers.NewCaptureHandler(
			registry,
			capture.NewEngine(cfg.Capture.MaxBodyBytes),
			sink.New(webhookRepo, requestRepo, webhookRepo, dispatcher),
		),
		WebhookHandler: handlers.NewWebhookHandler(webhookSvc, auditLog),
		AuthHandler:    handlers.NewAuthHandler(userRepo, tokenSvc, loginLimiter, auditLog, cfg.JWT.AccessTokenTTL),
		HealthHandler:  handlers.NewHealthHandler(db),
		MetricsHandler: handlers.NewMetricsHandler(),
		AuthMiddleware: middleware.NewAuthMiddleware(tokenSvc),
		WriteLimiter:   ratelimit.NewKeyedLimiter(cfg.RateLimit.APIWritePerMinute, cfg.RateLimit.MaxTrackedKeys),
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Str("driver", db.Driver).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown incomplete")
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Pending notifications abandoned")
	}
}
