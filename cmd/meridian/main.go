package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-portal/meridian-portal/internal/app"
	"github.com/meridian-portal/meridian-portal/internal/auth"
	"github.com/meridian-portal/meridian-portal/internal/authz"
	"github.com/meridian-portal/meridian-portal/internal/catalog"
	"github.com/meridian-portal/meridian-portal/internal/nav"
	"github.com/meridian-portal/meridian-portal/internal/observability"
	"github.com/meridian-portal/meridian-portal/internal/platform/cache"
	"github.com/meridian-portal/meridian-portal/internal/platform/db"
	"github.com/meridian-portal/meridian-portal/internal/shared"
	"github.com/meridian-portal/meridian-portal/internal/users"
	"github.com/meridian-portal/meridian-portal/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(pool)
	metrics := observability.NewMetrics()

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService)

	authzRepo := authz.NewRepository(pool)
	resolver := authz.NewResolver(authzRepo, authzRepo, authzRepo)
	guard := authz.NewGuard(authzRepo, auditLogger, logger)
	authzHandler := authz.NewHandler(logger, guard)
	identity := authz.Middleware{Identities: usersService, Logger: logger}

	navService := nav.NewService(resolver, metrics)
	navHandler := nav.NewHandler(logger, navService)

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(logger, catalogRepo, auditLogger)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Identity:       identity,
		AuthHandler:    authHandler,
		NavHandler:     navHandler,
		AuthzHandler:   authzHandler,
		CatalogHandler: catalogHandler,
		UsersHandler:   usersHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
