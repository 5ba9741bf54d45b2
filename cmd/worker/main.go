package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/meridian-portal/meridian-portal/internal/app"
	"github.com/meridian-portal/meridian-portal/internal/auth"
	jobmetrics "github.com/meridian-portal/meridian-portal/internal/jobs"
	"github.com/meridian-portal/meridian-portal/internal/platform/db"
	"github.com/meridian-portal/meridian-portal/internal/shared"
	"github.com/meridian-portal/meridian-portal/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}

	client, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)

	authService := auth.NewService(auth.NewRepository(pool))
	auditLogger := shared.NewAuditLogger(pool)
	mailer := &jobs.SMTPMailer{Addr: cfg.SMTPAddr, From: cfg.SMTPFrom}

	enqueueMail := func(ctx context.Context, payload jobs.SendEmailPayload) error {
		_, err := client.EnqueueSendEmail(ctx, payload)
		return err
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: jobs.NewSendEmailHandler(mailer)},
			{Type: jobs.TaskTypeSessionPurge, Handler: jobs.NewSessionPurgeHandler(authService, logger, metrics)},
			{Type: jobs.TaskTypePermissionDigest, Handler: jobs.NewPermissionDigestHandler(
				auditLogger,
				enqueueMail,
				jobs.DigestConfig{Recipient: cfg.DigestRecipient, Window: cfg.DigestWindow},
				logger,
				metrics,
			)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.SessionPurgeCron, Task: jobs.NewSessionPurgeTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.DigestCron, Task: jobs.NewPermissionDigestTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
