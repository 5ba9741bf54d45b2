package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-portal/meridian-portal/internal/jobs"
	"github.com/meridian-portal/meridian-portal/internal/shared"
)

// AuditSource reads recent audit entries for the digest.
type AuditSource interface {
	RecentActions(ctx context.Context, prefix string, since time.Time) ([]shared.AuditLog, error)
}

// DigestConfig controls the permission digest job.
type DigestConfig struct {
	Recipient string
	Window    time.Duration
}

// NewPermissionDigestHandler returns the handler for TaskTypePermissionDigest.
// It summarises permission and role changes from the audit log and mails
// them to the configured recipient. An empty window yields no mail.
func NewPermissionDigestHandler(audits AuditSource, enqueue func(ctx context.Context, payload SendEmailPayload) error, cfg DigestConfig, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		tracker := metrics.Track("permission_digest")
		if cfg.Recipient == "" {
			return tracker.End(nil)
		}
		window := cfg.Window
		if window <= 0 {
			window = 24 * time.Hour
		}
		since := time.Now().Add(-window)

		var entries []shared.AuditLog
		for _, prefix := range []string{"permission.", "role."} {
			batch, err := audits.RecentActions(ctx, prefix, since)
			if err != nil {
				logger.Error("permission digest read failed", slog.Any("error", err))
				return tracker.End(err)
			}
			entries = append(entries, batch...)
		}
		if len(entries) == 0 {
			return tracker.End(nil)
		}

		payload := SendEmailPayload{
			To:      cfg.Recipient,
			Subject: fmt.Sprintf("Permission changes: %d in the last %s", len(entries), window),
			Body:    digestBody(entries),
		}
		if err := enqueue(ctx, payload); err != nil {
			logger.Error("permission digest enqueue failed", slog.Any("error", err))
			return tracker.End(err)
		}
		return tracker.End(nil)
	}
}

func digestBody(entries []shared.AuditLog) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s actor=%d %s %s/%s\n",
			e.At.Format(time.RFC3339), e.ActorID, e.Action, e.Entity, e.EntityID)
	}
	return b.String()
}
