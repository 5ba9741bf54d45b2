package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-portal/meridian-portal/internal/jobs"
)

// SessionPurger removes expired session rows.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// NewSessionPurgeHandler returns the handler for TaskTypeSessionPurge.
// Redis expires its copy of a session on its own; this job keeps the
// postgres audit table from growing without bound.
func NewSessionPurgeHandler(purger SessionPurger, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		tracker := metrics.Track("session_purge")
		removed, err := purger.PurgeExpiredSessions(ctx, time.Now())
		if err != nil {
			logger.Error("session purge failed", slog.Any("error", err))
			return tracker.End(err)
		}
		if removed > 0 {
			logger.Info("session purge completed", slog.Int64("removed", removed))
		}
		return tracker.End(nil)
	}
}
