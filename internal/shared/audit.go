package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	at := log.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		log.ActorID, log.Action, log.Entity, log.EntityID, metaJSON, at)
	return err
}

// RecentActions returns audit entries for the given actions since the
// cutoff, newest first. Used by the permission digest job.
func (l *AuditLogger) RecentActions(ctx context.Context, prefix string, since time.Time) ([]AuditLog, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT actor_id, action, entity, entity_id, meta, occurred_at
		FROM audit_logs
		WHERE action LIKE $1 || '%' AND occurred_at >= $2
		ORDER BY occurred_at DESC`, prefix, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []AuditLog
	for rows.Next() {
		var (
			entry AuditLog
			meta  []byte
		)
		if err := rows.Scan(&entry.ActorID, &entry.Action, &entry.Entity, &entry.EntityID, &meta, &entry.At); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &entry.Meta); err != nil {
				return nil, err
			}
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
