package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-portal/meridian-portal/internal/shared"
)

type stubAudits struct {
	entries map[string][]shared.AuditLog
	err     error
}

func (s *stubAudits) RecentActions(_ context.Context, prefix string, _ time.Time) ([]shared.AuditLog, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.entries[prefix], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPermissionDigestEnqueuesSummary(t *testing.T) {
	audits := &stubAudits{entries: map[string][]shared.AuditLog{
		"permission.": {
			{ActorID: 42, Action: "permission.grant_menu", Entity: "menu", EntityID: "1", At: time.Now()},
		},
		"role.": {
			{ActorID: 42, Action: "role.deactivate", Entity: "role", EntityID: "100", At: time.Now()},
		},
	}}

	var sent []SendEmailPayload
	enqueue := func(_ context.Context, p SendEmailPayload) error {
		sent = append(sent, p)
		return nil
	}

	handler := NewPermissionDigestHandler(audits, enqueue, DigestConfig{Recipient: "sec-ops@example.com"}, discardLogger(), nil)
	require.NoError(t, handler(context.Background(), NewPermissionDigestTask()))

	require.Len(t, sent, 1)
	require.Equal(t, "sec-ops@example.com", sent[0].To)
	require.Contains(t, sent[0].Body, "permission.grant_menu")
	require.Contains(t, sent[0].Body, "role.deactivate")
}

func TestPermissionDigestSkipsWhenQuiet(t *testing.T) {
	enqueue := func(context.Context, SendEmailPayload) error {
		t.Fatal("no mail expected")
		return nil
	}
	handler := NewPermissionDigestHandler(&stubAudits{}, enqueue, DigestConfig{Recipient: "sec-ops@example.com"}, discardLogger(), nil)
	require.NoError(t, handler(context.Background(), NewPermissionDigestTask()))
}

func TestPermissionDigestPropagatesReadError(t *testing.T) {
	audits := &stubAudits{err: errors.New("db down")}
	enqueue := func(context.Context, SendEmailPayload) error { return nil }
	handler := NewPermissionDigestHandler(audits, enqueue, DigestConfig{Recipient: "sec-ops@example.com"}, discardLogger(), nil)
	require.Error(t, handler(context.Background(), NewPermissionDigestTask()))
}

type stubPurger struct {
	removed int64
	err     error
}

func (s *stubPurger) PurgeExpiredSessions(context.Context, time.Time) (int64, error) {
	return s.removed, s.err
}

func TestSessionPurge(t *testing.T) {
	handler := NewSessionPurgeHandler(&stubPurger{removed: 3}, discardLogger(), nil)
	require.NoError(t, handler(context.Background(), NewSessionPurgeTask()))

	handler = NewSessionPurgeHandler(&stubPurger{err: errors.New("db down")}, discardLogger(), nil)
	require.Error(t, handler(context.Background(), NewSessionPurgeTask()))
}
