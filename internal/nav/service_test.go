package nav

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/meridian-portal/meridian-portal/internal/authz"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubResolver struct {
	tree authz.VisibleTree
	err  error
}

func (s stubResolver) Resolve(ctx context.Context, id authz.Identity) (authz.VisibleTree, error) {
	return s.tree, s.err
}

type captureMetrics struct {
	outcome string
}

func (m *captureMetrics) ObserveResolution(outcome string, duration time.Duration) {
	m.outcome = outcome
}

func TestNavigationShapesTree(t *testing.T) {
	resolver := stubResolver{tree: authz.VisibleTree{Menus: []authz.VisibleMenu{
		{
			ID: 1, Name: "Storage", Icon: "disk",
			Catalogues: []authz.VisibleCatalogue{
				{ID: 11, Name: "Capacity", Level: authz.LevelWrite},
			},
		},
		{ID: 2, Name: "Provisioned Early"},
	}}}
	metrics := &captureMetrics{}
	svc := NewService(resolver, metrics)

	payload, err := svc.Navigation(context.Background(), authz.StandardUser(1))
	require.NoError(t, err)
	require.Equal(t, "ok", metrics.outcome)
	require.Len(t, payload.Menus, 2)
	require.Equal(t, "Storage", payload.Menus[0].Name)
	require.Equal(t, "write", payload.Menus[0].Catalogues[0].Level)
	// A menu kept only through its menu-level grant serializes with an
	// empty (not null) catalogue list.
	require.NotNil(t, payload.Menus[1].Catalogues)
	require.Empty(t, payload.Menus[1].Catalogues)
}

func TestNavigationEmptyOutcome(t *testing.T) {
	metrics := &captureMetrics{}
	svc := NewService(stubResolver{}, metrics)

	payload, err := svc.Navigation(context.Background(), authz.StandardUser(1))
	require.NoError(t, err)
	require.Empty(t, payload.Menus)
	require.Equal(t, "empty", metrics.outcome)
}

func TestNavigationHandlerFailsClosed(t *testing.T) {
	wrapped := errors.Join(authz.ErrResolutionUnavailable, errors.New("dial tcp: refused"))
	svc := NewService(stubResolver{err: wrapped}, nil)
	handler := NewHandler(discardLogger(), svc)

	router := chi.NewRouter()
	router.Route("/nav", handler.MountRoutes)

	req := httptest.NewRequest(http.MethodGet, "/nav", nil)
	req = req.WithContext(authz.ContextWithIdentity(req.Context(), authz.StandardUser(5)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNavigationHandlerRequiresIdentity(t *testing.T) {
	svc := NewService(stubResolver{}, nil)
	handler := NewHandler(discardLogger(), svc)

	router := chi.NewRouter()
	router.Route("/nav", handler.MountRoutes)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nav", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
