package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-portal/meridian-portal/internal/auth"
	"github.com/meridian-portal/meridian-portal/internal/authz"
	"github.com/meridian-portal/meridian-portal/internal/catalog"
	"github.com/meridian-portal/meridian-portal/internal/nav"
	"github.com/meridian-portal/meridian-portal/internal/observability"
	"github.com/meridian-portal/meridian-portal/internal/shared"
	"github.com/meridian-portal/meridian-portal/internal/users"
	"github.com/meridian-portal/meridian-portal/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Identity       authz.Middleware

	AuthHandler    *auth.Handler
	NavHandler     *nav.Handler
	AuthzHandler   *authz.Handler
	CatalogHandler *catalog.Handler
	UsersHandler   *users.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Group(func(r chi.Router) {
		r.Use(params.Identity.WithIdentity)

		r.Route("/nav", func(r chi.Router) {
			r.Use(params.Identity.RequireUser)
			params.NavHandler.MountRoutes(r)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(params.Identity.RequireSuperUser)
			params.AuthzHandler.MountRoutes(r)
			params.CatalogHandler.MountRoutes(r)
			r.Route("/users", params.UsersHandler.MountRoutes)
			if params.JobHandler != nil {
				r.Route("/jobs", params.JobHandler.MountRoutes)
			}
		})
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
