package nav

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-portal/meridian-portal/internal/authz"
	"github.com/meridian-portal/meridian-portal/internal/platform/httpx"
)

// Handler serves the navigation payload.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers navigation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.navigation)
}

func (h *Handler) navigation(w http.ResponseWriter, r *http.Request) {
	id, ok := authz.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	payload, err := h.service.Navigation(r.Context(), id)
	if err != nil {
		if errors.Is(err, authz.ErrResolutionUnavailable) {
			// Fail closed: the client renders no menus rather than all.
			h.logger.Error("navigation unavailable", slog.Int64("user_id", id.UserID()), slog.Any("error", err))
			httpx.Problem(w, http.StatusServiceUnavailable, "Navigation Unavailable", "try again shortly")
			return
		}
		h.logger.Error("navigation", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, payload)
}
