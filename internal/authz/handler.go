package authz

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-portal/meridian-portal/internal/platform/httpx"
)

// Handler exposes the MutationGuard as the admin JSON API.
type Handler struct {
	logger   *slog.Logger
	guard    *Guard
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, guard *Guard) *Handler {
	return &Handler{logger: logger, guard: guard, validate: validator.New()}
}

// MountRoutes registers the admin mutation routes. Callers are expected
// to have applied the super-user gate already.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/roles", h.createRole)
	r.Post("/roles/{roleID}/deactivate", h.deactivateRole)
	r.Post("/roles/{roleID}/reactivate", h.reactivateRole)

	r.Put("/menus/{menuID}/permissions/{roleID}", h.grantMenuPermission)
	r.Delete("/menus/{menuID}/permissions/{roleID}", h.revokeMenuPermission)
	r.Post("/menus/{menuID}/reorder", h.reorderMenu)

	r.Put("/catalogues/{catalogueID}/permissions/{roleID}", h.grantCataloguePermission)
	r.Delete("/catalogues/{catalogueID}/permissions/{roleID}", h.revokeCataloguePermission)
	r.Post("/catalogues/{catalogueID}/reorder", h.reorderCatalogue)

	r.Put("/users/{userID}/roles/{roleID}", h.assignRole)
	r.Delete("/users/{userID}/roles/{roleID}", h.removeRole)
}

type createRoleRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=500"`
}

type roleResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.guard.CreateRole(r.Context(), req.Name, req.Description)
	if err != nil {
		h.respondError(w, r, "create role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, roleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		IsActive:    role.IsActive,
	})
}

func (h *Handler) deactivateRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := pathID(w, r, "roleID")
	if !ok {
		return
	}
	if err := h.guard.DeactivateRole(r.Context(), roleID); err != nil {
		h.respondError(w, r, "deactivate role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reactivateRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := pathID(w, r, "roleID")
	if !ok {
		return
	}
	if err := h.guard.ReactivateRole(r.Context(), roleID); err != nil {
		h.respondError(w, r, "reactivate role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type grantRequest struct {
	Level string `json:"level" validate:"required,oneof=read write admin"`
}

func (h *Handler) grantMenuPermission(w http.ResponseWriter, r *http.Request) {
	menuID, ok := pathID(w, r, "menuID")
	if !ok {
		return
	}
	roleID, ok := pathID(w, r, "roleID")
	if !ok {
		return
	}
	level, ok := h.decodeGrant(w, r)
	if !ok {
		return
	}
	if err := h.guard.GrantMenuPermission(r.Context(), menuID, roleID, level); err != nil {
		h.respondError(w, r, "grant menu permission", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revokeMenuPermission(w http.ResponseWriter, r *http.Request) {
	menuID, ok := pathID(w, r, "menuID")
	if !ok {
		return
	}
	roleID, ok := pathID(w, r, "roleID")
	if !ok {
		return
	}
	if err := h.guard.RevokeMenuPermission(r.Context(), menuID, roleID); err != nil {
		h.respondError(w, r, "revoke menu permission", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) grantCataloguePermission(w http.ResponseWriter, r *http.Request) {
	catalogueID, ok := pathID(w, r, "catalogueID")
	if !ok {
		return
	}
	roleID, ok := pathID(w, r, "roleID")
	if !ok {
		return
	}
	level, ok := h.decodeGrant(w, r)
	if !ok {
		return
	}
	if err := h.guard.GrantCataloguePermission(r.Context(), catalogueID, roleID, level); err != nil {
		h.respondError(w, r, "grant catalogue permission", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revokeCataloguePermission(w http.ResponseWriter, r *http.Request) {
	catalogueID, ok := pathID(w, r, "catalogueID")
	if !ok {
		return
	}
	roleID, ok := pathID(w, r, "roleID")
	if !ok {
		return
	}
	if err := h.guard.RevokeCataloguePermission(r.Context(), catalogueID, roleID); err != nil {
		h.respondError(w, r, "revoke catalogue permission", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignRoleRequest struct {
	IsDL   bool   `json:"is_dl"`
	DLName string `json:"dl_name" validate:"required_if=IsDL true,max=200"`
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	roleID, ok := pathID(w, r, "roleID")
	if !ok {
		return
	}
	var req assignRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.guard.AssignRole(r.Context(), ActorFromContext(r.Context()), userID, roleID, req.IsDL, req.DLName); err != nil {
		h.respondError(w, r, "assign role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	roleID, ok := pathID(w, r, "roleID")
	if !ok {
		return
	}
	if err := h.guard.RemoveRole(r.Context(), ActorFromContext(r.Context()), userID, roleID); err != nil {
		h.respondError(w, r, "remove role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reorderRequest struct {
	DisplayOrder int `json:"display_order" validate:"gte=0"`
}

func (h *Handler) reorderMenu(w http.ResponseWriter, r *http.Request) {
	menuID, ok := pathID(w, r, "menuID")
	if !ok {
		return
	}
	var req reorderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.guard.ReorderMenu(r.Context(), menuID, req.DisplayOrder); err != nil {
		h.respondError(w, r, "reorder menu", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reorderCatalogue(w http.ResponseWriter, r *http.Request) {
	catalogueID, ok := pathID(w, r, "catalogueID")
	if !ok {
		return
	}
	var req reorderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.guard.ReorderCatalogue(r.Context(), catalogueID, req.DisplayOrder); err != nil {
		h.respondError(w, r, "reorder catalogue", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeGrant(w http.ResponseWriter, r *http.Request) (Level, bool) {
	var req grantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return LevelNone, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return LevelNone, false
	}
	level, err := ParseLevel(req.Level)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return LevelNone, false
	}
	return level, true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateName):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrSelfModification):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		h.logger.Error(op, slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Path", "invalid "+param)
		return 0, false
	}
	return id, true
}
