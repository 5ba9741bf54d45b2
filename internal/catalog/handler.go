package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-portal/meridian-portal/internal/platform/httpx"
)

// Handler exposes the menu/catalogue lifecycle as the admin JSON API.
type Handler struct {
	logger   *slog.Logger
	svc      *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, svc *Service) *Handler {
	return &Handler{logger: logger, svc: svc, validate: validator.New()}
}

// MountRoutes registers lifecycle routes. Callers are expected to have
// applied the super-user gate already.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/menus", h.listMenus)
	r.Post("/menus", h.createMenu)
	r.Put("/menus/{menuID}", h.updateMenu)
	r.Post("/menus/{menuID}/deactivate", h.deactivateMenu)
	r.Post("/menus/{menuID}/reactivate", h.reactivateMenu)

	r.Get("/menus/{menuID}/catalogues", h.listCatalogues)
	r.Post("/menus/{menuID}/catalogues", h.createCatalogue)
	r.Put("/catalogues/{catalogueID}", h.updateCatalogue)
	r.Post("/catalogues/{catalogueID}/enable", h.enableCatalogue)
	r.Post("/catalogues/{catalogueID}/disable", h.disableCatalogue)
	r.Post("/catalogues/{catalogueID}/deactivate", h.deactivateCatalogue)
	r.Post("/catalogues/{catalogueID}/reactivate", h.reactivateCatalogue)
	r.Post("/catalogues/{catalogueID}/move", h.moveCatalogue)
}

type menuRequest struct {
	Name         string `json:"name" validate:"required,max=120"`
	Icon         string `json:"icon" validate:"max=120"`
	DisplayOrder int    `json:"display_order" validate:"gte=0"`
}

type menuResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Icon         string    `json:"icon,omitempty"`
	DisplayOrder int       `json:"display_order"`
	IsActive     bool      `json:"is_active"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toMenuResponse(m Menu) menuResponse {
	return menuResponse{
		ID:           m.ID,
		Name:         m.Name,
		Icon:         m.Icon,
		DisplayOrder: m.DisplayOrder,
		IsActive:     m.IsActive,
		UpdatedAt:    m.UpdatedAt,
	}
}

func (h *Handler) listMenus(w http.ResponseWriter, r *http.Request) {
	menus, err := h.svc.ListMenus(r.Context())
	if err != nil {
		h.respondError(w, r, "list menus", err)
		return
	}
	out := make([]menuResponse, 0, len(menus))
	for _, m := range menus {
		out = append(out, toMenuResponse(m))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) createMenu(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeMenu(w, r)
	if !ok {
		return
	}
	m, err := h.svc.CreateMenu(r.Context(), MenuInput{Name: req.Name, Icon: req.Icon, DisplayOrder: req.DisplayOrder})
	if err != nil {
		h.respondError(w, r, "create menu", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toMenuResponse(m))
}

func (h *Handler) updateMenu(w http.ResponseWriter, r *http.Request) {
	menuID, ok := pathID(w, r, "menuID")
	if !ok {
		return
	}
	req, ok := h.decodeMenu(w, r)
	if !ok {
		return
	}
	m, err := h.svc.UpdateMenu(r.Context(), menuID, MenuInput{Name: req.Name, Icon: req.Icon, DisplayOrder: req.DisplayOrder})
	if err != nil {
		h.respondError(w, r, "update menu", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toMenuResponse(m))
}

func (h *Handler) deactivateMenu(w http.ResponseWriter, r *http.Request) {
	menuID, ok := pathID(w, r, "menuID")
	if !ok {
		return
	}
	if err := h.svc.DeactivateMenu(r.Context(), menuID); err != nil {
		h.respondError(w, r, "deactivate menu", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reactivateMenu(w http.ResponseWriter, r *http.Request) {
	menuID, ok := pathID(w, r, "menuID")
	if !ok {
		return
	}
	if err := h.svc.ReactivateMenu(r.Context(), menuID); err != nil {
		h.respondError(w, r, "reactivate menu", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type catalogueRequest struct {
	Name         string         `json:"name" validate:"required,max=120"`
	DisplayOrder int            `json:"display_order" validate:"gte=0"`
	IsEnabled    bool           `json:"is_enabled"`
	Metadata     map[string]any `json:"metadata"`
}

type catalogueResponse struct {
	ID           int64          `json:"id"`
	MenuID       int64          `json:"menu_id"`
	Name         string         `json:"name"`
	DisplayOrder int            `json:"display_order"`
	IsEnabled    bool           `json:"is_enabled"`
	IsActive     bool           `json:"is_active"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func toCatalogueResponse(c Catalogue) catalogueResponse {
	return catalogueResponse{
		ID:           c.ID,
		MenuID:       c.MenuID,
		Name:         c.Name,
		DisplayOrder: c.DisplayOrder,
		IsEnabled:    c.IsEnabled,
		IsActive:     c.IsActive,
		Metadata:     c.Metadata,
		UpdatedAt:    c.UpdatedAt,
	}
}

func (h *Handler) listCatalogues(w http.ResponseWriter, r *http.Request) {
	menuID, ok := pathID(w, r, "menuID")
	if !ok {
		return
	}
	cats, err := h.svc.ListCatalogues(r.Context(), menuID)
	if err != nil {
		h.respondError(w, r, "list catalogues", err)
		return
	}
	out := make([]catalogueResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCatalogueResponse(c))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) createCatalogue(w http.ResponseWriter, r *http.Request) {
	menuID, ok := pathID(w, r, "menuID")
	if !ok {
		return
	}
	req, ok := h.decodeCatalogue(w, r)
	if !ok {
		return
	}
	c, err := h.svc.CreateCatalogue(r.Context(), menuID, CatalogueInput{
		Name:         req.Name,
		DisplayOrder: req.DisplayOrder,
		IsEnabled:    req.IsEnabled,
		Metadata:     req.Metadata,
	})
	if err != nil {
		h.respondError(w, r, "create catalogue", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toCatalogueResponse(c))
}

func (h *Handler) updateCatalogue(w http.ResponseWriter, r *http.Request) {
	catalogueID, ok := pathID(w, r, "catalogueID")
	if !ok {
		return
	}
	req, ok := h.decodeCatalogue(w, r)
	if !ok {
		return
	}
	c, err := h.svc.UpdateCatalogue(r.Context(), catalogueID, CatalogueInput{
		Name:         req.Name,
		DisplayOrder: req.DisplayOrder,
		IsEnabled:    req.IsEnabled,
		Metadata:     req.Metadata,
	})
	if err != nil {
		h.respondError(w, r, "update catalogue", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toCatalogueResponse(c))
}

func (h *Handler) enableCatalogue(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, true)
}

func (h *Handler) disableCatalogue(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, false)
}

func (h *Handler) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	catalogueID, ok := pathID(w, r, "catalogueID")
	if !ok {
		return
	}
	if err := h.svc.SetCatalogueEnabled(r.Context(), catalogueID, enabled); err != nil {
		h.respondError(w, r, "set catalogue enabled", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deactivateCatalogue(w http.ResponseWriter, r *http.Request) {
	catalogueID, ok := pathID(w, r, "catalogueID")
	if !ok {
		return
	}
	if err := h.svc.DeactivateCatalogue(r.Context(), catalogueID); err != nil {
		h.respondError(w, r, "deactivate catalogue", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reactivateCatalogue(w http.ResponseWriter, r *http.Request) {
	catalogueID, ok := pathID(w, r, "catalogueID")
	if !ok {
		return
	}
	if err := h.svc.ReactivateCatalogue(r.Context(), catalogueID); err != nil {
		h.respondError(w, r, "reactivate catalogue", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type moveRequest struct {
	MenuID int64 `json:"menu_id" validate:"required,gt=0"`
}

func (h *Handler) moveCatalogue(w http.ResponseWriter, r *http.Request) {
	catalogueID, ok := pathID(w, r, "catalogueID")
	if !ok {
		return
	}
	var req moveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.svc.MoveCatalogue(r.Context(), catalogueID, req.MenuID); err != nil {
		h.respondError(w, r, "move catalogue", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeMenu(w http.ResponseWriter, r *http.Request) (menuRequest, bool) {
	var req menuRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return req, false
	}
	return req, true
}

func (h *Handler) decodeCatalogue(w http.ResponseWriter, r *http.Request) (catalogueRequest, bool) {
	var req catalogueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return req, false
	}
	return req, true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrMenuHasActiveCatalogues):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
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
