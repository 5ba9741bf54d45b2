package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-portal/meridian-portal/internal/platform/httpx"
	"github.com/meridian-portal/meridian-portal/internal/shared"
)

// Handler serves the read-only user directory for administrators.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers user directory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listUsers)
	r.Get("/{userID}", h.getUser)
	r.Get("/{userID}/roles", h.listAssignments)
}

type userResponse struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	IsAdmin  bool   `json:"is_admin"`
	IsActive bool   `json:"is_active"`
}

func toUserResponse(u User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Name: u.Name, IsAdmin: u.IsAdmin, IsActive: u.IsActive}
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.respondError(w, r, "list users", err)
		return
	}
	out := make([]userResponse, 0, len(list))
	for _, u := range list {
		out = append(out, toUserResponse(u))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}
	u, err := h.service.UserByID(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, "get user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toUserResponse(u))
}

type assignmentResponse struct {
	RoleID     int64     `json:"role_id"`
	RoleName   string    `json:"role_name"`
	RoleActive bool      `json:"role_active"`
	IsDL       bool      `json:"is_dl"`
	DLName     string    `json:"dl_name,omitempty"`
	AssignedAt time.Time `json:"assigned_at"`
}

func (h *Handler) listAssignments(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}
	assignments, err := h.service.Assignments(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, "list assignments", err)
		return
	}
	out := make([]assignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, assignmentResponse{
			RoleID:     a.RoleID,
			RoleName:   a.RoleName,
			RoleActive: a.IsActive,
			IsDL:       a.IsDL,
			DLName:     a.DLName,
			AssignedAt: a.CreatedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		return
	}
	h.logger.Error(op, slog.String("path", r.URL.Path), slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

func (h *Handler) pathUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Path", "invalid userID")
		return 0, false
	}
	return id, true
}
