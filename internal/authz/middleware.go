package authz

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"log/slog"

	"github.com/meridian-portal/meridian-portal/internal/shared"
)

// IdentitySource loads the identity claims for an authenticated user ID.
// Implemented by the users directory; the engine itself never verifies
// credentials.
type IdentitySource interface {
	IdentityForUser(ctx context.Context, userID int64) (Identity, error)
}

// Middleware attaches the caller's Identity to the request context and
// gates admin-only routes.
type Middleware struct {
	Identities IdentitySource
	Logger     *slog.Logger
}

// WithIdentity resolves the session user into an Identity and stores it
// in the request context. Requests without a session pass through
// unauthenticated; downstream Require* middleware rejects them.
func (m Middleware) WithIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := m.sessionUserID(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		id, err := m.Identities.IdentityForUser(r.Context(), userID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Error("resolve identity", slog.Int64("user_id", userID), slog.Any("error", err))
			}
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), id)))
	})
}

// RequireUser rejects unauthenticated requests.
func (m Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSuperUser gates the admin mutation surface.
func (m Middleware) RequireSuperUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		if !id.IsSuperUser() {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) sessionUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("parse session user id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}
