package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-portal/meridian-portal/internal/auth"
	"github.com/meridian-portal/meridian-portal/internal/shared"
	_ "github.com/meridian-portal/meridian-portal/testing"
)

type stubRepo struct {
	account  *auth.Account
	sessions map[string]int64
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	if s.account == nil || s.account.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.account, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = map[string]int64{}
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func (s *stubRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "meridian_session", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := auth.NewHandler(logger, auth.NewService(repo), sessionManager, csrfManager)
	return handler, sessionManager
}

func doLogin(t *testing.T, handler *auth.Handler, sessionManager *shared.SessionManager, body string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess, err := sessionManager.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	router := chi.NewRouter()
	router.Route("/auth", handler.MountRoutes)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.NoError(t, sessionManager.Commit(req.Context(), res, req, sess))
	return res, sess
}

func TestLoginSuccess(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.DefaultCost)
	require.NoError(t, err)
	repo := &stubRepo{account: &auth.Account{ID: 7, Email: "user@example.com", PasswordHash: string(hashed), IsActive: true}}
	handler, sessionManager := newAuthHandler(t, repo)

	res, sess := doLogin(t, handler, sessionManager, `{"email":"user@example.com","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "7", sess.User())
	require.Contains(t, res.Body.String(), `"user_id":7`)
	require.Contains(t, res.Body.String(), "csrf_token")
	require.Equal(t, int64(7), repo.sessions[sess.ID])
}

func TestLoginInvalidCredentials(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.DefaultCost)
	require.NoError(t, err)
	repo := &stubRepo{account: &auth.Account{ID: 7, Email: "user@example.com", PasswordHash: string(hashed), IsActive: true}}
	handler, sessionManager := newAuthHandler(t, repo)

	res, sess := doLogin(t, handler, sessionManager, `{"email":"user@example.com","password":"wrong-password"}`)
	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Empty(t, sess.User())
}

func TestLoginInactiveAccount(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.DefaultCost)
	require.NoError(t, err)
	repo := &stubRepo{account: &auth.Account{ID: 7, Email: "user@example.com", PasswordHash: string(hashed), IsActive: false}}
	handler, sessionManager := newAuthHandler(t, repo)

	res, _ := doLogin(t, handler, sessionManager, `{"email":"user@example.com","password":"correct-horse"}`)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginValidation(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{})

	res, _ := doLogin(t, handler, sessionManager, `{"email":"not-an-email","password":"short"}`)
	require.Equal(t, http.StatusBadRequest, res.Code)
}
