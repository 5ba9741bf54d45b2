package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-portal/meridian-portal/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials. All failure modes
// collapse into ErrInvalidCredentials so callers cannot probe which
// accounts exist.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !account.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return account, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// PurgeExpiredSessions removes session rows past their expiry and
// returns how many were deleted. Run periodically by the worker.
func (s *Service) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	return s.repo.DeleteExpiredSessions(ctx, now)
}
