package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/meridian-portal/meridian-portal/internal/authz"
	"github.com/meridian-portal/meridian-portal/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	UserByID(ctx context.Context, id int64) (User, error)
	AssignmentsForUser(ctx context.Context, userID int64) ([]RoleAssignment, error)
}

// Service handles the user directory. It is also the identity source for
// the authorization layer: it collapses the account's admin flag into an
// Identity once, at the boundary.
type Service struct {
	repo RepositoryPort
}

var _ authz.IdentitySource = (*Service)(nil)

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// UserByID returns a single user.
func (s *Service) UserByID(ctx context.Context, id int64) (User, error) {
	return s.repo.UserByID(ctx, id)
}

// Assignments returns the user's role memberships, including dormant
// ones, so administrators can see exactly what a reactivation would
// restore.
func (s *Service) Assignments(ctx context.Context, userID int64) ([]RoleAssignment, error) {
	if _, err := s.repo.UserByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.AssignmentsForUser(ctx, userID)
}

// IdentityForUser resolves an authenticated user ID into an Identity.
// Deactivated accounts do not get an identity at all.
func (s *Service) IdentityForUser(ctx context.Context, userID int64) (authz.Identity, error) {
	u, err := s.repo.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return authz.Identity{}, fmt.Errorf("%w: user %d", authz.ErrNotFound, userID)
		}
		return authz.Identity{}, err
	}
	if !u.IsActive {
		return authz.Identity{}, fmt.Errorf("%w: user %d is inactive", authz.ErrNotFound, userID)
	}
	return authz.NewIdentity(u.ID, u.IsAdmin), nil
}
