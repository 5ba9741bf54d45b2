package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-portal/meridian-portal/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

var _ RepositoryPort = (*Repository)(nil)

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUsers returns all users.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, email, name, is_admin, is_active, created_at, updated_at
		FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.IsAdmin, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UserByID returns a single user by ID.
func (r *Repository) UserByID(ctx context.Context, id int64) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, is_admin, is_active, created_at, updated_at
		FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.IsAdmin, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
	}
	return u, err
}

// AssignmentsForUser returns the user's role assignments joined with the
// role directory, dormant roles included.
func (r *Repository) AssignmentsForUser(ctx context.Context, userID int64) ([]RoleAssignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.role_id, ro.name, ro.is_active, a.is_dl, COALESCE(a.dl_name, ''), a.created_at
		FROM user_role_assignments a
		JOIN roles ro ON ro.id = a.role_id
		WHERE a.user_id = $1
		ORDER BY ro.name, a.role_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RoleAssignment
	for rows.Next() {
		var a RoleAssignment
		if err := rows.Scan(&a.RoleID, &a.RoleName, &a.IsActive, &a.IsDL, &a.DLName, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
