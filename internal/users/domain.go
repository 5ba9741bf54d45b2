package users

import "time"

// User represents a portal user account.
type User struct {
	ID        int64
	Email     string
	Name      string
	IsAdmin   bool
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoleAssignment is a user's role membership together with where it came
// from: assigned directly, or inherited from a distribution list sync.
type RoleAssignment struct {
	RoleID    int64
	RoleName  string
	IsActive  bool
	IsDL      bool
	DLName    string
	CreatedAt time.Time
}
