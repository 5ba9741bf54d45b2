package authz

import "errors"

var (
	// ErrNotFound indicates the referenced role, menu, catalogue or user
	// does not exist.
	ErrNotFound = errors.New("authz: not found")
	// ErrDuplicateName indicates a role with the same name already exists,
	// active or not.
	ErrDuplicateName = errors.New("authz: duplicate role name")
	// ErrSelfModification indicates an administrator tried to change their
	// own role assignments.
	ErrSelfModification = errors.New("authz: self modification forbidden")
	// ErrResolutionUnavailable indicates a store read failed during
	// resolution. Callers must fail closed and render no menus.
	ErrResolutionUnavailable = errors.New("authz: resolution unavailable")
)
