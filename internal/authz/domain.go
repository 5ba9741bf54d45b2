package authz

import (
	"fmt"
	"time"
)

// Level is the strength of a permission grant on a menu or catalogue.
type Level int

// Levels in ascending order. LevelNone means no grant at all and sorts
// below every real grant.
const (
	LevelNone Level = iota
	LevelRead
	LevelWrite
	LevelAdmin
)

// ParseLevel converts the stored permission type into a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "read":
		return LevelRead, nil
	case "write":
		return LevelWrite, nil
	case "admin":
		return LevelAdmin, nil
	}
	return LevelNone, fmt.Errorf("authz: unknown permission level %q", s)
}

// String returns the wire representation of the level.
func (l Level) String() string {
	switch l {
	case LevelRead:
		return "read"
	case LevelWrite:
		return "write"
	case LevelAdmin:
		return "admin"
	}
	return "none"
}

// Max returns the stronger of two levels.
func (l Level) Max(other Level) Level {
	if other > l {
		return other
	}
	return l
}

// Granted reports whether the level represents an actual grant.
func (l Level) Granted() bool {
	return l > LevelNone
}

// Role is a named bundle of grants assignable to users. Roles are
// deactivated rather than deleted so that historic grants stay auditable.
type Role struct {
	ID          int64
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Menu is a top-level navigation group of catalogues.
type Menu struct {
	ID           int64
	Name         string
	Icon         string
	DisplayOrder int
	IsActive     bool
}

// Catalogue is a single feature page owned by a menu. IsEnabled is the
// rollout flag, IsActive the soft-delete flag; both must hold before any
// permission is even considered.
type Catalogue struct {
	ID           int64
	MenuID       int64
	Name         string
	DisplayOrder int
	IsEnabled    bool
	IsActive     bool
	Metadata     map[string]any
}

// MenuGrant gives a role the stated level on every catalogue of a menu.
type MenuGrant struct {
	MenuID int64
	RoleID int64
	Level  Level
}

// CatalogueGrant gives a role the stated level on one catalogue,
// independent of any menu-level grant.
type CatalogueGrant struct {
	CatalogueID int64
	RoleID      int64
	Level       Level
}

// Assignment links a user to a role. IsDL and DLName record whether the
// link came from a distribution-list bulk grant; provenance only, it does
// not change resolution.
type Assignment struct {
	UserID    int64
	RoleID    int64
	IsDL      bool
	DLName    string
	CreatedAt time.Time
}

// Identity is the resolved caller identity. It is a closed sum: either a
// super user, or a standard user identified by ID. The two-flag shape of
// the authentication layer ({user_id, is_admin}) is collapsed here once,
// so the resolver only ever sees one signal.
type Identity struct {
	userID int64
	super  bool
}

// SuperUser returns the identity that bypasses all grant evaluation.
func SuperUser(userID int64) Identity {
	return Identity{userID: userID, super: true}
}

// StandardUser returns an identity whose access is computed from roles.
func StandardUser(userID int64) Identity {
	return Identity{userID: userID}
}

// NewIdentity builds an Identity from the authentication layer's claims.
func NewIdentity(userID int64, isAdmin bool) Identity {
	if isAdmin {
		return SuperUser(userID)
	}
	return StandardUser(userID)
}

// UserID returns the subject's user ID.
func (i Identity) UserID() int64 { return i.userID }

// IsSuperUser reports whether the identity bypasses grant evaluation.
func (i Identity) IsSuperUser() bool { return i.super }

// VisibleCatalogue is a catalogue the user may open, annotated with the
// effective permission level across all contributing grants.
type VisibleCatalogue struct {
	ID           int64
	Name         string
	DisplayOrder int
	Level        Level
	Metadata     map[string]any
}

// VisibleMenu is a menu the user may see together with its visible
// catalogues. A menu with a menu-level grant is kept even when all of its
// catalogues are hidden.
type VisibleMenu struct {
	ID           int64
	Name         string
	Icon         string
	DisplayOrder int
	Catalogues   []VisibleCatalogue
}

// VisibleTree is the ordered navigation tree for one user.
type VisibleTree struct {
	Menus []VisibleMenu
}

// Empty reports whether the tree contains no menus.
func (t VisibleTree) Empty() bool {
	return len(t.Menus) == 0
}
