package authz

import "context"

// RoleStore reads role definitions and user-role links.
type RoleStore interface {
	// RolesForUser returns every role assigned to the user, active or not.
	// The resolver filters on activity itself.
	RolesForUser(ctx context.Context, userID int64) ([]Role, error)
}

// ResourceStore reads the menu and catalogue records.
type ResourceStore interface {
	// Menus returns all menus regardless of activity.
	Menus(ctx context.Context) ([]Menu, error)
	// Catalogues returns all catalogues regardless of flags.
	Catalogues(ctx context.Context) ([]Catalogue, error)
}

// PermissionStore reads grant rows for a set of roles.
type PermissionStore interface {
	MenuGrantsForRoles(ctx context.Context, roleIDs []int64) ([]MenuGrant, error)
	CatalogueGrantsForRoles(ctx context.Context, roleIDs []int64) ([]CatalogueGrant, error)
}

// MutationStore executes guard mutations inside a single transaction.
type MutationStore interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
}

// TxStore is the transactional surface used by the MutationGuard. Lookups
// check existence only; activity flags are deliberately ignored so grants
// to dormant roles remain legal.
type TxStore interface {
	RoleByID(ctx context.Context, id int64) (Role, error)
	RoleByName(ctx context.Context, name string) (Role, error)
	InsertRole(ctx context.Context, name, description string) (Role, error)
	SetRoleActive(ctx context.Context, id int64, active bool) error

	MenuByID(ctx context.Context, id int64) (Menu, error)
	CatalogueByID(ctx context.Context, id int64) (Catalogue, error)
	UserExists(ctx context.Context, userID int64) (bool, error)

	UpsertMenuGrant(ctx context.Context, grant MenuGrant) error
	DeleteMenuGrant(ctx context.Context, menuID, roleID int64) error
	UpsertCatalogueGrant(ctx context.Context, grant CatalogueGrant) error
	DeleteCatalogueGrant(ctx context.Context, catalogueID, roleID int64) error

	UpsertAssignment(ctx context.Context, assignment Assignment) error
	DeleteAssignment(ctx context.Context, userID, roleID int64) error

	SetMenuOrder(ctx context.Context, menuID int64, displayOrder int) error
	SetCatalogueOrder(ctx context.Context, catalogueID int64, displayOrder int) error
}
