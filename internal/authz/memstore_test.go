package authz

import (
	"context"
	"time"
)

type grantKey struct {
	resourceID int64
	roleID     int64
}

// memStore is an in-memory implementation of every store port, used by
// resolver and guard tests.
type memStore struct {
	nextRoleID  int64
	roles       map[int64]Role
	menus       map[int64]Menu
	catalogues  map[int64]Catalogue
	menuGrants  map[grantKey]Level
	catGrants   map[grantKey]Level
	assignments map[grantKey]Assignment // key: (userID, roleID)
	users       map[int64]bool

	readErr error
}

func newMemStore() *memStore {
	return &memStore{
		roles:       make(map[int64]Role),
		menus:       make(map[int64]Menu),
		catalogues:  make(map[int64]Catalogue),
		menuGrants:  make(map[grantKey]Level),
		catGrants:   make(map[grantKey]Level),
		assignments: make(map[grantKey]Assignment),
		users:       make(map[int64]bool),
	}
}

func (s *memStore) addRole(id int64, name string, active bool) {
	s.roles[id] = Role{ID: id, Name: name, IsActive: active}
	if id >= s.nextRoleID {
		s.nextRoleID = id
	}
}

func (s *memStore) addMenu(id int64, name string, order int, active bool) {
	s.menus[id] = Menu{ID: id, Name: name, DisplayOrder: order, IsActive: active}
}

func (s *memStore) addCatalogue(id, menuID int64, name string, order int, enabled, active bool) {
	s.catalogues[id] = Catalogue{ID: id, MenuID: menuID, Name: name, DisplayOrder: order, IsEnabled: enabled, IsActive: active}
}

func (s *memStore) addUser(id int64) {
	s.users[id] = true
}

func (s *memStore) assign(userID, roleID int64) {
	s.users[userID] = true
	s.assignments[grantKey{userID, roleID}] = Assignment{UserID: userID, RoleID: roleID}
}

func (s *memStore) grantMenu(menuID, roleID int64, level Level) {
	s.menuGrants[grantKey{menuID, roleID}] = level
}

func (s *memStore) grantCatalogue(catalogueID, roleID int64, level Level) {
	s.catGrants[grantKey{catalogueID, roleID}] = level
}

// RoleStore

func (s *memStore) RolesForUser(ctx context.Context, userID int64) ([]Role, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	var roles []Role
	for key := range s.assignments {
		if key.resourceID == userID {
			roles = append(roles, s.roles[key.roleID])
		}
	}
	return roles, nil
}

// ResourceStore

func (s *memStore) Menus(ctx context.Context) ([]Menu, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	menus := make([]Menu, 0, len(s.menus))
	for _, m := range s.menus {
		menus = append(menus, m)
	}
	return menus, nil
}

func (s *memStore) Catalogues(ctx context.Context) ([]Catalogue, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	catalogues := make([]Catalogue, 0, len(s.catalogues))
	for _, c := range s.catalogues {
		catalogues = append(catalogues, c)
	}
	return catalogues, nil
}

// PermissionStore

func (s *memStore) MenuGrantsForRoles(ctx context.Context, roleIDs []int64) ([]MenuGrant, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	var grants []MenuGrant
	for key, level := range s.menuGrants {
		if containsID(roleIDs, key.roleID) {
			grants = append(grants, MenuGrant{MenuID: key.resourceID, RoleID: key.roleID, Level: level})
		}
	}
	return grants, nil
}

func (s *memStore) CatalogueGrantsForRoles(ctx context.Context, roleIDs []int64) ([]CatalogueGrant, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	var grants []CatalogueGrant
	for key, level := range s.catGrants {
		if containsID(roleIDs, key.roleID) {
			grants = append(grants, CatalogueGrant{CatalogueID: key.resourceID, RoleID: key.roleID, Level: level})
		}
	}
	return grants, nil
}

func containsID(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// MutationStore

func (s *memStore) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return fn(ctx, &memTx{store: s})
}

type memTx struct {
	store *memStore
}

func (tx *memTx) RoleByID(ctx context.Context, id int64) (Role, error) {
	role, ok := tx.store.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return role, nil
}

func (tx *memTx) RoleByName(ctx context.Context, name string) (Role, error) {
	for _, role := range tx.store.roles {
		if role.Name == name {
			return role, nil
		}
	}
	return Role{}, ErrNotFound
}

func (tx *memTx) InsertRole(ctx context.Context, name, description string) (Role, error) {
	tx.store.nextRoleID++
	role := Role{
		ID:          tx.store.nextRoleID,
		Name:        name,
		Description: description,
		IsActive:    true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	tx.store.roles[role.ID] = role
	return role, nil
}

func (tx *memTx) SetRoleActive(ctx context.Context, id int64, active bool) error {
	role, ok := tx.store.roles[id]
	if !ok {
		return ErrNotFound
	}
	role.IsActive = active
	tx.store.roles[id] = role
	return nil
}

func (tx *memTx) MenuByID(ctx context.Context, id int64) (Menu, error) {
	menu, ok := tx.store.menus[id]
	if !ok {
		return Menu{}, ErrNotFound
	}
	return menu, nil
}

func (tx *memTx) CatalogueByID(ctx context.Context, id int64) (Catalogue, error) {
	cat, ok := tx.store.catalogues[id]
	if !ok {
		return Catalogue{}, ErrNotFound
	}
	return cat, nil
}

func (tx *memTx) UserExists(ctx context.Context, userID int64) (bool, error) {
	return tx.store.users[userID], nil
}

func (tx *memTx) UpsertMenuGrant(ctx context.Context, grant MenuGrant) error {
	tx.store.menuGrants[grantKey{grant.MenuID, grant.RoleID}] = grant.Level
	return nil
}

func (tx *memTx) DeleteMenuGrant(ctx context.Context, menuID, roleID int64) error {
	delete(tx.store.menuGrants, grantKey{menuID, roleID})
	return nil
}

func (tx *memTx) UpsertCatalogueGrant(ctx context.Context, grant CatalogueGrant) error {
	tx.store.catGrants[grantKey{grant.CatalogueID, grant.RoleID}] = grant.Level
	return nil
}

func (tx *memTx) DeleteCatalogueGrant(ctx context.Context, catalogueID, roleID int64) error {
	delete(tx.store.catGrants, grantKey{catalogueID, roleID})
	return nil
}

func (tx *memTx) UpsertAssignment(ctx context.Context, assignment Assignment) error {
	tx.store.assignments[grantKey{assignment.UserID, assignment.RoleID}] = assignment
	return nil
}

func (tx *memTx) DeleteAssignment(ctx context.Context, userID, roleID int64) error {
	delete(tx.store.assignments, grantKey{userID, roleID})
	return nil
}

func (tx *memTx) SetMenuOrder(ctx context.Context, menuID int64, displayOrder int) error {
	menu, ok := tx.store.menus[menuID]
	if !ok {
		return ErrNotFound
	}
	menu.DisplayOrder = displayOrder
	tx.store.menus[menuID] = menu
	return nil
}

func (tx *memTx) SetCatalogueOrder(ctx context.Context, catalogueID int64, displayOrder int) error {
	cat, ok := tx.store.catalogues[catalogueID]
	if !ok {
		return ErrNotFound
	}
	cat.DisplayOrder = displayOrder
	tx.store.catalogues[catalogueID] = cat
	return nil
}
