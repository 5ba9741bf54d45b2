package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-portal/meridian-portal/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for the three read
// stores and the transactional mutation store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var (
	_ RoleStore       = (*Repository)(nil)
	_ ResourceStore   = (*Repository)(nil)
	_ PermissionStore = (*Repository)(nil)
	_ MutationStore   = (*Repository)(nil)
)

// RolesForUser returns every role assigned to the user, active or not.
func (r *Repository) RolesForUser(ctx context.Context, userID int64) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.name, r.description, r.is_active, r.created_at, r.updated_at
		FROM roles r
		JOIN user_role_assignments a ON a.role_id = r.id
		WHERE a.user_id = $1
		ORDER BY r.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.IsActive, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// Menus returns all menus regardless of activity.
func (r *Repository) Menus(ctx context.Context) ([]Menu, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, icon, display_order, is_active FROM menus ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var menus []Menu
	for rows.Next() {
		var menu Menu
		if err := rows.Scan(&menu.ID, &menu.Name, &menu.Icon, &menu.DisplayOrder, &menu.IsActive); err != nil {
			return nil, err
		}
		menus = append(menus, menu)
	}
	return menus, rows.Err()
}

// Catalogues returns all catalogues regardless of flags.
func (r *Repository) Catalogues(ctx context.Context) ([]Catalogue, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, menu_id, name, display_order, is_enabled, is_active, metadata FROM catalogues ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var catalogues []Catalogue
	for rows.Next() {
		cat, err := scanCatalogue(rows)
		if err != nil {
			return nil, err
		}
		catalogues = append(catalogues, cat)
	}
	return catalogues, rows.Err()
}

// MenuGrantsForRoles returns the menu grant rows held by any of the roles.
func (r *Repository) MenuGrantsForRoles(ctx context.Context, roleIDs []int64) ([]MenuGrant, error) {
	rows, err := r.pool.Query(ctx, `SELECT menu_id, role_id, permission_type FROM menu_permissions WHERE role_id = ANY($1)`, roleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var grants []MenuGrant
	for rows.Next() {
		var (
			grant MenuGrant
			raw   string
		)
		if err := rows.Scan(&grant.MenuID, &grant.RoleID, &raw); err != nil {
			return nil, err
		}
		if grant.Level, err = ParseLevel(raw); err != nil {
			return nil, err
		}
		grants = append(grants, grant)
	}
	return grants, rows.Err()
}

// CatalogueGrantsForRoles returns catalogue grant rows held by the roles.
func (r *Repository) CatalogueGrantsForRoles(ctx context.Context, roleIDs []int64) ([]CatalogueGrant, error) {
	rows, err := r.pool.Query(ctx, `SELECT catalogue_id, role_id, permission_type FROM catalogue_permissions WHERE role_id = ANY($1)`, roleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var grants []CatalogueGrant
	for rows.Next() {
		var (
			grant CatalogueGrant
			raw   string
		)
		if err := rows.Scan(&grant.CatalogueID, &grant.RoleID, &raw); err != nil {
			return nil, err
		}
		if grant.Level, err = ParseLevel(raw); err != nil {
			return nil, err
		}
		grants = append(grants, grant)
	}
	return grants, rows.Err()
}

// WithTx runs fn against a transactional store view.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{tx: tx})
	})
}

type txStore struct {
	tx pgx.Tx
}

var _ TxStore = (*txStore)(nil)

func (s *txStore) RoleByID(ctx context.Context, id int64) (Role, error) {
	return scanRole(s.tx.QueryRow(ctx, `SELECT id, name, description, is_active, created_at, updated_at FROM roles WHERE id = $1`, id))
}

func (s *txStore) RoleByName(ctx context.Context, name string) (Role, error) {
	return scanRole(s.tx.QueryRow(ctx, `SELECT id, name, description, is_active, created_at, updated_at FROM roles WHERE name = $1`, name))
}

func (s *txStore) InsertRole(ctx context.Context, name, description string) (Role, error) {
	role, err := scanRole(s.tx.QueryRow(ctx, `
		INSERT INTO roles (name, description, is_active, created_at, updated_at)
		VALUES ($1, $2, TRUE, NOW(), NOW())
		RETURNING id, name, description, is_active, created_at, updated_at`, name, description))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Role{}, ErrDuplicateName
		}
		return Role{}, err
	}
	return role, nil
}

func (s *txStore) SetRoleActive(ctx context.Context, id int64, active bool) error {
	tag, err := s.tx.Exec(ctx, `UPDATE roles SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *txStore) MenuByID(ctx context.Context, id int64) (Menu, error) {
	var menu Menu
	err := s.tx.QueryRow(ctx, `SELECT id, name, icon, display_order, is_active FROM menus WHERE id = $1`, id).
		Scan(&menu.ID, &menu.Name, &menu.Icon, &menu.DisplayOrder, &menu.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Menu{}, ErrNotFound
		}
		return Menu{}, err
	}
	return menu, nil
}

func (s *txStore) CatalogueByID(ctx context.Context, id int64) (Catalogue, error) {
	cat, err := scanCatalogue(s.tx.QueryRow(ctx, `SELECT id, menu_id, name, display_order, is_enabled, is_active, metadata FROM catalogues WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Catalogue{}, ErrNotFound
		}
		return Catalogue{}, err
	}
	return cat, nil
}

func (s *txStore) UserExists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := s.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	return exists, err
}

func (s *txStore) UpsertMenuGrant(ctx context.Context, grant MenuGrant) error {
	_, err := s.tx.Exec(ctx, `
		INSERT INTO menu_permissions (menu_id, role_id, permission_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (menu_id, role_id) DO UPDATE SET permission_type = EXCLUDED.permission_type`,
		grant.MenuID, grant.RoleID, grant.Level.String())
	return err
}

func (s *txStore) DeleteMenuGrant(ctx context.Context, menuID, roleID int64) error {
	_, err := s.tx.Exec(ctx, `DELETE FROM menu_permissions WHERE menu_id = $1 AND role_id = $2`, menuID, roleID)
	return err
}

func (s *txStore) UpsertCatalogueGrant(ctx context.Context, grant CatalogueGrant) error {
	_, err := s.tx.Exec(ctx, `
		INSERT INTO catalogue_permissions (catalogue_id, role_id, permission_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (catalogue_id, role_id) DO UPDATE SET permission_type = EXCLUDED.permission_type`,
		grant.CatalogueID, grant.RoleID, grant.Level.String())
	return err
}

func (s *txStore) DeleteCatalogueGrant(ctx context.Context, catalogueID, roleID int64) error {
	_, err := s.tx.Exec(ctx, `DELETE FROM catalogue_permissions WHERE catalogue_id = $1 AND role_id = $2`, catalogueID, roleID)
	return err
}

func (s *txStore) UpsertAssignment(ctx context.Context, assignment Assignment) error {
	_, err := s.tx.Exec(ctx, `
		INSERT INTO user_role_assignments (user_id, role_id, is_dl, dl_name, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, role_id) DO UPDATE SET is_dl = EXCLUDED.is_dl, dl_name = EXCLUDED.dl_name`,
		assignment.UserID, assignment.RoleID, assignment.IsDL, assignment.DLName)
	return err
}

func (s *txStore) DeleteAssignment(ctx context.Context, userID, roleID int64) error {
	_, err := s.tx.Exec(ctx, `DELETE FROM user_role_assignments WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	return err
}

func (s *txStore) SetMenuOrder(ctx context.Context, menuID int64, displayOrder int) error {
	tag, err := s.tx.Exec(ctx, `UPDATE menus SET display_order = $2 WHERE id = $1`, menuID, displayOrder)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *txStore) SetCatalogueOrder(ctx context.Context, catalogueID int64, displayOrder int) error {
	tag, err := s.tx.Exec(ctx, `UPDATE catalogues SET display_order = $2 WHERE id = $1`, catalogueID, displayOrder)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.IsActive, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

func scanCatalogue(row pgx.Row) (Catalogue, error) {
	var (
		cat Catalogue
		raw []byte
	)
	if err := row.Scan(&cat.ID, &cat.MenuID, &cat.Name, &cat.DisplayOrder, &cat.IsEnabled, &cat.IsActive, &raw); err != nil {
		return Catalogue{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cat.Metadata); err != nil {
			return Catalogue{}, fmt.Errorf("authz: decode catalogue metadata: %w", err)
		}
	}
	return cat, nil
}
