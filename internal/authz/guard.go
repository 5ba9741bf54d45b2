package authz

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/meridian-portal/meridian-portal/internal/shared"
)

// AuditPort records guard mutations for the audit trail.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Guard validates and applies permission mutations. Every operation runs
// inside a single store transaction: either the whole mutation lands or
// the store is untouched. There is no cache to invalidate afterwards
// because the resolver recomputes from store state on every call.
type Guard struct {
	store  MutationStore
	audit  AuditPort
	logger *slog.Logger
}

// NewGuard builds a Guard. The audit port may be nil in tests.
func NewGuard(store MutationStore, audit AuditPort, logger *slog.Logger) *Guard {
	return &Guard{store: store, audit: audit, logger: logger}
}

// CreateRole inserts a new role. The name must be unique across active
// and inactive roles alike; reusing the name of a dormant role would
// silently revive its grants.
func (g *Guard) CreateRole(ctx context.Context, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("authz: role name required")
	}
	var created Role
	err := g.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		if _, err := tx.RoleByName(ctx, name); err == nil {
			return ErrDuplicateName
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		role, err := tx.InsertRole(ctx, name, strings.TrimSpace(description))
		if err != nil {
			return err
		}
		created = role
		return nil
	})
	if err != nil {
		return Role{}, err
	}
	g.record(ctx, "role.create", "role", created.ID, map[string]any{"name": created.Name})
	return created, nil
}

// DeactivateRole marks a role inactive. Idempotent: deactivating an
// already-inactive role succeeds without effect. Grant rows referencing
// the role are kept so reactivation restores prior access.
func (g *Guard) DeactivateRole(ctx context.Context, roleID int64) error {
	return g.setRoleActive(ctx, roleID, false, "role.deactivate")
}

// ReactivateRole marks a role active again, reviving its dormant grants.
func (g *Guard) ReactivateRole(ctx context.Context, roleID int64) error {
	return g.setRoleActive(ctx, roleID, true, "role.reactivate")
}

func (g *Guard) setRoleActive(ctx context.Context, roleID int64, active bool, action string) error {
	err := g.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		role, err := tx.RoleByID(ctx, roleID)
		if err != nil {
			return err
		}
		if role.IsActive == active {
			return nil
		}
		return tx.SetRoleActive(ctx, roleID, active)
	})
	if err != nil {
		return err
	}
	g.record(ctx, action, "role", roleID, nil)
	return nil
}

// GrantMenuPermission upserts the (menu, role) grant at the given level.
// Existence of menu and role is checked, activity is not: granting to a
// currently-inactive role is legal and simply dormant.
func (g *Guard) GrantMenuPermission(ctx context.Context, menuID, roleID int64, level Level) error {
	if !level.Granted() {
		return errors.New("authz: permission level required")
	}
	err := g.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		if _, err := tx.MenuByID(ctx, menuID); err != nil {
			return err
		}
		if _, err := tx.RoleByID(ctx, roleID); err != nil {
			return err
		}
		return tx.UpsertMenuGrant(ctx, MenuGrant{MenuID: menuID, RoleID: roleID, Level: level})
	})
	if err != nil {
		return err
	}
	g.record(ctx, "permission.menu.grant", "menu", menuID, map[string]any{"role_id": roleID, "level": level.String()})
	return nil
}

// RevokeMenuPermission deletes the (menu, role) grant. Revoking an absent
// grant is a no-op success; the target state is reached either way.
func (g *Guard) RevokeMenuPermission(ctx context.Context, menuID, roleID int64) error {
	err := g.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		if _, err := tx.MenuByID(ctx, menuID); err != nil {
			return err
		}
		if _, err := tx.RoleByID(ctx, roleID); err != nil {
			return err
		}
		return tx.DeleteMenuGrant(ctx, menuID, roleID)
	})
	if err != nil {
		return err
	}
	g.record(ctx, "permission.menu.revoke", "menu", menuID, map[string]any{"role_id": roleID})
	return nil
}

// GrantCataloguePermission upserts the (catalogue, role) grant.
func (g *Guard) GrantCataloguePermission(ctx context.Context, catalogueID, roleID int64, level Level) error {
	if !level.Granted() {
		return errors.New("authz: permission level required")
	}
	err := g.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		if _, err := tx.CatalogueByID(ctx, catalogueID); err != nil {
			return err
		}
		if _, err := tx.RoleByID(ctx, roleID); err != nil {
			return err
		}
		return tx.UpsertCatalogueGrant(ctx, CatalogueGrant{CatalogueID: catalogueID, RoleID: roleID, Level: level})
	})
	if err != nil {
		return err
	}
	g.record(ctx, "permission.catalogue.grant", "catalogue", catalogueID, map[string]any{"role_id": roleID, "level": level.String()})
	return nil
}

// RevokeCataloguePermission deletes the (catalogue, role) grant.
func (g *Guard) RevokeCataloguePermission(ctx context.Context, catalogueID, roleID int64) error {
	err := g.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		if _, err := tx.CatalogueByID(ctx, catalogueID); err != nil {
			return err
		}
		if _, err := tx.RoleByID(ctx, roleID); err != nil {
			return err
		}
		return tx.DeleteCatalogueGrant(ctx, catalogueID, roleID)
	})
	if err != nil {
		return err
	}
	g.record(ctx, "permission.catalogue.revoke", "catalogue", catalogueID, map[string]any{"role_id": roleID})
	return nil
}

// AssignRole links a role to a user. Administrators may not touch their
// own assignments: no self-service escalation, no self-lockout.
func (g *Guard) AssignRole(ctx context.Context, actorID, userID, roleID int64, isDL bool, dlName string) error {
	if actorID == userID {
		return ErrSelfModification
	}
	err := g.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		exists, err := tx.UserExists(ctx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		if _, err := tx.RoleByID(ctx, roleID); err != nil {
			return err
		}
		return tx.UpsertAssignment(ctx, Assignment{UserID: userID, RoleID: roleID, IsDL: isDL, DLName: dlName})
	})
	if err != nil {
		return err
	}
	g.record(ctx, "assignment.add", "user", userID, map[string]any{"role_id": roleID, "is_dl": isDL})
	return nil
}

// RemoveRole unlinks a role from a user, with the same self-modification
// rule as AssignRole.
func (g *Guard) RemoveRole(ctx context.Context, actorID, userID, roleID int64) error {
	if actorID == userID {
		return ErrSelfModification
	}
	err := g.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		exists, err := tx.UserExists(ctx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		if _, err := tx.RoleByID(ctx, roleID); err != nil {
			return err
		}
		return tx.DeleteAssignment(ctx, userID, roleID)
	})
	if err != nil {
		return err
	}
	g.record(ctx, "assignment.remove", "user", userID, map[string]any{"role_id": roleID})
	return nil
}

// ReorderMenu updates the display position of a menu. Pure ordering, no
// permission implication.
func (g *Guard) ReorderMenu(ctx context.Context, menuID int64, displayOrder int) error {
	err := g.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		if _, err := tx.MenuByID(ctx, menuID); err != nil {
			return err
		}
		return tx.SetMenuOrder(ctx, menuID, displayOrder)
	})
	if err != nil {
		return err
	}
	g.record(ctx, "menu.reorder", "menu", menuID, map[string]any{"display_order": displayOrder})
	return nil
}

// ReorderCatalogue updates the display position of a catalogue.
func (g *Guard) ReorderCatalogue(ctx context.Context, catalogueID int64, displayOrder int) error {
	err := g.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		if _, err := tx.CatalogueByID(ctx, catalogueID); err != nil {
			return err
		}
		return tx.SetCatalogueOrder(ctx, catalogueID, displayOrder)
	})
	if err != nil {
		return err
	}
	g.record(ctx, "catalogue.reorder", "catalogue", catalogueID, map[string]any{"display_order": displayOrder})
	return nil
}

// record writes the audit entry after a committed mutation. Audit is
// best-effort on the write path; a failed insert is logged, not surfaced.
func (g *Guard) record(ctx context.Context, action, entity string, entityID int64, meta map[string]any) {
	if g.audit == nil {
		return
	}
	actorID := ActorFromContext(ctx)
	err := g.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	})
	if err != nil && g.logger != nil {
		g.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
