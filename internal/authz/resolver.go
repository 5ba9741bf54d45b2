package authz

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Resolver computes the visible menu tree for an identity. It holds no
// state of its own: every call is a pure function of current store
// contents, so there is never a cache to invalidate.
type Resolver struct {
	roles     RoleStore
	resources ResourceStore
	perms     PermissionStore
}

// NewResolver builds a Resolver over the three read stores.
func NewResolver(roles RoleStore, resources ResourceStore, perms PermissionStore) *Resolver {
	return &Resolver{roles: roles, resources: resources, perms: perms}
}

// Resolve returns the ordered tree of menus and catalogues the identity
// may see, each catalogue annotated with the effective permission level.
// An identity with no active roles or no grants legitimately resolves to
// an empty tree. Store failures are reported as ErrResolutionUnavailable;
// callers must treat that as "render nothing", never as "render all".
func (r *Resolver) Resolve(ctx context.Context, id Identity) (VisibleTree, error) {
	var (
		menus      []Menu
		catalogues []Catalogue
		assigned   []Role
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		menus, err = r.resources.Menus(gctx)
		return err
	})
	g.Go(func() (err error) {
		catalogues, err = r.resources.Catalogues(gctx)
		return err
	})
	if !id.IsSuperUser() {
		g.Go(func() (err error) {
			assigned, err = r.roles.RolesForUser(gctx, id.UserID())
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return VisibleTree{}, unavailable(err)
	}

	menus = activeMenus(menus)
	catalogues = resolvableCatalogues(catalogues)

	if id.IsSuperUser() {
		return buildTree(menus, catalogues, superTreePolicy{}), nil
	}

	roleIDs := activeRoleIDs(assigned)
	if len(roleIDs) == 0 {
		return VisibleTree{}, nil
	}

	var (
		menuGrants []MenuGrant
		catGrants  []CatalogueGrant
	)
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		menuGrants, err = r.perms.MenuGrantsForRoles(gctx, roleIDs)
		return err
	})
	g.Go(func() (err error) {
		catGrants, err = r.perms.CatalogueGrantsForRoles(gctx, roleIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return VisibleTree{}, unavailable(err)
	}

	policy := grantTreePolicy{
		menuLevels: maxMenuLevels(menuGrants),
		catLevels:  maxCatalogueLevels(catGrants),
	}
	return buildTree(menus, catalogues, policy), nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrResolutionUnavailable, err)
}

// activeMenus filters out deactivated menus. A deactivated menu hides all
// of its catalogues unconditionally, whatever grants exist.
func activeMenus(menus []Menu) []Menu {
	kept := menus[:0:0]
	for _, m := range menus {
		if m.IsActive {
			kept = append(kept, m)
		}
	}
	return kept
}

// resolvableCatalogues keeps only catalogues that are both active and
// enabled. The rollout flag is checked before any permission is.
func resolvableCatalogues(catalogues []Catalogue) []Catalogue {
	kept := catalogues[:0:0]
	for _, c := range catalogues {
		if c.IsActive && c.IsEnabled {
			kept = append(kept, c)
		}
	}
	return kept
}

// activeRoleIDs returns the IDs of active roles. Grants held by inactive
// roles stay stored but contribute nothing.
func activeRoleIDs(roles []Role) []int64 {
	ids := make([]int64, 0, len(roles))
	for _, role := range roles {
		if role.IsActive {
			ids = append(ids, role.ID)
		}
	}
	return ids
}

func maxMenuLevels(grants []MenuGrant) map[int64]Level {
	levels := make(map[int64]Level, len(grants))
	for _, g := range grants {
		levels[g.MenuID] = levels[g.MenuID].Max(g.Level)
	}
	return levels
}

func maxCatalogueLevels(grants []CatalogueGrant) map[int64]Level {
	levels := make(map[int64]Level, len(grants))
	for _, g := range grants {
		levels[g.CatalogueID] = levels[g.CatalogueID].Max(g.Level)
	}
	return levels
}

// treePolicy decides menu defaults and per-catalogue levels while the
// tree is assembled.
type treePolicy interface {
	menuLevel(menuID int64) Level
	catalogueLevel(catalogueID int64) Level
}

// superTreePolicy grants admin everywhere; the shape of the tree is then
// purely the active/enabled resource set.
type superTreePolicy struct{}

func (superTreePolicy) menuLevel(int64) Level { return LevelAdmin }

func (superTreePolicy) catalogueLevel(int64) Level { return LevelNone }

type grantTreePolicy struct {
	menuLevels map[int64]Level
	catLevels  map[int64]Level
}

func (p grantTreePolicy) menuLevel(menuID int64) Level { return p.menuLevels[menuID] }

func (p grantTreePolicy) catalogueLevel(catID int64) Level { return p.catLevels[catID] }

// buildTree assembles the visible tree from pre-filtered menus and
// catalogues. A menu is kept when it carries a menu-level grant, or when
// at least one of its catalogues is visible through a catalogue grant.
// The effective level of a catalogue is the max of the menu default and
// its own grant.
func buildTree(menus []Menu, catalogues []Catalogue, policy treePolicy) VisibleTree {
	byMenu := make(map[int64][]Catalogue, len(menus))
	for _, c := range catalogues {
		byMenu[c.MenuID] = append(byMenu[c.MenuID], c)
	}

	visible := make([]VisibleMenu, 0, len(menus))
	for _, m := range menus {
		menuDefault := policy.menuLevel(m.ID)
		var kids []VisibleCatalogue
		for _, c := range byMenu[m.ID] {
			effective := menuDefault.Max(policy.catalogueLevel(c.ID))
			if !effective.Granted() {
				continue
			}
			kids = append(kids, VisibleCatalogue{
				ID:           c.ID,
				Name:         c.Name,
				DisplayOrder: c.DisplayOrder,
				Level:        effective,
				Metadata:     c.Metadata,
			})
		}
		if !menuDefault.Granted() && len(kids) == 0 {
			continue
		}
		sortCatalogues(kids)
		visible = append(visible, VisibleMenu{
			ID:           m.ID,
			Name:         m.Name,
			Icon:         m.Icon,
			DisplayOrder: m.DisplayOrder,
			Catalogues:   kids,
		})
	}
	sortMenus(visible)
	return VisibleTree{Menus: visible}
}

// Ordering is display_order first, ID as the tie-breaker, so two calls
// against identical store state return identical trees.
func sortMenus(menus []VisibleMenu) {
	sort.Slice(menus, func(i, j int) bool {
		if menus[i].DisplayOrder != menus[j].DisplayOrder {
			return menus[i].DisplayOrder < menus[j].DisplayOrder
		}
		return menus[i].ID < menus[j].ID
	})
}

func sortCatalogues(catalogues []VisibleCatalogue) {
	sort.Slice(catalogues, func(i, j int) bool {
		if catalogues[i].DisplayOrder != catalogues[j].DisplayOrder {
			return catalogues[i].DisplayOrder < catalogues[j].DisplayOrder
		}
		return catalogues[i].ID < catalogues[j].ID
	})
}
