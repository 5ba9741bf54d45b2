package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func newResolver(store *memStore) *Resolver {
	return NewResolver(store, store, store)
}

// portalFixture models the concrete scenario: a Storage menu with two
// catalogues, a Backup menu with two catalogues, one role granting the
// whole Storage menu and one granting a single Backup catalogue.
func portalFixture() *memStore {
	store := newMemStore()
	store.addMenu(1, "Storage", 1, true)
	store.addMenu(2, "Backup", 2, true)
	store.addCatalogue(11, 1, "Capacity Dashboard", 1, true, true)
	store.addCatalogue(12, 1, "Array Inventory", 2, true, true)
	store.addCatalogue(21, 2, "Backup Config", 1, true, true)
	store.addCatalogue(22, 2, "Restore Requests", 2, true, true)

	store.addRole(100, "Storage Menu Admin", true)
	store.addRole(200, "Backup Config Access", true)
	store.grantMenu(1, 100, LevelAdmin)
	store.grantCatalogue(21, 200, LevelRead)

	store.assign(1001, 100)
	store.assign(1002, 200)
	return store
}

func TestResolveAdminBypassSeesEverythingAtAdmin(t *testing.T) {
	store := portalFixture()
	store.addCatalogue(13, 1, "Decommissioned", 3, true, false)
	store.addCatalogue(14, 1, "In Development", 4, false, true)
	store.addMenu(3, "Hidden", 3, false)

	tree, err := newResolver(store).Resolve(context.Background(), SuperUser(9))
	require.NoError(t, err)

	require.Len(t, tree.Menus, 2)
	for _, menu := range tree.Menus {
		for _, cat := range menu.Catalogues {
			require.Equal(t, LevelAdmin, cat.Level)
		}
	}
	// Inactive and disabled catalogues stay hidden even for the bypass.
	require.Len(t, tree.Menus[0].Catalogues, 2)
	require.Len(t, tree.Menus[1].Catalogues, 2)
}

func TestResolveNoRolesReturnsEmptyTree(t *testing.T) {
	store := portalFixture()
	r := newResolver(store)

	tree, err := r.Resolve(context.Background(), StandardUser(555))
	require.NoError(t, err)
	require.True(t, tree.Empty())

	// A user whose only role is inactive resolves to the same empty tree.
	store.addRole(300, "Dormant", false)
	store.assign(556, 300)
	tree, err = r.Resolve(context.Background(), StandardUser(556))
	require.NoError(t, err)
	require.True(t, tree.Empty())
}

func TestResolveMenuGrantPropagatesToAllCatalogues(t *testing.T) {
	store := portalFixture()

	tree, err := newResolver(store).Resolve(context.Background(), StandardUser(1001))
	require.NoError(t, err)

	require.Len(t, tree.Menus, 1)
	require.Equal(t, "Storage", tree.Menus[0].Name)
	require.Len(t, tree.Menus[0].Catalogues, 2)
	for _, cat := range tree.Menus[0].Catalogues {
		require.Equal(t, LevelAdmin, cat.Level)
	}
}

func TestResolveCatalogueGrantShowsMenuWithoutSiblings(t *testing.T) {
	store := portalFixture()

	tree, err := newResolver(store).Resolve(context.Background(), StandardUser(1002))
	require.NoError(t, err)

	require.Len(t, tree.Menus, 1)
	require.Equal(t, "Backup", tree.Menus[0].Name)
	require.Len(t, tree.Menus[0].Catalogues, 1)
	require.Equal(t, "Backup Config", tree.Menus[0].Catalogues[0].Name)
	require.Equal(t, LevelRead, tree.Menus[0].Catalogues[0].Level)
}

func TestResolveEffectiveLevelIsMaxAcrossGrantSources(t *testing.T) {
	store := newMemStore()
	store.addMenu(1, "Storage", 1, true)
	store.addCatalogue(11, 1, "Capacity", 1, true, true)
	store.addCatalogue(12, 1, "Arrays", 2, true, true)
	store.addRole(1, "readers", true)
	store.addRole(2, "capacity-admins", true)
	store.grantMenu(1, 1, LevelRead)
	store.grantCatalogue(11, 2, LevelAdmin)
	store.assign(7, 1)
	store.assign(7, 2)

	tree, err := newResolver(store).Resolve(context.Background(), StandardUser(7))
	require.NoError(t, err)

	require.Len(t, tree.Menus, 1)
	cats := tree.Menus[0].Catalogues
	require.Len(t, cats, 2)
	require.Equal(t, LevelAdmin, cats[0].Level) // own grant wins over menu default
	require.Equal(t, LevelRead, cats[1].Level)  // sibling keeps the menu default
}

func TestResolveMenuGrantKeepsMenuWithoutVisibleCatalogues(t *testing.T) {
	store := newMemStore()
	store.addMenu(1, "Provisioned Early", 1, true)
	store.addRole(1, "early", true)
	store.grantMenu(1, 1, LevelWrite)
	store.assign(5, 1)

	tree, err := newResolver(store).Resolve(context.Background(), StandardUser(5))
	require.NoError(t, err)
	require.Len(t, tree.Menus, 1)
	require.Empty(t, tree.Menus[0].Catalogues)
}

func TestResolveInactiveMenuHidesChildrenUnconditionally(t *testing.T) {
	store := newMemStore()
	store.addMenu(1, "Retired", 1, false)
	store.addCatalogue(11, 1, "Leftover", 1, true, true)
	store.addRole(1, "holders", true)
	store.grantCatalogue(11, 1, LevelAdmin)
	store.assign(5, 1)

	tree, err := newResolver(store).Resolve(context.Background(), StandardUser(5))
	require.NoError(t, err)
	require.True(t, tree.Empty())
}

func TestResolveSkipsDisabledAndInactiveCatalogues(t *testing.T) {
	store := newMemStore()
	store.addMenu(1, "Ops", 1, true)
	store.addCatalogue(11, 1, "Live", 1, true, true)
	store.addCatalogue(12, 1, "Rolling Out", 2, false, true)
	store.addCatalogue(13, 1, "Deleted", 3, true, false)
	store.addRole(1, "ops", true)
	store.grantMenu(1, 1, LevelRead)
	store.assign(5, 1)

	tree, err := newResolver(store).Resolve(context.Background(), StandardUser(5))
	require.NoError(t, err)
	require.Len(t, tree.Menus, 1)
	require.Len(t, tree.Menus[0].Catalogues, 1)
	require.Equal(t, "Live", tree.Menus[0].Catalogues[0].Name)
}

func TestResolveDormantGrantRestoredByReactivation(t *testing.T) {
	store := portalFixture()
	r := newResolver(store)
	guard := NewGuard(store, nil, nil)
	ctx := context.Background()

	before, err := r.Resolve(ctx, StandardUser(1001))
	require.NoError(t, err)
	require.False(t, before.Empty())

	require.NoError(t, guard.DeactivateRole(ctx, 100))
	during, err := r.Resolve(ctx, StandardUser(1001))
	require.NoError(t, err)
	require.True(t, during.Empty())

	require.NoError(t, guard.ReactivateRole(ctx, 100))
	after, err := r.Resolve(ctx, StandardUser(1001))
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestResolveOrderingIsDeterministic(t *testing.T) {
	store := newMemStore()
	// Same display_order everywhere: IDs break the ties.
	store.addMenu(2, "B", 1, true)
	store.addMenu(1, "A", 1, true)
	store.addCatalogue(22, 2, "Second", 1, true, true)
	store.addCatalogue(21, 2, "First", 1, true, true)
	store.addCatalogue(11, 1, "Only", 1, true, true)
	store.addRole(1, "all", true)
	store.grantMenu(1, 1, LevelRead)
	store.grantMenu(2, 1, LevelRead)
	store.assign(5, 1)

	r := newResolver(store)
	first, err := r.Resolve(context.Background(), StandardUser(5))
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), StandardUser(5))
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, int64(1), first.Menus[0].ID)
	require.Equal(t, int64(2), first.Menus[1].ID)
	require.Equal(t, int64(21), first.Menus[1].Catalogues[0].ID)
	require.Equal(t, int64(22), first.Menus[1].Catalogues[1].ID)
}

func TestResolveDisplayOrderBeatsID(t *testing.T) {
	store := newMemStore()
	store.addMenu(1, "Last", 9, true)
	store.addMenu(2, "First", 1, true)
	store.addRole(1, "all", true)
	store.grantMenu(1, 1, LevelRead)
	store.grantMenu(2, 1, LevelRead)
	store.assign(5, 1)

	tree, err := newResolver(store).Resolve(context.Background(), StandardUser(5))
	require.NoError(t, err)
	require.Equal(t, "First", tree.Menus[0].Name)
	require.Equal(t, "Last", tree.Menus[1].Name)
}

func TestResolveStoreFailureIsFailClosed(t *testing.T) {
	store := portalFixture()
	store.readErr = errors.New("connection refused")

	tree, err := newResolver(store).Resolve(context.Background(), StandardUser(1001))
	require.ErrorIs(t, err, ErrResolutionUnavailable)
	require.True(t, tree.Empty())
}

func TestResolveConcreteScenario(t *testing.T) {
	store := portalFixture()
	r := newResolver(store)
	ctx := context.Background()

	// U1 holds only "Storage Menu Admin".
	u1, err := r.Resolve(ctx, StandardUser(1001))
	require.NoError(t, err)
	require.Len(t, u1.Menus, 1)
	require.Equal(t, "Storage", u1.Menus[0].Name)
	require.Len(t, u1.Menus[0].Catalogues, 2)
	for _, cat := range u1.Menus[0].Catalogues {
		require.Equal(t, LevelAdmin, cat.Level)
	}

	// U2 holds only "Backup Config Access": one catalogue, not its sibling.
	u2, err := r.Resolve(ctx, StandardUser(1002))
	require.NoError(t, err)
	require.Len(t, u2.Menus, 1)
	require.Equal(t, "Backup", u2.Menus[0].Name)
	require.Len(t, u2.Menus[0].Catalogues, 1)
	require.Equal(t, "Backup Config", u2.Menus[0].Catalogues[0].Name)
}

func TestLevelParsingAndOrdering(t *testing.T) {
	for _, name := range []string{"read", "write", "admin"} {
		level, err := ParseLevel(name)
		require.NoError(t, err)
		require.Equal(t, name, level.String())
	}
	_, err := ParseLevel("owner")
	require.Error(t, err)

	require.Equal(t, LevelAdmin, LevelRead.Max(LevelAdmin))
	require.Equal(t, LevelWrite, LevelWrite.Max(LevelNone))
	require.False(t, LevelNone.Granted())
	require.True(t, LevelRead.Granted())
}
