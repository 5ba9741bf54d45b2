package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-portal/meridian-portal/internal/shared"
)

type recordingAudit struct {
	entries []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.entries = append(a.entries, log)
	return nil
}

func TestCreateRoleRejectsDuplicateNameEvenWhenInactive(t *testing.T) {
	store := newMemStore()
	guard := NewGuard(store, nil, nil)
	ctx := context.Background()

	created, err := guard.CreateRole(ctx, "Network Admins", "manages firewall catalogues")
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.True(t, created.IsActive)

	_, err = guard.CreateRole(ctx, "Network Admins", "")
	require.ErrorIs(t, err, ErrDuplicateName)

	// Deactivation does not free the name: reusing it would revive the
	// dormant role's grants under a different meaning.
	require.NoError(t, guard.DeactivateRole(ctx, created.ID))
	_, err = guard.CreateRole(ctx, "Network Admins", "")
	require.ErrorIs(t, err, ErrDuplicateName)
}

func TestCreateRoleRequiresName(t *testing.T) {
	guard := NewGuard(newMemStore(), nil, nil)
	_, err := guard.CreateRole(context.Background(), "   ", "")
	require.Error(t, err)
}

func TestDeactivateRoleIsIdempotentAndKeepsGrants(t *testing.T) {
	store := portalFixture()
	guard := NewGuard(store, nil, nil)
	ctx := context.Background()

	require.NoError(t, guard.DeactivateRole(ctx, 100))
	require.NoError(t, guard.DeactivateRole(ctx, 100))
	require.False(t, store.roles[100].IsActive)

	// Grant rows survive the deactivation untouched.
	require.Equal(t, LevelAdmin, store.menuGrants[grantKey{1, 100}])

	require.ErrorIs(t, guard.DeactivateRole(ctx, 999), ErrNotFound)
}

func TestGrantMenuPermissionValidatesExistenceNotActivity(t *testing.T) {
	store := portalFixture()
	guard := NewGuard(store, nil, nil)
	ctx := context.Background()

	require.ErrorIs(t, guard.GrantMenuPermission(ctx, 99, 100, LevelRead), ErrNotFound)
	require.ErrorIs(t, guard.GrantMenuPermission(ctx, 1, 999, LevelRead), ErrNotFound)
	require.Error(t, guard.GrantMenuPermission(ctx, 1, 100, LevelNone))

	// Granting to an inactive role is legal; the grant is simply dormant.
	store.addRole(300, "Dormant", false)
	require.NoError(t, guard.GrantMenuPermission(ctx, 1, 300, LevelWrite))
	require.Equal(t, LevelWrite, store.menuGrants[grantKey{1, 300}])
}

func TestGrantMenuPermissionUpsertsOnSameKey(t *testing.T) {
	store := portalFixture()
	guard := NewGuard(store, nil, nil)
	ctx := context.Background()

	require.NoError(t, guard.GrantMenuPermission(ctx, 2, 200, LevelRead))
	require.NoError(t, guard.GrantMenuPermission(ctx, 2, 200, LevelAdmin))
	require.Equal(t, LevelAdmin, store.menuGrants[grantKey{2, 200}])
}

func TestRevokeMenuPermission(t *testing.T) {
	store := portalFixture()
	guard := NewGuard(store, nil, nil)
	ctx := context.Background()

	require.NoError(t, guard.RevokeMenuPermission(ctx, 1, 100))
	_, exists := store.menuGrants[grantKey{1, 100}]
	require.False(t, exists)

	// Revoking an absent grant reaches the target state; no error.
	require.NoError(t, guard.RevokeMenuPermission(ctx, 1, 100))

	require.ErrorIs(t, guard.RevokeMenuPermission(ctx, 99, 100), ErrNotFound)
}

func TestCataloguePermissionLifecycle(t *testing.T) {
	store := portalFixture()
	guard := NewGuard(store, nil, nil)
	ctx := context.Background()

	require.ErrorIs(t, guard.GrantCataloguePermission(ctx, 999, 100, LevelRead), ErrNotFound)
	require.NoError(t, guard.GrantCataloguePermission(ctx, 22, 200, LevelWrite))
	require.Equal(t, LevelWrite, store.catGrants[grantKey{22, 200}])

	require.NoError(t, guard.RevokeCataloguePermission(ctx, 22, 200))
	_, exists := store.catGrants[grantKey{22, 200}]
	require.False(t, exists)
}

func TestAssignRoleForbidsSelfModification(t *testing.T) {
	store := portalFixture()
	guard := NewGuard(store, nil, nil)
	ctx := context.Background()

	require.ErrorIs(t, guard.AssignRole(ctx, 1001, 1001, 200, false, ""), ErrSelfModification)
	require.ErrorIs(t, guard.RemoveRole(ctx, 1001, 1001, 100), ErrSelfModification)
}

func TestAssignRoleValidatesTargets(t *testing.T) {
	store := portalFixture()
	guard := NewGuard(store, nil, nil)
	ctx := context.Background()

	require.ErrorIs(t, guard.AssignRole(ctx, 1, 7777, 100, false, ""), ErrNotFound)

	store.addUser(7777)
	require.ErrorIs(t, guard.AssignRole(ctx, 1, 7777, 999, false, ""), ErrNotFound)

	require.NoError(t, guard.AssignRole(ctx, 1, 7777, 100, true, "dl-storage-team"))
	assignment := store.assignments[grantKey{7777, 100}]
	require.True(t, assignment.IsDL)
	require.Equal(t, "dl-storage-team", assignment.DLName)
}

func TestRemoveRole(t *testing.T) {
	store := portalFixture()
	guard := NewGuard(store, nil, nil)
	ctx := context.Background()

	require.NoError(t, guard.RemoveRole(ctx, 1, 1002, 200))
	_, exists := store.assignments[grantKey{1002, 200}]
	require.False(t, exists)
}

func TestReorderChangesResolvedOrdering(t *testing.T) {
	store := portalFixture()
	guard := NewGuard(store, nil, nil)
	r := newResolver(store)
	ctx := context.Background()
	admin := SuperUser(1)

	before, err := r.Resolve(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, "Storage", before.Menus[0].Name)

	require.NoError(t, guard.ReorderMenu(ctx, 1, 10))
	after, err := r.Resolve(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, "Backup", after.Menus[0].Name)

	require.NoError(t, guard.ReorderCatalogue(ctx, 12, 0))
	after, err = r.Resolve(ctx, admin)
	require.NoError(t, err)
	require.Equal(t, "Array Inventory", after.Menus[1].Catalogues[0].Name)

	require.ErrorIs(t, guard.ReorderMenu(ctx, 99, 1), ErrNotFound)
	require.ErrorIs(t, guard.ReorderCatalogue(ctx, 99, 1), ErrNotFound)
}

func TestGuardRecordsAuditTrail(t *testing.T) {
	store := portalFixture()
	audit := &recordingAudit{}
	guard := NewGuard(store, audit, nil)
	ctx := ContextWithIdentity(context.Background(), SuperUser(42))

	_, err := guard.CreateRole(ctx, "Morning Checklist", "")
	require.NoError(t, err)
	require.NoError(t, guard.GrantMenuPermission(ctx, 1, 200, LevelRead))

	require.Len(t, audit.entries, 2)
	require.Equal(t, "role.create", audit.entries[0].Action)
	require.Equal(t, int64(42), audit.entries[0].ActorID)
	require.Equal(t, "permission.menu.grant", audit.entries[1].Action)
}

func TestFailedMutationLeavesStoreUnchanged(t *testing.T) {
	store := portalFixture()
	guard := NewGuard(store, nil, nil)
	ctx := context.Background()

	grantsBefore := len(store.menuGrants)
	require.ErrorIs(t, guard.GrantMenuPermission(ctx, 1, 999, LevelAdmin), ErrNotFound)
	require.Len(t, store.menuGrants, grantsBefore)
}
