package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalogStore struct {
	perms     []Permission
	roles     []Role
	grants    map[string]map[string]bool // roleID -> permissionID
	failList  bool
	failWrite bool
}

func newFakeCatalogStore() *fakeCatalogStore {
	return &fakeCatalogStore{grants: make(map[string]map[string]bool)}
}

func (f *fakeCatalogStore) ListPermissions(ctx context.Context) ([]Permission, error) {
	if f.failList {
		return nil, errors.New("db down")
	}
	return append([]Permission(nil), f.perms...), nil
}

func (f *fakeCatalogStore) CreatePermission(ctx context.Context, perm *Permission) error {
	if f.failWrite {
		return errors.New("insert failed")
	}
	f.perms = append(f.perms, *perm)
	return nil
}

func (f *fakeCatalogStore) ListRoles(ctx context.Context) ([]Role, error) {
	if f.failList {
		return nil, errors.New("db down")
	}
	permNames := make(map[string]PermissionName, len(f.perms))
	for _, p := range f.perms {
		permNames[p.ID] = p.Name
	}
	out := make([]Role, len(f.roles))
	for i, r := range f.roles {
		r.Permissions = nil
		for permID := range f.grants[r.ID] {
			r.Permissions = append(r.Permissions, permNames[permID])
		}
		out[i] = r
	}
	return out, nil
}

func (f *fakeCatalogStore) CreateRole(ctx context.Context, role *Role) error {
	if f.failWrite {
		return errors.New("insert failed")
	}
	f.roles = append(f.roles, *role)
	return nil
}

func (f *fakeCatalogStore) GrantPermission(ctx context.Context, roleID, permissionID string) error {
	if f.failWrite {
		return errors.New("insert failed")
	}
	if f.grants[roleID] == nil {
		f.grants[roleID] = make(map[string]bool)
	}
	f.grants[roleID][permissionID] = true
	return nil
}

func (f *fakeCatalogStore) roleByName(name RoleName) *Role {
	for i := range f.roles {
		if f.roles[i].Name == name {
			return &f.roles[i]
		}
	}
	return nil
}

func TestSeedCreatesCatalog(t *testing.T) {
	store := newFakeCatalogStore()
	seeder := NewSeeder(store, store, nil)

	seeder.Seed(context.Background())

	assert.Len(t, store.perms, len(AllPermissions()))
	assert.Len(t, store.roles, len(KnownRoles()))

	owner := store.roleByName(RoleOwner)
	require.NotNil(t, owner)
	assert.Len(t, store.grants[owner.ID], len(AllPermissions()))

	admin := store.roleByName(RoleAdmin)
	require.NotNil(t, admin)
	assert.Len(t, store.grants[admin.ID], len(RolePermissions(RoleAdmin)))
}

func TestSeedIsIdempotent(t *testing.T) {
	store := newFakeCatalogStore()
	seeder := NewSeeder(store, store, nil)

	seeder.Seed(context.Background())
	permCount := len(store.perms)
	roleCount := len(store.roles)
	user := store.roleByName(RoleUser)
	require.NotNil(t, user)
	grantCount := len(store.grants[user.ID])

	seeder.Seed(context.Background())

	assert.Equal(t, permCount, len(store.perms))
	assert.Equal(t, roleCount, len(store.roles))
	assert.Equal(t, grantCount, len(store.grants[user.ID]))
}

func TestSeedPreservesOperatorGrants(t *testing.T) {
	store := newFakeCatalogStore()
	seeder := NewSeeder(store, store, nil)
	ctx := context.Background()

	seeder.Seed(ctx)

	// Operator grants the USER role an extra permission between boots
	user := store.roleByName(RoleUser)
	require.NotNil(t, user)
	var auditPermID string
	for _, p := range store.perms {
		if p.Name == PermReadAuditLog {
			auditPermID = p.ID
		}
	}
	require.NotEmpty(t, auditPermID)
	require.NoError(t, store.GrantPermission(ctx, user.ID, auditPermID))
	withExtra := len(store.grants[user.ID])

	seeder.Seed(ctx)

	assert.Equal(t, withExtra, len(store.grants[user.ID]))
	assert.True(t, store.grants[user.ID][auditPermID])
}

func TestSeedSwallowsPersistenceErrors(t *testing.T) {
	t.Run("list failure", func(t *testing.T) {
		store := newFakeCatalogStore()
		store.failList = true
		seeder := NewSeeder(store, store, nil)

		assert.NotPanics(t, func() { seeder.Seed(context.Background()) })
		assert.Empty(t, store.roles)
	})

	t.Run("write failure", func(t *testing.T) {
		store := newFakeCatalogStore()
		store.failWrite = true
		seeder := NewSeeder(store, store, nil)

		assert.NotPanics(t, func() { seeder.Seed(context.Background()) })
	})
}
