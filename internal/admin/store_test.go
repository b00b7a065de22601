package admin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"dispatchcore/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Open(ctx, filepath.Join(t.TempDir(), "admin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.ApplySchema(ctx, conn))
	return NewStore(conn)
}

func TestCreateAndGetUser(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	created, err := store.Create(ctx, "alice", "hunter2", true)
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.True(t, created.IsAdmin)

	got, err := store.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(got.PasswordHash), []byte("hunter2")))

	_, err = store.GetByUsername(ctx, "nobody")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreateRejectsDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Create(ctx, "alice", "hunter2", false)
	require.NoError(t, err)
	_, err = store.Create(ctx, "alice", "other", false)
	require.Error(t, err)
}

func TestPermissionsUpsert(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	u, err := store.Create(ctx, "bob", "pw", false)
	require.NoError(t, err)

	require.NoError(t, store.SetPermission(ctx, u.ID, "main", Permission{CanView: true}))
	require.NoError(t, store.SetPermission(ctx, u.ID, "main", Permission{CanView: true, CanDisable: true}))
	require.NoError(t, store.SetPermission(ctx, u.ID, "north", Permission{CanView: true, CanTrigger: true}))

	perms, err := store.GetPermissions(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, perms, 2)
	require.True(t, perms["main"].CanDisable)
	require.False(t, perms["main"].CanTrigger)
	require.True(t, perms["north"].CanTrigger)
}

func TestDeleteRemovesUserAndPermissions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	u, err := store.Create(ctx, "carol", "pw", false)
	require.NoError(t, err)
	require.NoError(t, store.SetPermission(ctx, u.ID, "main", Permission{CanView: true}))

	require.NoError(t, store.Delete(ctx, u.ID))
	_, err = store.GetByUsername(ctx, "carol")
	require.ErrorIs(t, err, ErrUserNotFound)
	perms, err := store.GetPermissions(ctx, u.ID)
	require.NoError(t, err)
	require.Empty(t, perms)
}

func TestBranchToggle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	// Unknown branches default to enabled so routing never fails open-ended.
	enabled, err := store.IsBranchEnabled(ctx, "ghost")
	require.NoError(t, err)
	require.True(t, enabled)

	require.NoError(t, store.EnsureBranch(ctx, "main"))
	require.NoError(t, store.EnsureBranch(ctx, "main")) // idempotent

	require.NoError(t, store.SetBranchEnabled(ctx, "main", false, "alice"))
	enabled, err = store.IsBranchEnabled(ctx, "main")
	require.NoError(t, err)
	require.False(t, enabled)

	bs, err := store.GetBranchStatus(ctx, "main")
	require.NoError(t, err)
	require.False(t, bs.Enabled)
	require.Equal(t, "alice", bs.DisabledBy)
	require.NotNil(t, bs.DisabledAt)

	require.NoError(t, store.SetBranchEnabled(ctx, "main", true, "alice"))
	bs, err = store.GetBranchStatus(ctx, "main")
	require.NoError(t, err)
	require.True(t, bs.Enabled)
	require.Nil(t, bs.DisabledAt)
}

func TestSeedFromFileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
users:
  - username: admin
    password: changeme
    is_admin: true
    branches:
      main:
        can_view: true
        can_trigger: true
        can_disable: true
  - username: operator
    password: opspass
    branches:
      main:
        can_view: true
`), 0o644))

	require.NoError(t, store.SeedFromFile(ctx, path))
	require.NoError(t, store.SeedFromFile(ctx, path)) // second run leaves users alone

	users, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	admin, err := store.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	perms, err := store.GetPermissions(ctx, admin.ID)
	require.NoError(t, err)
	require.True(t, perms["main"].CanDisable)
}
