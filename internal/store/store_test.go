// ABOUTME: Tests for user and group store operations against real SQLite
// ABOUTME: Shared setupTestStore helper lives here

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// createTestGroup inserts a group and returns it.
func createTestGroup(t *testing.T, store *SQLiteStore, name string, admin bool) *Group {
	t.Helper()
	group := &Group{Name: name, IsAdmin: admin}
	require.NoError(t, store.CreateGroup(context.Background(), group))
	return group
}

func TestStore_CreateUser(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, "staff", false)

	user := &User{
		Email:   "a@example.com",
		Name:    "Alice",
		GroupID: group.ID,
	}

	err := store.CreateUser(ctx, user)
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	retrieved, err := store.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, retrieved.ID)
	assert.False(t, retrieved.MfaEnabled)
	assert.Empty(t, retrieved.MfaSecret)
}

func TestStore_CreateUser_DuplicateEmail(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, "staff", false)

	first := &User{Email: "a@example.com", Name: "Alice", GroupID: group.ID}
	require.NoError(t, store.CreateUser(ctx, first))

	second := &User{Email: "a@example.com", Name: "Imposter", GroupID: group.ID}
	err := store.CreateUser(ctx, second)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestStore_GetUser_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetUser(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = store.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestStore_UpdateUserMFA(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, "staff", false)

	user := &User{Email: "a@example.com", Name: "Alice", GroupID: group.ID}
	require.NoError(t, store.CreateUser(ctx, user))

	require.NoError(t, store.UpdateUserMFA(ctx, user.ID, "SECRET", true))

	retrieved, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "SECRET", retrieved.MfaSecret)
	assert.True(t, retrieved.MfaEnabled)

	// Reset back to absent
	require.NoError(t, store.UpdateUserMFA(ctx, user.ID, "", false))
	retrieved, err = store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, retrieved.MfaSecret)
	assert.False(t, retrieved.MfaEnabled)
}

func TestStore_UpdateUserPassword(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, "staff", false)

	user := &User{Email: "a@example.com", Name: "Alice", GroupID: group.ID, PasswordChange: true}
	require.NoError(t, store.CreateUser(ctx, user))

	require.NoError(t, store.UpdateUserPassword(ctx, user.ID, "new-hash", false))

	retrieved, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", retrieved.PasswordHash)
	assert.False(t, retrieved.PasswordChange)
}

func TestStore_ListUsers_Search(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, "staff", false)

	for _, email := range []string{"alice@example.com", "bob@example.com", "carol@other.org"} {
		require.NoError(t, store.CreateUser(ctx, &User{Email: email, Name: email, GroupID: group.ID}))
	}

	users, err := store.ListUsers(ctx, UserFilter{Search: "example.com"})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, "alice@example.com", users[0].Email)
}

func TestStore_DeleteGroup_InUse(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, "staff", false)

	require.NoError(t, store.CreateUser(ctx, &User{Email: "a@example.com", Name: "Alice", GroupID: group.ID}))

	err := store.DeleteGroup(ctx, group.ID)
	assert.ErrorIs(t, err, ErrGroupInUse)
}

func TestStore_Groups_CRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	group := createTestGroup(t, store, "admins", true)
	assert.Equal(t, 2, group.MaxDevices)

	group.Name = "operators"
	group.MaxDevices = 5
	require.NoError(t, store.UpdateGroup(ctx, group))

	retrieved, err := store.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, "operators", retrieved.Name)
	assert.Equal(t, 5, retrieved.MaxDevices)
	assert.True(t, retrieved.IsAdmin)

	require.NoError(t, store.DeleteGroup(ctx, group.ID))
	_, err = store.GetGroup(ctx, group.ID)
	assert.ErrorIs(t, err, ErrGroupNotFound)
}
