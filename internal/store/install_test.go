// ABOUTME: Tests for the transactional first-run setup operation
// ABOUTME: Verifies everything commits together and a failure leaves nothing behind

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteInstall_CommitsEverything(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	group := &Group{Name: "Administrators", IsAdmin: true, MaxDevices: 10}
	admin := &User{Email: "root@example.com", Name: "Root", PasswordHash: "hash"}
	require.NoError(t, store.CompleteInstall(ctx, group, admin, "Acme Corp"))

	stored, err := store.GetUserByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, group.ID, stored.GroupID)

	org, err := store.GetSetting(ctx, SettingOrganization, "")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", org)

	installed, err := store.GetBoolSetting(ctx, SettingInstalled, false)
	require.NoError(t, err)
	assert.True(t, installed)
}

func TestCompleteInstall_FailureRollsBack(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	// occupy the email so the user insert inside the transaction fails
	existing := createTestGroup(t, store, "staff", false)
	require.NoError(t, store.CreateUser(ctx, &User{
		Email: "root@example.com", Name: "Taken", GroupID: existing.ID,
	}))

	group := &Group{Name: "Administrators", IsAdmin: true}
	admin := &User{Email: "root@example.com", Name: "Root", PasswordHash: "hash"}
	err := store.CompleteInstall(ctx, group, admin, "Acme Corp")
	require.ErrorIs(t, err, ErrEmailExists)

	// the group insert from the failed attempt is gone
	groups, err := store.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "staff", groups[0].Name)

	installed, err := store.GetBoolSetting(ctx, SettingInstalled, false)
	require.NoError(t, err)
	assert.False(t, installed)
}
