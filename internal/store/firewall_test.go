// ABOUTME: Tests for firewall rule store operations against real SQLite
// ABOUTME: Covers CRUD, group filtering, and not-found errors

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirewall_CreateAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, "staff", false)

	rule := &FirewallRule{
		GroupID:     group.ID,
		Action:      RuleActionAllow,
		Protocol:    "tcp",
		Destination: "10.0.0.0/24",
		Port:        "443",
	}
	require.NoError(t, store.CreateFirewallRule(ctx, rule))
	assert.NotEmpty(t, rule.ID)
	assert.False(t, rule.CreatedAt.IsZero())

	retrieved, err := store.GetFirewallRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, RuleActionAllow, retrieved.Action)
	assert.Equal(t, "10.0.0.0/24", retrieved.Destination)
	assert.Equal(t, "443", retrieved.Port)
}

func TestFirewall_ListByGroup(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	staff := createTestGroup(t, store, "staff", false)
	admins := createTestGroup(t, store, "admins", true)

	require.NoError(t, store.CreateFirewallRule(ctx, &FirewallRule{
		GroupID: staff.ID, Action: RuleActionAllow, Destination: "10.0.0.1",
	}))
	require.NoError(t, store.CreateFirewallRule(ctx, &FirewallRule{
		GroupID: admins.ID, Action: RuleActionDeny, Destination: "10.0.0.2",
	}))

	all, err := store.ListFirewallRules(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := store.ListFirewallRules(ctx, staff.ID)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "10.0.0.1", scoped[0].Destination)
}

func TestFirewall_Update(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, "staff", false)

	rule := &FirewallRule{GroupID: group.ID, Action: RuleActionAllow, Destination: "10.0.0.0/16"}
	require.NoError(t, store.CreateFirewallRule(ctx, rule))

	rule.Action = RuleActionDeny
	rule.Port = "22"
	require.NoError(t, store.UpdateFirewallRule(ctx, rule))

	retrieved, err := store.GetFirewallRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, RuleActionDeny, retrieved.Action)
	assert.Equal(t, "22", retrieved.Port)
}

func TestFirewall_NotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.GetFirewallRule(ctx, "nope")
	assert.ErrorIs(t, err, ErrRuleNotFound)

	err = store.UpdateFirewallRule(ctx, &FirewallRule{ID: "nope"})
	assert.ErrorIs(t, err, ErrRuleNotFound)

	err = store.DeleteFirewallRule(ctx, "nope")
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestFirewall_Delete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	group := createTestGroup(t, store, "staff", false)

	rule := &FirewallRule{GroupID: group.ID, Action: RuleActionAllow, Destination: "0.0.0.0/0"}
	require.NoError(t, store.CreateFirewallRule(ctx, rule))
	require.NoError(t, store.DeleteFirewallRule(ctx, rule.ID))

	_, err := store.GetFirewallRule(ctx, rule.ID)
	assert.ErrorIs(t, err, ErrRuleNotFound)
}
