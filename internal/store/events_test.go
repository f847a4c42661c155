// ABOUTME: Tests for the append-only event store
// ABOUTME: Covers Create and List with name/user/search filters

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventStore_Create(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	event := &Event{
		Name:   EventWebLogin,
		UserID: "user-123",
		Detail: "Logged in to web application from 10.0.0.1.",
	}

	err := store.CreateEvent(ctx, event)
	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestEventStore_List_ByName(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Minute)
	names := []string{EventWebLogin, EventWebError, EventWebLogin}
	for i, name := range names {
		require.NoError(t, store.CreateEvent(ctx, &Event{
			Name:      name,
			UserID:    "user-123",
			Detail:    "detail",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	events, err := store.ListEvents(ctx, EventFilter{Name: EventWebLogin})
	require.NoError(t, err)
	assert.Len(t, events, 2)

	all, err := store.ListEvents(ctx, EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest first
	assert.Equal(t, EventWebLogin, all[0].Name)
}

func TestEventStore_List_Search(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateEvent(ctx, &Event{Name: EventWebError, Detail: "Incorrect two-factor authentication code"}))
	require.NoError(t, store.CreateEvent(ctx, &Event{Name: EventWebLogin, Detail: "Logged in from 10.0.0.1."}))

	events, err := store.ListEvents(ctx, EventFilter{Search: "two-factor"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventWebError, events[0].Name)
	assert.Empty(t, events[0].UserID)
}
