// ABOUTME: Tests for session one-shot values and manager load/save/destroy
// ABOUTME: Runs against the in-memory mock session store

package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burrowvpn/burrow-console/internal/store"
)

func newSessionFixture() (*store.MockStore, *SessionManager) {
	mock := store.NewMockStore()
	return mock, NewSessionManager(mock, time.Hour)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == SessionCookieName {
			return cookie
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestSession_PopIsOneShot(t *testing.T) {
	session := &Session{values: map[string]any{}}
	session.Set(sessionKeyError, "Invalid username or password.")

	assert.Equal(t, "Invalid username or password.", session.PopString(sessionKeyError))
	assert.Empty(t, session.PopString(sessionKeyError))
}

func TestSession_GetDoesNotConsume(t *testing.T) {
	session := &Session{values: map[string]any{}}
	session.Set(sessionKeyUserID, "u1")

	assert.Equal(t, "u1", session.GetString(sessionKeyUserID))
	assert.Equal(t, "u1", session.GetString(sessionKeyUserID))
}

func TestSessionManager_LoadCreatesWhenMissing(t *testing.T) {
	_, manager := newSessionFixture()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	session, err := manager.Load(rec, req)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID())

	cookie := sessionCookie(t, rec)
	assert.Equal(t, session.ID(), cookie.Value)
	assert.True(t, cookie.HttpOnly)
}

func TestSessionManager_RoundTrip(t *testing.T) {
	_, manager := newSessionFixture()
	ctx := context.Background()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	session, err := manager.Load(rec, req)
	require.NoError(t, err)

	session.Set(sessionKeyUserID, "u1")
	require.NoError(t, manager.Save(ctx, session))

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(sessionCookie(t, rec))
	reloaded, err := manager.Load(httptest.NewRecorder(), req2)
	require.NoError(t, err)

	assert.Equal(t, session.ID(), reloaded.ID())
	assert.Equal(t, "u1", reloaded.GetString(sessionKeyUserID))
}

func TestSessionManager_SaveSkipsCleanSessions(t *testing.T) {
	mock, manager := newSessionFixture()
	ctx := context.Background()

	session, err := manager.Load(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NoError(t, manager.Save(ctx, session))

	_, err = mock.GetWebSession(ctx, session.ID())
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestSessionManager_DestroyResetsInPlace(t *testing.T) {
	mock, manager := newSessionFixture()
	ctx := context.Background()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	session, err := manager.Load(rec, req)
	require.NoError(t, err)
	session.Set(sessionKeyUserID, "u1")
	require.NoError(t, manager.Save(ctx, session))
	oldID := session.ID()

	require.NoError(t, manager.Destroy(rec, req, session))

	assert.NotEqual(t, oldID, session.ID())
	assert.Empty(t, session.GetString(sessionKeyUserID))
	_, err = mock.GetWebSession(ctx, oldID)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	// the fresh session persists whatever the caller stashes next
	session.Set(sessionKeyError, "gone")
	require.NoError(t, manager.Save(ctx, session))
	record, err := mock.GetWebSession(ctx, session.ID())
	require.NoError(t, err)
	assert.Equal(t, "gone", record.Values[sessionKeyError])
}

func TestSessionManager_UnknownTokenGetsFreshSession(t *testing.T) {
	_, manager := newSessionFixture()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "deadbeef"})

	session, err := manager.Load(rec, req)
	require.NoError(t, err)
	assert.NotEqual(t, "deadbeef", session.ID())
	assert.Equal(t, session.ID(), sessionCookie(t, rec).Value)
}
