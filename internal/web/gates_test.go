// ABOUTME: Tests for the install flag and the ordered gate chain
// ABOUTME: Exercises stage redirects through the real route table

package web

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStages(t *testing.T) {
	assert.Empty(t, normalizeStages(nil))
	assert.Equal(t, []Stage{StageInstall}, normalizeStages([]Stage{StageInstall}))
	assert.Equal(t,
		[]Stage{StageInstall, StageCredentials},
		normalizeStages([]Stage{StageCredentials}))
	assert.Equal(t,
		[]Stage{StageInstall, StageCredentials, StageMFA},
		normalizeStages([]Stage{StageMFA}))
	// duplicates and out-of-order declarations collapse
	assert.Equal(t,
		[]Stage{StageInstall, StageCredentials, StageMFA},
		normalizeStages([]Stage{StageMFA, StageInstall, StageMFA}))
}

func TestInstallGate_FlagNeverResets(t *testing.T) {
	f := newConsoleFixture(t)
	gate := NewInstallGate(f.mock)
	ctx := t.Context()

	installed, err := gate.Installed(ctx)
	require.NoError(t, err)
	assert.False(t, installed)

	require.NoError(t, gate.MarkInstalled(ctx))
	require.NoError(t, gate.MarkInstalled(ctx))

	installed, err = gate.Installed(ctx)
	require.NoError(t, err)
	assert.True(t, installed)
}

func TestGates_EverythingRedirectsToInstallFirst(t *testing.T) {
	f := newConsoleFixture(t)

	for _, path := range []string{"/", "/login", "/mfa", "/mfa/setup", "/password"} {
		rec := f.get(path)
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/install", rec.Header().Get("Location"), path)
	}
}

func TestGates_CredentialsRequired(t *testing.T) {
	f := newConsoleFixture(t)
	f.markInstalled()

	for _, path := range []string{"/", "/mfa", "/mfa/setup", "/password"} {
		rec := f.get(path)
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/login", rec.Header().Get("Location"), path)
	}
}

func TestGates_MfaStageRoutesByEnrollment(t *testing.T) {
	f := newConsoleFixture(t)
	f.markInstalled()

	f.createUser("fresh@example.com", "hunter2hunter2", false)
	f.login("fresh@example.com", "hunter2hunter2")
	rec := f.get("/")
	assert.Equal(t, "/mfa/setup", rec.Header().Get("Location"))

	f.resetClient()
	f.createUser("enrolled@example.com", "hunter2hunter2", true)
	f.login("enrolled@example.com", "hunter2hunter2")
	rec = f.get("/")
	assert.Equal(t, "/mfa", rec.Header().Get("Location"))
}

func TestGates_StaleUserBindingFallsBackToLogin(t *testing.T) {
	f := newConsoleFixture(t)
	f.markInstalled()

	user := f.createUser("gone@example.com", "hunter2hunter2", false)
	f.login("gone@example.com", "hunter2hunter2")
	require.NoError(t, f.mock.DeleteUser(t.Context(), user.ID))

	rec := f.get("/")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}
