// ABOUTME: End-to-end page flow tests through the real route table
// ABOUTME: Covers install, sign-in, MFA enrollment and mismatch, and password change

package web

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burrowvpn/burrow-console/internal/auth"
	"github.com/burrowvpn/burrow-console/internal/store"
)

// testSecret is a fixed base32 TOTP secret for enrolled test users.
const testSecret = "JBSWY3DPEHPK3PXP"

type consoleFixture struct {
	t      *testing.T
	mock   *store.MockStore
	mux    *http.ServeMux
	cookie *http.Cookie
}

func newConsoleFixture(t *testing.T) *consoleFixture {
	t.Helper()
	mock := store.NewMockStore()

	sessions := NewSessionManager(mock, time.Hour)
	verifier := auth.NewVerifier(mock, mock)
	recorder := auth.NewRecorder(mock)
	mfa := auth.NewMfaVerifier(mock, recorder, "Burrow Test")
	signer := auth.NewStateSigner([]byte("test-state-secret"))
	oauth := NewOAuth2Flow(mock, signer, "http://console.test")

	console := NewConsole(Options{
		Users:     mock,
		Installer: mock,
		Settings:  mock,
		Verifier:  verifier,
		Mfa:       mfa,
		Sessions:  sessions,
		OAuth:     oauth,
	})
	mux := http.NewServeMux()
	console.RegisterRoutes(mux)

	return &consoleFixture{t: t, mock: mock, mux: mux}
}

// do issues a request carrying the fixture's session cookie and keeps the
// cookie the response hands back, like a browser would.
func (f *consoleFixture) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	f.t.Helper()

	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if f.cookie != nil {
		req.AddCookie(f.cookie)
	}

	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == SessionCookieName {
			f.cookie = cookie
		}
	}
	return rec
}

func (f *consoleFixture) get(path string) *httptest.ResponseRecorder {
	return f.do(http.MethodGet, path, nil)
}

func (f *consoleFixture) post(path string, form url.Values) *httptest.ResponseRecorder {
	return f.do(http.MethodPost, path, form)
}

// resetClient drops the cookie, simulating a different browser.
func (f *consoleFixture) resetClient() { f.cookie = nil }

func (f *consoleFixture) markInstalled() {
	f.t.Helper()
	require.NoError(f.t, f.mock.SetBoolSetting(f.t.Context(), store.SettingInstalled, true))
}

func (f *consoleFixture) createUser(email, password string, enrolled bool) *store.User {
	f.t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(f.t, err)
	user := &store.User{Email: email, Name: "Test User", PasswordHash: hash}
	if enrolled {
		user.MfaSecret = testSecret
		user.MfaEnabled = true
	}
	require.NoError(f.t, f.mock.CreateUser(f.t.Context(), user))
	return user
}

func (f *consoleFixture) login(email, password string) {
	f.t.Helper()
	rec := f.post("/login", url.Values{"email": {email}, "password": {password}})
	require.Equal(f.t, http.StatusSeeOther, rec.Code)
	require.Equal(f.t, "/", rec.Header().Get("Location"))
}

func (f *consoleFixture) currentCode(secret string) string {
	f.t.Helper()
	code, err := totp.GenerateCode(secret, time.Now().UTC())
	require.NoError(f.t, err)
	return code
}

func TestInstall_FullFlow(t *testing.T) {
	f := newConsoleFixture(t)
	ctx := t.Context()

	rec := f.get("/install")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.post("/install", url.Values{
		"organization":     {"Acme Corp"},
		"name":             {"Ada Admin"},
		"email":            {"ada@acme.test"},
		"password":         {"correct horse battery"},
		"confirm_password": {"correct horse battery"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	installed, err := f.mock.GetBoolSetting(ctx, store.SettingInstalled, false)
	require.NoError(t, err)
	assert.True(t, installed)

	org, err := f.mock.GetSetting(ctx, store.SettingOrganization, "")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", org)

	admin, err := f.mock.GetUserByEmail(ctx, "ada@acme.test")
	require.NoError(t, err)
	group, err := f.mock.GetGroup(ctx, admin.GroupID)
	require.NoError(t, err)
	assert.True(t, group.IsAdmin)

	// the new administrator is already signed in; MFA enrollment is next
	rec = f.get("/")
	assert.Equal(t, "/mfa/setup", rec.Header().Get("Location"))

	// a fresh browser signs in with the password chosen at install
	f.resetClient()
	f.login("ada@acme.test", "correct horse battery")
}

func TestInstall_CompletedInstallCannotRepeat(t *testing.T) {
	f := newConsoleFixture(t)
	f.markInstalled()

	rec := f.get("/install")
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = f.post("/install", url.Values{
		"organization":     {"Evil Corp"},
		"name":             {"Mallory"},
		"email":            {"mallory@evil.test"},
		"password":         {"password123"},
		"confirm_password": {"password123"},
	})
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	_, err := f.mock.GetUserByEmail(t.Context(), "mallory@evil.test")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestInstall_RejectedFormEchoesOnce(t *testing.T) {
	f := newConsoleFixture(t)

	rec := f.post("/install", url.Values{
		"organization":     {"Acme Corp"},
		"name":             {"Ada Admin"},
		"email":            {"ada@acme.test"},
		"password":         {"one password"},
		"confirm_password": {"another password"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/install", rec.Header().Get("Location"))

	rec = f.get("/install")
	assert.Contains(t, rec.Body.String(), "ada@acme.test")
	assert.Contains(t, rec.Body.String(), "Passwords do not match.")

	// a refresh renders a clean form
	rec = f.get("/install")
	assert.NotContains(t, rec.Body.String(), "ada@acme.test")
	assert.NotContains(t, rec.Body.String(), "Passwords do not match.")
}

func TestLogin_BadCredentialsShowOneShotError(t *testing.T) {
	f := newConsoleFixture(t)
	f.markInstalled()
	f.createUser("user@example.com", "hunter2hunter2", false)

	rec := f.post("/login", url.Values{
		"email":    {"user@example.com"},
		"password": {"wrong"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = f.get("/login")
	assert.Contains(t, rec.Body.String(), "Invalid username or password.")
	rec = f.get("/login")
	assert.NotContains(t, rec.Body.String(), "Invalid username or password.")
}

func TestLogin_UnknownAccountGetsSameError(t *testing.T) {
	f := newConsoleFixture(t)
	f.markInstalled()

	rec := f.post("/login", url.Values{
		"email":    {"nobody@example.com"},
		"password": {"whatever"},
	})
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	rec = f.get("/login")
	assert.Contains(t, rec.Body.String(), "Invalid username or password.")
}

func TestLogin_FailedAttemptTerminatesExistingSession(t *testing.T) {
	f := newConsoleFixture(t)
	f.markInstalled()
	f.createUser("enrolled@example.com", "hunter2hunter2", true)
	f.login("enrolled@example.com", "hunter2hunter2")
	rec := f.post("/mfa", url.Values{"code": {f.currentCode(testSecret)}})
	require.Equal(t, "/", rec.Header().Get("Location"))

	// a wrong password on a signed-in browser logs the session out
	rec = f.post("/login", url.Values{
		"email":    {"enrolled@example.com"},
		"password": {"wrong"},
	})
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = f.get("/")
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestOAuth2_CallbackFailureTerminatesExistingSession(t *testing.T) {
	f := newConsoleFixture(t)
	f.markInstalled()
	f.createUser("enrolled@example.com", "hunter2hunter2", true)
	f.login("enrolled@example.com", "hunter2hunter2")
	rec := f.post("/mfa", url.Values{"code": {f.currentCode(testSecret)}})
	require.Equal(t, "/", rec.Header().Get("Location"))

	rec = f.get("/login/oauth2/callback?state=bogus&code=bogus")
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = f.get("/")
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestMfa_EnrollmentFlow(t *testing.T) {
	f := newConsoleFixture(t)
	f.markInstalled()
	user := f.createUser("fresh@example.com", "hunter2hunter2", false)
	f.login("fresh@example.com", "hunter2hunter2")

	rec := f.get("/mfa/setup")
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := f.mock.GetUser(t.Context(), user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, stored.MfaSecret)
	assert.False(t, stored.MfaEnabled)
	assert.Contains(t, rec.Body.String(), stored.MfaSecret)

	// reloading the page keeps the pending secret stable
	rec = f.get("/mfa/setup")
	assert.Contains(t, rec.Body.String(), stored.MfaSecret)

	rec = f.post("/mfa", url.Values{"code": {f.currentCode(stored.MfaSecret)}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	stored, err = f.mock.GetUser(t.Context(), user.ID)
	require.NoError(t, err)
	assert.True(t, stored.MfaEnabled)

	rec = f.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)

	events := f.mock.Events()
	require.Len(t, events, 1)
	assert.Equal(t, store.EventWebLogin, events[0].Name)
	assert.Equal(t, user.ID, events[0].UserID)
	assert.Contains(t, events[0].Detail, "Logged in to web application from")
}

func TestMfa_EnrolledUserSignsIn(t *testing.T) {
	f := newConsoleFixture(t)
	f.markInstalled()
	f.createUser("enrolled@example.com", "hunter2hunter2", true)
	f.login("enrolled@example.com", "hunter2hunter2")

	rec := f.get("/mfa")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.post("/mfa", url.Values{"code": {f.currentCode(testSecret)}})
	assert.Equal(t, "/", rec.Header().Get("Location"))
	rec = f.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMfa_MismatchTerminatesWholeSession(t *testing.T) {
	f := newConsoleFixture(t)
	f.markInstalled()
	user := f.createUser("enrolled@example.com", "hunter2hunter2", true)
	f.login("enrolled@example.com", "hunter2hunter2")

	rec := f.post("/mfa", url.Values{"code": {"000000"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	// the credential binding is gone, not just the MFA stage
	rec = f.get("/")
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = f.get("/login")
	assert.Contains(t, rec.Body.String(), "Invalid two-factor authentication code.")

	events := f.mock.Events()
	require.Len(t, events, 1)
	assert.Equal(t, store.EventWebError, events[0].Name)
	assert.Equal(t, user.ID, events[0].UserID)
	assert.Equal(t, "Incorrect two-factor authentication code", events[0].Detail)
}

func TestPassword_ForcedChangeFlow(t *testing.T) {
	f := newConsoleFixture(t)
	f.markInstalled()
	user := f.createUser("reset@example.com", "old password 123", true)
	require.NoError(t, f.mock.UpdateUserPassword(t.Context(), user.ID, user.PasswordHash, true))

	f.login("reset@example.com", "old password 123")
	rec := f.post("/mfa", url.Values{"code": {f.currentCode(testSecret)}})
	assert.Equal(t, "/password", rec.Header().Get("Location"))

	// the landing page keeps bouncing until the password changes
	rec = f.get("/")
	assert.Equal(t, "/password", rec.Header().Get("Location"))

	rec = f.post("/password", url.Values{
		"password":         {"brand new password"},
		"confirm_password": {"brand new password"},
	})
	assert.Equal(t, "/", rec.Header().Get("Location"))

	stored, err := f.mock.GetUser(t.Context(), user.ID)
	require.NoError(t, err)
	assert.False(t, stored.PasswordChange)

	rec = f.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPassword_ShortPasswordEchoesError(t *testing.T) {
	f := newConsoleFixture(t)
	f.markInstalled()
	user := f.createUser("reset@example.com", "old password 123", true)
	require.NoError(t, f.mock.UpdateUserPassword(t.Context(), user.ID, user.PasswordHash, true))
	f.login("reset@example.com", "old password 123")
	f.post("/mfa", url.Values{"code": {f.currentCode(testSecret)}})

	rec := f.post("/password", url.Values{
		"password":         {"short"},
		"confirm_password": {"short"},
	})
	assert.Equal(t, "/password", rec.Header().Get("Location"))

	rec = f.get("/password")
	assert.Contains(t, rec.Body.String(), "Password must be at least 8 characters.")
}

func TestLogout_DestroysSession(t *testing.T) {
	f := newConsoleFixture(t)
	f.markInstalled()
	f.createUser("enrolled@example.com", "hunter2hunter2", true)
	f.login("enrolled@example.com", "hunter2hunter2")
	f.post("/mfa", url.Values{"code": {f.currentCode(testSecret)}})
	require.Equal(t, http.StatusOK, f.get("/").Code)

	rec := f.post("/logout", nil)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = f.get("/")
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestLoginPage_ConfirmedSessionSkipsForm(t *testing.T) {
	f := newConsoleFixture(t)
	f.markInstalled()
	f.createUser("enrolled@example.com", "hunter2hunter2", true)
	f.login("enrolled@example.com", "hunter2hunter2")
	f.post("/mfa", url.Values{"code": {f.currentCode(testSecret)}})

	rec := f.get("/login")
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestOAuth2_ButtonHiddenWithoutConfiguration(t *testing.T) {
	f := newConsoleFixture(t)
	f.markInstalled()

	rec := f.get("/login")
	assert.NotContains(t, rec.Body.String(), "/login/oauth2")

	require.NoError(t, f.mock.SetSetting(t.Context(), SettingOAuth2Provider, "google"))
	require.NoError(t, f.mock.SetSetting(t.Context(), SettingOAuth2ClientID, "client-id"))

	rec = f.get("/login")
	assert.Contains(t, rec.Body.String(), "Sign in with Google")
}

func TestOAuth2_CallbackWithBogusStateFails(t *testing.T) {
	f := newConsoleFixture(t)
	f.markInstalled()
	require.NoError(t, f.mock.SetSetting(t.Context(), SettingOAuth2Provider, "google"))
	require.NoError(t, f.mock.SetSetting(t.Context(), SettingOAuth2ClientID, "client-id"))

	rec := f.get("/login/oauth2/callback?state=forged&code=whatever")
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	rec = f.get("/login")
	assert.Contains(t, rec.Body.String(), "Sign-in failed. Please try again.")
}

func TestOAuth2_StartRedirectsToProvider(t *testing.T) {
	f := newConsoleFixture(t)
	f.markInstalled()
	require.NoError(t, f.mock.SetSetting(t.Context(), SettingOAuth2Provider, "google"))
	require.NoError(t, f.mock.SetSetting(t.Context(), SettingOAuth2ClientID, "client-id"))
	require.NoError(t, f.mock.SetSetting(t.Context(), SettingOAuth2ClientSecret, "client-secret"))

	rec := f.post("/login/oauth2", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	location := rec.Header().Get("Location")
	assert.Contains(t, location, "accounts.google.com")
	assert.Contains(t, location, "state=")
	assert.Contains(t, location, url.QueryEscape("http://console.test/login/oauth2/callback"))
}
