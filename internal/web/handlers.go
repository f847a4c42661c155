// ABOUTME: HTTP handlers for install, sign-in, MFA, password change, and logout
// ABOUTME: Failure messages and rejected forms travel via one-shot session values

package web

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"image/png"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pquerna/otp"

	"github.com/burrowvpn/burrow-console/internal/auth"
	"github.com/burrowvpn/burrow-console/internal/store"
)

// User-facing failure messages. Credential and MFA failures are
// deliberately unspecific.
const (
	msgInvalidLogin = "Invalid username or password."
	msgInvalidCode  = "Invalid two-factor authentication code."
	msgLoginFailed  = "Sign-in failed. Please try again."
)

// Handler serves the console's authentication pages.
type Handler struct {
	users     store.UserStore
	installer store.InstallStore
	settings  store.SettingStore
	verifier  *auth.Verifier
	mfa       *auth.MfaVerifier
	sessions  *SessionManager
	install   *InstallGate
	oauth     *OAuth2Flow
	logger    *slog.Logger
}

// NewHandler wires the console pages to the auth core and stores.
func NewHandler(
	users store.UserStore,
	installer store.InstallStore,
	settings store.SettingStore,
	verifier *auth.Verifier,
	mfa *auth.MfaVerifier,
	sessions *SessionManager,
	install *InstallGate,
	oauth *OAuth2Flow,
) *Handler {
	return &Handler{
		users:     users,
		installer: installer,
		settings:  settings,
		verifier:  verifier,
		mfa:       mfa,
		sessions:  sessions,
		install:   install,
		oauth:     oauth,
		logger:    slog.Default().With("component", "web"),
	}
}

// bindPrincipal records a successful credential verification in the
// session. MFA confirmation is always cleared; every sign-in passes
// through the MFA stage again.
func bindPrincipal(session *Session, user *store.User, backend string) {
	session.Set(sessionKeyUserID, user.ID)
	session.Set(sessionKeyBackend, backend)
	session.Delete(sessionKeyMfaConfirmed)
}

// failToLogin terminates the current session and sends the browser back to
// the sign-in page carrying a one-shot error.
func (h *Handler) failToLogin(w http.ResponseWriter, r *http.Request, session *Session, message string) {
	if err := h.sessions.Destroy(w, r, session); err != nil {
		h.logger.Error("failed to destroy session", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	session.Set(sessionKeyError, message)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleApp is the landing page behind the full gate chain.
func (h *Handler) handleApp(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)
	if user.PasswordChange {
		http.Redirect(w, r, "/password", http.StatusSeeOther)
		return
	}

	organization, err := h.settings.GetSetting(r.Context(), store.SettingOrganization, "Burrow VPN")
	if err != nil {
		h.logger.Error("failed to read organization setting", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.renderAppPage(w, appData{Organization: organization, User: user})
}

// handleInstallPage shows first-run setup, or bounces to sign-in once the
// install flag is set.
func (h *Handler) handleInstallPage(w http.ResponseWriter, r *http.Request) {
	installed, err := h.install.Installed(r.Context())
	if err != nil {
		h.logger.Error("failed to read install flag", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if installed {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	session := requestSession(r)
	h.renderInstallPage(w, installData{
		Error: session.PopString(sessionKeyError),
		Form:  popFormEcho(session),
	})
}

// handleInstall creates the organization, the administrators group, the
// first account, and the install flag in one transaction, then signs the
// new administrator in. The flag never goes back to false; repeat
// submissions land on the sign-in page.
func (h *Handler) handleInstall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	installed, err := h.install.Installed(ctx)
	if err != nil {
		h.logger.Error("failed to read install flag", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if installed {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	session := requestSession(r)
	form, echo := parseInstallForm(r)
	if echo != nil {
		stashFormEcho(session, echo)
		http.Redirect(w, r, "/install", http.StatusSeeOther)
		return
	}

	hash, err := auth.HashPassword(form.Password)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	group := &store.Group{Name: "Administrators", IsAdmin: true, MaxDevices: 10}
	admin := &store.User{
		Email:        form.Email,
		Name:         form.Name,
		PasswordHash: hash,
	}
	if err := h.installer.CompleteInstall(ctx, group, admin, form.Organization); err != nil {
		h.logger.Error("installation failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// The administrator was created in this same request, so skip
	// credential verification and bind directly. The MFA stage still
	// routes them through enrollment.
	bindPrincipal(session, admin, auth.BackendLocal)

	h.logger.Info("installation completed", "organization", form.Organization, "admin", form.Email)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLoginPage shows the sign-in form.
func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	session := requestSession(r)
	if session.GetString(sessionKeyUserID) != "" && session.GetBool(sessionKeyMfaConfirmed) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	provider, err := h.oauth.Provider(r.Context())
	if err != nil {
		h.logger.Error("failed to read oauth2 settings", "error", err)
		provider = ""
	}
	h.renderLoginPage(w, loginData{
		Error:          session.PopString(sessionKeyError),
		OAuth2Enabled:  provider != "",
		OAuth2Provider: providerLabel(provider),
	})
}

// handleLogin verifies local credentials and binds the account to the
// session. MFA still stands between here and the application.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	session := requestSession(r)
	creds := auth.LocalCredentials{
		Email:    strings.TrimSpace(strings.ToLower(r.PostFormValue("email"))),
		Password: r.PostFormValue("password"),
	}

	user, backend, err := h.verifier.Verify(r.Context(), creds)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.failToLogin(w, r, session, msgInvalidLogin)
			return
		}
		h.logger.Error("credential verification failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	bindPrincipal(session, user, backend)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleOAuth2Start sends the browser to the configured provider. The
// pending marker forces the session row to persist so the callback sees
// the same session ID the state token was bound to.
func (h *Handler) handleOAuth2Start(w http.ResponseWriter, r *http.Request) {
	session := requestSession(r)
	session.Set(sessionKeyOAuth2Pending, true)
	authURL, err := h.oauth.AuthURL(r.Context(), session.ID())
	if err != nil {
		if errors.Is(err, ErrOAuth2Disabled) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		h.logger.Error("failed to build oauth2 auth url", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, authURL, http.StatusSeeOther)
}

// handleOAuth2Callback completes the code exchange and binds the asserted
// account. Any failure lands back on sign-in with a generic message.
func (h *Handler) handleOAuth2Callback(w http.ResponseWriter, r *http.Request) {
	session := requestSession(r)
	session.Delete(sessionKeyOAuth2Pending)
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		h.failToLogin(w, r, session, msgLoginFailed)
		return
	}

	identity, err := h.oauth.Callback(r.Context(), session.ID(), state, code)
	if err != nil {
		h.logger.Warn("oauth2 callback rejected", "error", err)
		h.failToLogin(w, r, session, msgLoginFailed)
		return
	}

	user, backend, err := h.verifier.Verify(r.Context(), auth.FederatedAssertion{
		Email: identity.Email,
		Name:  identity.Name,
	})
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.failToLogin(w, r, session, msgInvalidLogin)
			return
		}
		h.logger.Error("federated verification failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	bindPrincipal(session, user, backend)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogout terminates the session unconditionally.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	session := requestSession(r)
	if err := h.sessions.Destroy(w, r, session); err != nil {
		h.logger.Error("failed to destroy session", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleMfaPage prompts an enrolled user for a code. Users without a
// confirmed secret are sent to setup instead.
func (h *Handler) handleMfaPage(w http.ResponseWriter, r *http.Request) {
	session := requestSession(r)
	user := requestUser(r)

	if session.GetBool(sessionKeyMfaConfirmed) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if h.mfa.State(user) != auth.MfaConfirmed {
		http.Redirect(w, r, "/mfa/setup", http.StatusSeeOther)
		return
	}
	h.renderMfaPage(w, mfaData{Error: session.PopString(sessionKeyError)})
}

// handleMfaSetupPage issues (or re-shows) the pending secret and renders
// the enrollment QR code.
func (h *Handler) handleMfaSetupPage(w http.ResponseWriter, r *http.Request) {
	session := requestSession(r)
	user := requestUser(r)

	if session.GetBool(sessionKeyMfaConfirmed) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if h.mfa.State(user) == auth.MfaConfirmed {
		http.Redirect(w, r, "/mfa", http.StatusSeeOther)
		return
	}

	uri, err := h.mfa.IssueSecret(r.Context(), user)
	if err != nil {
		h.logger.Error("failed to issue mfa secret", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	qr, err := qrDataURL(uri)
	if err != nil {
		h.logger.Error("failed to render mfa qr code", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.renderMfaSetupPage(w, mfaSetupData{
		Error:     session.PopString(sessionKeyError),
		Secret:    user.MfaSecret,
		QRCodeURL: qr,
	})
}

// handleMfaVerify checks the submitted code. A wrong code terminates the
// whole session; the browser starts over at sign-in.
func (h *Handler) handleMfaVerify(w http.ResponseWriter, r *http.Request) {
	session := requestSession(r)
	user := requestUser(r)
	code := strings.TrimSpace(r.PostFormValue("code"))

	err := h.mfa.VerifyCode(r.Context(), user, code, auth.ClientAddr(r))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidMfaCode) {
			h.failToLogin(w, r, session, msgInvalidCode)
			return
		}
		h.logger.Error("mfa verification failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	session.Set(sessionKeyMfaConfirmed, true)
	if user.PasswordChange {
		http.Redirect(w, r, "/password", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handlePasswordPage shows the forced password change form.
func (h *Handler) handlePasswordPage(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)
	if !user.PasswordChange {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	session := requestSession(r)
	h.renderPasswordPage(w, passwordData{
		Error: session.PopString(sessionKeyError),
		Form:  popFormEcho(session),
	})
}

// handlePassword applies the new password and clears the forced-change
// flag.
func (h *Handler) handlePassword(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)
	if !user.PasswordChange {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	session := requestSession(r)
	form, echo := parsePasswordForm(r)
	if echo != nil {
		stashFormEcho(session, echo)
		http.Redirect(w, r, "/password", http.StatusSeeOther)
		return
	}

	hash, err := auth.HashPassword(form.Password)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if err := h.users.UpdateUserPassword(r.Context(), user.ID, hash, false); err != nil {
		h.logger.Error("failed to update password", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// Re-bind so the session reflects the refreshed credentials; the MFA
	// confirmation earned this session carries over.
	bindPrincipal(session, user, session.GetString(sessionKeyBackend))
	session.Set(sessionKeyMfaConfirmed, true)

	h.logger.Info("password changed", "user_id", user.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// qrDataURL renders the otpauth URI as an inline PNG QR code.
func qrDataURL(uri string) (template.URL, error) {
	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		return "", fmt.Errorf("parsing otpauth uri: %w", err)
	}
	img, err := key.Image(200, 200)
	if err != nil {
		return "", fmt.Errorf("rendering qr code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encoding qr png: %w", err)
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

// providerLabel maps a provider key to the name shown on the sign-in
// button.
func providerLabel(provider string) string {
	switch provider {
	case "google":
		return "Google"
	case "github":
		return "GitHub"
	default:
		return provider
	}
}
