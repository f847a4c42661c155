// ABOUTME: Assembles the console's routes with their gate stages
// ABOUTME: Each route declares the strongest stage it needs; earlier stages are implied

package web

import (
	"log/slog"
	"net/http"

	"github.com/burrowvpn/burrow-console/internal/auth"
	"github.com/burrowvpn/burrow-console/internal/store"
)

// Console is the authenticated front door of the management application.
type Console struct {
	handler *Handler
	gates   *gatekeeper
}

// Options carries the collaborators the console needs.
type Options struct {
	Users     store.UserStore
	Installer store.InstallStore
	Settings  store.SettingStore
	Verifier  *auth.Verifier
	Mfa       *auth.MfaVerifier
	Sessions  *SessionManager
	OAuth     *OAuth2Flow
}

// NewConsole builds the console from its collaborators.
func NewConsole(opts Options) *Console {
	install := NewInstallGate(opts.Settings)
	return &Console{
		handler: NewHandler(
			opts.Users, opts.Installer, opts.Settings,
			opts.Verifier, opts.Mfa, opts.Sessions, install, opts.OAuth,
		),
		gates: &gatekeeper{
			install:  install,
			sessions: opts.Sessions,
			users:    opts.Users,
			logger:   slog.Default().With("component", "gates"),
		},
	}
}

// RegisterRoutes attaches the console pages to the mux.
//
// The install pages carry no stages; they gate themselves on the install
// flag so a completed installation cannot be repeated. Everything else
// requires at least a completed installation, and the landing and
// password pages require the full chain.
func (c *Console) RegisterRoutes(mux *http.ServeMux) {
	h, g := c.handler, c.gates

	mux.HandleFunc("GET /{$}", g.protect(h.handleApp, StageMFA))

	mux.HandleFunc("GET /install", g.protect(h.handleInstallPage))
	mux.HandleFunc("POST /install", g.protect(h.handleInstall))

	mux.HandleFunc("GET /login", g.protect(h.handleLoginPage, StageInstall))
	mux.HandleFunc("POST /login", g.protect(h.handleLogin, StageInstall))
	mux.HandleFunc("POST /login/oauth2", g.protect(h.handleOAuth2Start, StageInstall))
	mux.HandleFunc("GET /login/oauth2/callback", g.protect(h.handleOAuth2Callback, StageInstall))
	mux.HandleFunc("POST /logout", g.protect(h.handleLogout, StageInstall))

	mux.HandleFunc("GET /mfa", g.protect(h.handleMfaPage, StageCredentials))
	mux.HandleFunc("POST /mfa", g.protect(h.handleMfaVerify, StageCredentials))
	mux.HandleFunc("GET /mfa/setup", g.protect(h.handleMfaSetupPage, StageCredentials))

	mux.HandleFunc("GET /password", g.protect(h.handlePasswordPage, StageMFA))
	mux.HandleFunc("POST /password", g.protect(h.handlePassword, StageMFA))
}
