// ABOUTME: Template rendering functions for the console pages
// ABOUTME: Loads templates from embedded filesystem and renders them

package web

import (
	"html/template"
	"net/http"

	"github.com/burrowvpn/burrow-console/internal/store"
)

// Template data types
type loginData struct {
	Title          string
	Error          string
	OAuth2Enabled  bool
	OAuth2Provider string
}

type installData struct {
	Title string
	Error string
	Form  *FormEcho
}

type mfaData struct {
	Title string
	Error string
}

type mfaSetupData struct {
	Title     string
	Error     string
	Secret    string
	QRCodeURL template.URL
}

type passwordData struct {
	Title string
	Error string
	Form  *FormEcho
}

type appData struct {
	Title        string
	Organization string
	User         *store.User
}

// renderLoginPage renders the sign-in page
func (h *Handler) renderLoginPage(w http.ResponseWriter, data loginData) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/login.html"))

	data.Title = "Sign in"
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to render login page", "error", err)
	}
}

// renderInstallPage renders the first-run setup page
func (h *Handler) renderInstallPage(w http.ResponseWriter, data installData) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/install.html"))

	data.Title = "Install"
	if data.Form == nil {
		data.Form = &FormEcho{Data: map[string]string{}, Errors: map[string]string{}}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to render install page", "error", err)
	}
}

// renderMfaPage renders the code prompt for users with MFA already enabled
func (h *Handler) renderMfaPage(w http.ResponseWriter, data mfaData) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/mfa.html"))

	data.Title = "Two-factor authentication"
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to render mfa page", "error", err)
	}
}

// renderMfaSetupPage renders the enrollment page with secret and QR code
func (h *Handler) renderMfaSetupPage(w http.ResponseWriter, data mfaSetupData) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/mfa_setup.html"))

	data.Title = "Set up two-factor authentication"
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to render mfa setup page", "error", err)
	}
}

// renderPasswordPage renders the forced password change page
func (h *Handler) renderPasswordPage(w http.ResponseWriter, data passwordData) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/password.html"))

	data.Title = "Change password"
	if data.Form == nil {
		data.Form = &FormEcho{Data: map[string]string{}, Errors: map[string]string{}}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to render password page", "error", err)
	}
}

// renderAppPage renders the landing page behind the full gate chain
func (h *Handler) renderAppPage(w http.ResponseWriter, data appData) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/app.html"))

	data.Title = data.Organization
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to render app page", "error", err)
	}
}
