// ABOUTME: Admin API handlers for application settings and the mail test
// ABOUTME: Only a fixed allowlist of keys is readable and writable

package webapi

import (
	"net/http"
	"net/mail"

	"github.com/burrowvpn/burrow-console/internal/auth"
	mailpkg "github.com/burrowvpn/burrow-console/internal/mail"
	"github.com/burrowvpn/burrow-console/internal/store"
	"github.com/burrowvpn/burrow-console/internal/web"
)

// editableSettings is the closed set of keys the settings endpoints
// expose. The install flag is deliberately absent; it is never editable.
var editableSettings = []string{
	store.SettingOrganization,

	web.SettingOAuth2Provider,
	web.SettingOAuth2ClientID,
	web.SettingOAuth2ClientSecret,
	auth.SettingOAuth2Domain,
	auth.SettingOAuth2DefaultGroup,

	mailpkg.SettingMailHost,
	mailpkg.SettingMailPort,
	mailpkg.SettingMailUsername,
	mailpkg.SettingMailPassword,
	mailpkg.SettingMailFrom,
}

func settingEditable(key string) bool {
	for _, allowed := range editableSettings {
		if key == allowed {
			return true
		}
	}
	return false
}

func (a *API) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	values, err := a.store.GetSettings(r.Context(), editableSettings)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, values)
}

func (a *API) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := decode(r, &req); err != nil {
		a.badRequest(w, "invalid request body")
		return
	}
	for key := range req {
		if !settingEditable(key) {
			a.badRequest(w, "unknown setting: "+key)
			return
		}
	}

	for key, value := range req {
		if err := a.store.SetSetting(r.Context(), key, value); err != nil {
			a.writeError(w, err)
			return
		}
	}

	a.logger.Info("settings updated", "count", len(req), "actor", web.UserFromRequest(r).ID)
	values, err := a.store.GetSettings(r.Context(), editableSettings)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, values)
}

type mailTestRequest struct {
	To string `json:"to"`
}

// handleMailTest sends a probe message so admins can verify relay
// settings. Defaults to the caller's own address.
func (a *API) handleMailTest(w http.ResponseWriter, r *http.Request) {
	var req mailTestRequest
	if err := decode(r, &req); err != nil {
		a.badRequest(w, "invalid request body")
		return
	}
	if req.To == "" {
		req.To = web.UserFromRequest(r).Email
	}
	if _, err := mail.ParseAddress(req.To); err != nil {
		a.badRequest(w, "a valid recipient is required")
		return
	}

	msg := mailpkg.Message{
		To:      req.To,
		Subject: "Burrow Console mail test",
		Body:    "This is a test message from your VPN management console. Mail delivery is working.\n",
	}
	if err := a.mail.Send(r.Context(), msg); err != nil {
		a.writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "sent", "to": req.To})
}
