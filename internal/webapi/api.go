// ABOUTME: Admin JSON API served behind the web console's gate chain
// ABOUTME: Route registration and the shared request/response helpers

package webapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/burrowvpn/burrow-console/internal/auth"
	"github.com/burrowvpn/burrow-console/internal/mail"
	"github.com/burrowvpn/burrow-console/internal/store"
	"github.com/burrowvpn/burrow-console/internal/vpn"
	"github.com/burrowvpn/burrow-console/internal/web"
)

// Store is the persistence surface the admin API needs.
type Store interface {
	store.UserStore
	store.GroupStore
	store.EventStore
	store.FirewallStore
	store.DeviceStore
	store.SettingStore
}

// API implements the /api/admin endpoints.
type API struct {
	store  Store
	mfa    *auth.MfaVerifier
	vpn    vpn.Controller
	mail   mail.Sender
	logger *slog.Logger
}

// New creates the admin API.
func New(s Store, mfa *auth.MfaVerifier, controller vpn.Controller, sender mail.Sender) *API {
	return &API{
		store:  s,
		mfa:    mfa,
		vpn:    controller,
		mail:   sender,
		logger: slog.Default().With("component", "webapi"),
	}
}

// RegisterRoutes attaches the API under /api/admin. Every route passes
// through the console's admin gate.
func (a *API) RegisterRoutes(mux *http.ServeMux, console *web.Console) {
	admin := console.RequireAdmin(a.store)

	mux.HandleFunc("GET /api/admin/users", admin(a.handleListUsers))
	mux.HandleFunc("POST /api/admin/users", admin(a.handleCreateUser))
	mux.HandleFunc("GET /api/admin/users/{id}", admin(a.handleGetUser))
	mux.HandleFunc("PUT /api/admin/users/{id}", admin(a.handleUpdateUser))
	mux.HandleFunc("DELETE /api/admin/users/{id}", admin(a.handleDeleteUser))
	mux.HandleFunc("POST /api/admin/users/{id}/mfa/reset", admin(a.handleResetUserMFA))
	mux.HandleFunc("GET /api/admin/users/{id}/devices", admin(a.handleListUserDevices))

	mux.HandleFunc("GET /api/admin/groups", admin(a.handleListGroups))
	mux.HandleFunc("POST /api/admin/groups", admin(a.handleCreateGroup))
	mux.HandleFunc("PUT /api/admin/groups/{id}", admin(a.handleUpdateGroup))
	mux.HandleFunc("DELETE /api/admin/groups/{id}", admin(a.handleDeleteGroup))

	mux.HandleFunc("GET /api/admin/firewall", admin(a.handleListFirewallRules))
	mux.HandleFunc("POST /api/admin/firewall", admin(a.handleCreateFirewallRule))
	mux.HandleFunc("PUT /api/admin/firewall/{id}", admin(a.handleUpdateFirewallRule))
	mux.HandleFunc("DELETE /api/admin/firewall/{id}", admin(a.handleDeleteFirewallRule))

	mux.HandleFunc("GET /api/admin/clients", admin(a.handleListClients))
	mux.HandleFunc("DELETE /api/admin/clients/{id}", admin(a.handleDisconnectClient))

	mux.HandleFunc("GET /api/admin/events", admin(a.handleListEvents))

	mux.HandleFunc("GET /api/admin/vpn", admin(a.handleVPNStatus))
	mux.HandleFunc("POST /api/admin/vpn/{action}", admin(a.handleVPNControl))

	mux.HandleFunc("GET /api/admin/settings", admin(a.handleGetSettings))
	mux.HandleFunc("PUT /api/admin/settings", admin(a.handlePutSettings))
	mux.HandleFunc("POST /api/admin/settings/mail/test", admin(a.handleMailTest))
}

// writeJSON serializes v with the right content type.
func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps a store error to a status code and JSON body.
func (a *API) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrGroupNotFound),
		errors.Is(err, store.ErrRuleNotFound),
		errors.Is(err, store.ErrDeviceNotFound),
		errors.Is(err, store.ErrClientNotFound):
		a.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrEmailExists),
		errors.Is(err, store.ErrGroupInUse):
		a.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		a.logger.Error("request failed", "error", err)
		a.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// badRequest rejects malformed or invalid input.
func (a *API) badRequest(w http.ResponseWriter, message string) {
	a.writeJSON(w, http.StatusBadRequest, errorResponse{Error: message})
}

// decode reads a JSON request body into v.
func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
