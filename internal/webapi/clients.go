// ABOUTME: Admin API handlers for connected VPN clients and audit events
// ABOUTME: Clients are read/disconnect only; events are read only

package webapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/burrowvpn/burrow-console/internal/store"
)

type clientResponse struct {
	ID          string `json:"id"`
	DeviceID    string `json:"device_id"`
	RemoteIP    string `json:"remote_ip"`
	VirtualIP   string `json:"virtual_ip"`
	ConnectedAt string `json:"connected_at"`
}

func (a *API) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := a.store.ListClients(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		a.writeError(w, err)
		return
	}

	out := make([]clientResponse, 0, len(clients))
	for _, client := range clients {
		out = append(out, clientResponse{
			ID:          client.ID,
			DeviceID:    client.DeviceID,
			RemoteIP:    client.RemoteIP,
			VirtualIP:   client.VirtualIP,
			ConnectedAt: client.ConnectedAt.Format(time.RFC3339),
		})
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *API) handleDisconnectClient(w http.ResponseWriter, r *http.Request) {
	if err := a.store.DeleteClient(r.Context(), r.PathValue("id")); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type eventResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UserID    string `json:"user_id,omitempty"`
	Detail    string `json:"detail"`
	CreatedAt string `json:"created_at"`
}

func (a *API) handleListEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.EventFilter{
		Name:   query.Get("name"),
		UserID: query.Get("user_id"),
		Search: query.Get("search"),
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			a.badRequest(w, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	events, err := a.store.ListEvents(r.Context(), filter)
	if err != nil {
		a.writeError(w, err)
		return
	}

	out := make([]eventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, eventResponse{
			ID:        event.ID,
			Name:      event.Name,
			UserID:    event.UserID,
			Detail:    event.Detail,
			CreatedAt: event.CreatedAt.Format(time.RFC3339),
		})
	}
	a.writeJSON(w, http.StatusOK, out)
}
