// ABOUTME: Admin API handlers for groups
// ABOUTME: A group in use by accounts cannot be deleted

package webapi

import (
	"net/http"
	"time"

	"github.com/burrowvpn/burrow-console/internal/store"
)

type groupResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsAdmin    bool   `json:"is_admin"`
	MaxDevices int    `json:"max_devices"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func toGroupResponse(group *store.Group) groupResponse {
	return groupResponse{
		ID:         group.ID,
		Name:       group.Name,
		IsAdmin:    group.IsAdmin,
		MaxDevices: group.MaxDevices,
		CreatedAt:  group.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  group.UpdatedAt.Format(time.RFC3339),
	}
}

func (a *API) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := a.store.ListGroups(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	out := make([]groupResponse, 0, len(groups))
	for _, group := range groups {
		out = append(out, toGroupResponse(group))
	}
	a.writeJSON(w, http.StatusOK, out)
}

type groupRequest struct {
	Name       string `json:"name"`
	IsAdmin    bool   `json:"is_admin"`
	MaxDevices int    `json:"max_devices"`
}

func (a *API) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := decode(r, &req); err != nil {
		a.badRequest(w, "invalid request body")
		return
	}
	if req.Name == "" {
		a.badRequest(w, "name is required")
		return
	}

	group := &store.Group{
		Name:       req.Name,
		IsAdmin:    req.IsAdmin,
		MaxDevices: req.MaxDevices,
	}
	if err := a.store.CreateGroup(r.Context(), group); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, toGroupResponse(group))
}

func (a *API) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := decode(r, &req); err != nil {
		a.badRequest(w, "invalid request body")
		return
	}
	if req.Name == "" {
		a.badRequest(w, "name is required")
		return
	}

	group, err := a.store.GetGroup(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	group.Name = req.Name
	group.IsAdmin = req.IsAdmin
	if req.MaxDevices > 0 {
		group.MaxDevices = req.MaxDevices
	}

	if err := a.store.UpdateGroup(r.Context(), group); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toGroupResponse(group))
}

func (a *API) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := a.store.DeleteGroup(r.Context(), r.PathValue("id")); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
