// ABOUTME: Admin API handlers for controlling the VPN service
// ABOUTME: Control actions wait briefly so the reported state reflects the change

package webapi

import (
	"net/http"
	"time"

	"github.com/burrowvpn/burrow-console/internal/web"
)

// settleDelay gives systemd a moment to transition the unit before we
// report its state back.
const settleDelay = 500 * time.Millisecond

type vpnStatusResponse struct {
	Active bool `json:"active"`
}

func (a *API) handleVPNStatus(w http.ResponseWriter, r *http.Request) {
	active, err := a.vpn.Status(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, vpnStatusResponse{Active: active})
}

func (a *API) handleVPNControl(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	action := r.PathValue("action")

	var err error
	switch action {
	case "start":
		err = a.vpn.Start(ctx)
	case "stop":
		err = a.vpn.Stop(ctx)
	case "restart":
		err = a.vpn.Restart(ctx)
	default:
		a.badRequest(w, "action must be start, stop, or restart")
		return
	}
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.logger.Info("vpn service controlled", "action", action, "actor", web.UserFromRequest(r).ID)

	select {
	case <-time.After(settleDelay):
	case <-ctx.Done():
		a.writeError(w, ctx.Err())
		return
	}

	active, err := a.vpn.Status(ctx)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, vpnStatusResponse{Active: active})
}
