// ABOUTME: Admin API handlers for per-group firewall rules
// ABOUTME: Rules validate action and protocol; destination stays free-form

package webapi

import (
	"net/http"
	"time"

	"github.com/burrowvpn/burrow-console/internal/store"
)

type firewallRuleResponse struct {
	ID          string `json:"id"`
	GroupID     string `json:"group_id"`
	Action      string `json:"action"`
	Protocol    string `json:"protocol,omitempty"`
	Destination string `json:"destination"`
	Port        string `json:"port,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toFirewallRuleResponse(rule *store.FirewallRule) firewallRuleResponse {
	return firewallRuleResponse{
		ID:          rule.ID,
		GroupID:     rule.GroupID,
		Action:      rule.Action,
		Protocol:    rule.Protocol,
		Destination: rule.Destination,
		Port:        rule.Port,
		CreatedAt:   rule.CreatedAt.Format(time.RFC3339),
	}
}

type firewallRuleRequest struct {
	GroupID     string `json:"group_id"`
	Action      string `json:"action"`
	Protocol    string `json:"protocol"`
	Destination string `json:"destination"`
	Port        string `json:"port"`
}

func (req *firewallRuleRequest) validate() string {
	if req.GroupID == "" {
		return "group_id is required"
	}
	if req.Action != store.RuleActionAllow && req.Action != store.RuleActionDeny {
		return "action must be allow or deny"
	}
	switch req.Protocol {
	case "", "tcp", "udp":
	default:
		return "protocol must be tcp, udp, or empty"
	}
	if req.Destination == "" {
		return "destination is required"
	}
	return ""
}

func (a *API) handleListFirewallRules(w http.ResponseWriter, r *http.Request) {
	rules, err := a.store.ListFirewallRules(r.Context(), r.URL.Query().Get("group_id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	out := make([]firewallRuleResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toFirewallRuleResponse(rule))
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *API) handleCreateFirewallRule(w http.ResponseWriter, r *http.Request) {
	var req firewallRuleRequest
	if err := decode(r, &req); err != nil {
		a.badRequest(w, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		a.badRequest(w, msg)
		return
	}
	if _, err := a.store.GetGroup(r.Context(), req.GroupID); err != nil {
		a.writeError(w, err)
		return
	}

	rule := &store.FirewallRule{
		GroupID:     req.GroupID,
		Action:      req.Action,
		Protocol:    req.Protocol,
		Destination: req.Destination,
		Port:        req.Port,
	}
	if err := a.store.CreateFirewallRule(r.Context(), rule); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, toFirewallRuleResponse(rule))
}

func (a *API) handleUpdateFirewallRule(w http.ResponseWriter, r *http.Request) {
	var req firewallRuleRequest
	if err := decode(r, &req); err != nil {
		a.badRequest(w, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		a.badRequest(w, msg)
		return
	}

	rule, err := a.store.GetFirewallRule(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	rule.GroupID = req.GroupID
	rule.Action = req.Action
	rule.Protocol = req.Protocol
	rule.Destination = req.Destination
	rule.Port = req.Port

	if err := a.store.UpdateFirewallRule(r.Context(), rule); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toFirewallRuleResponse(rule))
}

func (a *API) handleDeleteFirewallRule(w http.ResponseWriter, r *http.Request) {
	if err := a.store.DeleteFirewallRule(r.Context(), r.PathValue("id")); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
