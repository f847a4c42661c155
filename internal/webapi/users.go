// ABOUTME: Admin API handlers for user accounts
// ABOUTME: Creation issues a temporary password and mails an invite best-effort

package webapi

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/burrowvpn/burrow-console/internal/auth"
	mailpkg "github.com/burrowvpn/burrow-console/internal/mail"
	"github.com/burrowvpn/burrow-console/internal/store"
	"github.com/burrowvpn/burrow-console/internal/web"
)

type userResponse struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	GroupID        string `json:"group_id"`
	PasswordChange bool   `json:"password_change"`
	MfaEnabled     bool   `json:"mfa_enabled"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

func toUserResponse(user *store.User) userResponse {
	return userResponse{
		ID:             user.ID,
		Email:          user.Email,
		Name:           user.Name,
		GroupID:        user.GroupID,
		PasswordChange: user.PasswordChange,
		MfaEnabled:     user.MfaEnabled,
		CreatedAt:      user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      user.UpdatedAt.Format(time.RFC3339),
	}
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	filter := store.UserFilter{
		Search:  r.URL.Query().Get("search"),
		GroupID: r.URL.Query().Get("group_id"),
	}
	users, err := a.store.ListUsers(r.Context(), filter)
	if err != nil {
		a.writeError(w, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, user := range users {
		out = append(out, toUserResponse(user))
	}
	a.writeJSON(w, http.StatusOK, out)
}

type createUserRequest struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	GroupID string `json:"group_id"`
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decode(r, &req); err != nil {
		a.badRequest(w, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if _, err := mail.ParseAddress(req.Email); err != nil {
		a.badRequest(w, "a valid email is required")
		return
	}
	if req.GroupID == "" {
		a.badRequest(w, "group_id is required")
		return
	}
	if _, err := a.store.GetGroup(r.Context(), req.GroupID); err != nil {
		a.writeError(w, err)
		return
	}

	// The account starts with a temporary password the invite carries and
	// must replace it on first sign-in.
	tempPassword, err := generateTempPassword()
	if err != nil {
		a.writeError(w, err)
		return
	}
	hash, err := auth.HashPassword(tempPassword)
	if err != nil {
		a.writeError(w, err)
		return
	}

	user := &store.User{
		Email:          req.Email,
		Name:           req.Name,
		PasswordHash:   hash,
		PasswordChange: true,
		GroupID:        req.GroupID,
	}
	if err := a.store.CreateUser(r.Context(), user); err != nil {
		a.writeError(w, err)
		return
	}

	organization, _ := a.store.GetSetting(r.Context(), store.SettingOrganization, "Burrow VPN")
	invite := mailpkg.Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Your %s VPN account", organization),
		Body: fmt.Sprintf(
			"An account has been created for you.\n\nEmail: %s\nTemporary password: %s\n\nYou will be asked to choose a new password when you first sign in.\n",
			user.Email, tempPassword),
	}
	if err := a.mail.Send(r.Context(), invite); err != nil {
		a.logger.Warn("failed to send invite mail", "error", err, "email", user.Email)
	}

	a.logger.Info("user created", "user_id", user.ID, "email", user.Email,
		"actor", web.UserFromRequest(r).ID)
	a.writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := a.store.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toUserResponse(user))
}

type updateUserRequest struct {
	Email          *string `json:"email"`
	Name           *string `json:"name"`
	GroupID        *string `json:"group_id"`
	PasswordChange *bool   `json:"password_change"`
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decode(r, &req); err != nil {
		a.badRequest(w, "invalid request body")
		return
	}

	user, err := a.store.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}

	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			a.badRequest(w, "a valid email is required")
			return
		}
		user.Email = email
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.GroupID != nil {
		if _, err := a.store.GetGroup(r.Context(), *req.GroupID); err != nil {
			a.writeError(w, err)
			return
		}
		user.GroupID = *req.GroupID
	}
	if req.PasswordChange != nil {
		user.PasswordChange = *req.PasswordChange
	}

	if err := a.store.UpdateUser(r.Context(), user); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == web.UserFromRequest(r).ID {
		a.badRequest(w, "cannot delete your own account")
		return
	}
	if err := a.store.DeleteUser(r.Context(), id); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleResetUserMFA returns the user to unenrolled; their next sign-in
// walks through setup again.
func (a *API) handleResetUserMFA(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := a.store.GetUser(r.Context(), id); err != nil {
		a.writeError(w, err)
		return
	}
	if err := a.mfa.Reset(r.Context(), id); err != nil {
		a.writeError(w, err)
		return
	}
	a.logger.Info("mfa reset", "user_id", id, "actor", web.UserFromRequest(r).ID)
	w.WriteHeader(http.StatusNoContent)
}

type deviceResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Fingerprint string `json:"fingerprint"`
	CreatedAt   string `json:"created_at"`
}

func (a *API) handleListUserDevices(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := a.store.GetUser(r.Context(), id); err != nil {
		a.writeError(w, err)
		return
	}
	devices, err := a.store.ListDevices(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}

	out := make([]deviceResponse, 0, len(devices))
	for _, device := range devices {
		out = append(out, deviceResponse{
			ID:          device.ID,
			Name:        device.Name,
			Fingerprint: device.Fingerprint,
			CreatedAt:   device.CreatedAt.Format(time.RFC3339),
		})
	}
	a.writeJSON(w, http.StatusOK, out)
}

// generateTempPassword produces a random initial password for invites.
func generateTempPassword() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
