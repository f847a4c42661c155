// ABOUTME: Install flag and the ordered access gate chain
// ABOUTME: Every protected route declares its stages; evaluation order is fixed

package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/burrowvpn/burrow-console/internal/store"
)

// Stage is one named precondition a request must satisfy. Stages always
// evaluate in the order install, credentials, mfa; requiring a later stage
// implies every earlier one.
type Stage int

const (
	StageInstall Stage = iota
	StageCredentials
	StageMFA
)

// InstallGate wraps the process-wide install flag. Once the flag is true
// it is never reset.
type InstallGate struct {
	settings store.SettingStore
}

// NewInstallGate creates the gate over the settings store.
func NewInstallGate(settings store.SettingStore) *InstallGate {
	return &InstallGate{settings: settings}
}

// Installed reports whether installation has completed.
func (g *InstallGate) Installed(ctx context.Context) (bool, error) {
	return g.settings.GetBoolSetting(ctx, store.SettingInstalled, false)
}

// MarkInstalled sets the flag. Idempotent; there is no way back to false.
func (g *InstallGate) MarkInstalled(ctx context.Context) error {
	if err := g.settings.SetBoolSetting(ctx, store.SettingInstalled, true); err != nil {
		return fmt.Errorf("marking installed: %w", err)
	}
	return nil
}

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	sessionContextKey contextKey = "session"
	userContextKey    contextKey = "user"
)

// requestSession retrieves the session the gate chain loaded.
func requestSession(r *http.Request) *Session {
	session, _ := r.Context().Value(sessionContextKey).(*Session)
	return session
}

// requestUser retrieves the authenticated user, nil when the route's
// stages don't include credentials.
func requestUser(r *http.Request) *store.User {
	user, _ := r.Context().Value(userContextKey).(*store.User)
	return user
}

// gatekeeper evaluates the stage chain for each route.
type gatekeeper struct {
	install  *InstallGate
	sessions *SessionManager
	users    store.UserStore
	logger   *slog.Logger
}

// protect wraps a handler with the route's declared stages. The session is
// always loaded and saved around the handler, even on routes with no
// stages, so one-shot values work on the login and install pages too.
//
// Stages only branch; they never mutate session or store state.
func (g *gatekeeper) protect(next http.HandlerFunc, stages ...Stage) http.HandlerFunc {
	required := normalizeStages(stages)

	return func(w http.ResponseWriter, r *http.Request) {
		session, err := g.sessions.Load(w, r)
		if err != nil {
			g.logger.Error("failed to load session", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, session)
		r = r.WithContext(ctx)

		redirect, user, err := g.evaluate(r, session, required)
		if err != nil {
			g.logger.Error("gate evaluation failed", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if redirect != "" {
			http.Redirect(w, r, redirect, http.StatusSeeOther)
			return
		}
		if user != nil {
			r = r.WithContext(context.WithValue(r.Context(), userContextKey, user))
		}

		next(w, r)

		if err := g.sessions.Save(r.Context(), session); err != nil {
			g.logger.Error("failed to save session", "error", err)
		}
	}
}

// evaluate runs the stage chain in its fixed order. It returns a redirect
// target on the first failing stage, or the resolved user when the
// credentials stage passed.
func (g *gatekeeper) evaluate(r *http.Request, session *Session, required []Stage) (string, *store.User, error) {
	var user *store.User

	for _, stage := range required {
		switch stage {
		case StageInstall:
			installed, err := g.install.Installed(r.Context())
			if err != nil {
				return "", nil, err
			}
			if !installed {
				return "/install", nil, nil
			}

		case StageCredentials:
			userID := session.GetString(sessionKeyUserID)
			if userID == "" {
				return "/login", nil, nil
			}
			resolved, err := g.users.GetUser(r.Context(), userID)
			if err != nil {
				if errors.Is(err, store.ErrUserNotFound) {
					return "/login", nil, nil
				}
				return "", nil, err
			}
			user = resolved

		case StageMFA:
			if session.GetBool(sessionKeyMfaConfirmed) {
				continue
			}
			if user != nil && user.MfaEnabled {
				return "/mfa", nil, nil
			}
			return "/mfa/setup", nil, nil
		}
	}

	return "", user, nil
}

// UserFromRequest returns the authenticated user a gate injected, nil on
// ungated or unauthenticated requests. Exported for the admin API layer.
func UserFromRequest(r *http.Request) *store.User {
	return requestUser(r)
}

// RequireAdmin wraps an API handler with the full gate chain plus a check
// that the user's group has admin rights. API requests never redirect;
// an unsatisfied stage is 401 and a non-admin account is 403.
func (c *Console) RequireAdmin(groups store.GroupStore) func(http.HandlerFunc) http.HandlerFunc {
	g := c.gates
	required := normalizeStages([]Stage{StageMFA})

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			session, err := g.sessions.Load(w, r)
			if err != nil {
				g.logger.Error("failed to load session", "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			redirect, user, err := g.evaluate(r, session, required)
			if err != nil {
				g.logger.Error("gate evaluation failed", "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if redirect != "" || user == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			resolved, err := groups.GetGroup(r.Context(), user.GroupID)
			if err != nil {
				if errors.Is(err, store.ErrGroupNotFound) {
					http.Error(w, "Forbidden", http.StatusForbidden)
					return
				}
				g.logger.Error("failed to resolve group", "error", err, "group_id", user.GroupID)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if !resolved.IsAdmin {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next(w, r.WithContext(context.WithValue(r.Context(), userContextKey, user)))
		}
	}
}

// normalizeStages expands implied stages and fixes the evaluation order.
// MFA implies credentials, credentials implies install.
func normalizeStages(stages []Stage) []Stage {
	var install, credentials, mfa bool
	for _, stage := range stages {
		switch stage {
		case StageInstall:
			install = true
		case StageCredentials:
			credentials = true
		case StageMFA:
			mfa = true
		}
	}
	if mfa {
		credentials = true
	}
	if credentials {
		install = true
	}

	var out []Stage
	if install {
		out = append(out, StageInstall)
	}
	if credentials {
		out = append(out, StageCredentials)
	}
	if mfa {
		out = append(out, StageMFA)
	}
	return out
}
