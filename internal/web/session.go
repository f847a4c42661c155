// ABOUTME: Per-client session state with pop-on-read one-shot values
// ABOUTME: Sessions live server-side behind a secure random cookie token

package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/burrowvpn/burrow-console/internal/store"
)

// SessionCookieName is the name of the session cookie.
const SessionCookieName = "burrow_session"

// Session keys used by the auth core. "error" and "form" are one-shot:
// reading them removes them, so a value is visible to exactly one request.
const (
	sessionKeyUserID       = "user_id"
	sessionKeyBackend      = "auth_backend"
	sessionKeyMfaConfirmed = "mfa_confirmed"
	sessionKeyError        = "error"
	sessionKeyForm         = "form"

	// set while an OAuth2 round trip is in flight so the session row
	// persists between the redirect out and the provider callback
	sessionKeyOAuth2Pending = "oauth2_pending"
)

// Session is one client's scratch state for the duration of a request.
// It is loaded by the session manager, mutated by handlers, and persisted
// once at the end of the request.
type Session struct {
	id     string
	values map[string]any
	dirty  bool
}

// ID returns the session token.
func (s *Session) ID() string { return s.id }

// GetString returns the string value for key, or "" if absent.
func (s *Session) GetString(key string) string {
	v, _ := s.values[key].(string)
	return v
}

// GetBool returns the boolean value for key, or false if absent.
func (s *Session) GetBool(key string) bool {
	v, _ := s.values[key].(bool)
	return v
}

// Set stores a value.
func (s *Session) Set(key string, value any) {
	s.values[key] = value
	s.dirty = true
}

// Delete removes a key. Deleting an absent key is a no-op.
func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.dirty = true
	}
}

// Pop returns the value for key and removes it. The value is visible to
// exactly the first reader; every later read sees nil.
func (s *Session) Pop(key string) any {
	v, ok := s.values[key]
	if ok {
		delete(s.values, key)
		s.dirty = true
	}
	return v
}

// PopString is Pop for string values.
func (s *Session) PopString(key string) string {
	v, _ := s.Pop(key).(string)
	return v
}

// SessionManager loads and persists sessions for the web layer.
type SessionManager struct {
	store    store.SessionStore
	duration time.Duration
	logger   *slog.Logger
}

// NewSessionManager creates a session manager. duration bounds how long a
// session stays valid after creation.
func NewSessionManager(sessionStore store.SessionStore, duration time.Duration) *SessionManager {
	if duration <= 0 {
		duration = 12 * time.Hour
	}
	return &SessionManager{
		store:    sessionStore,
		duration: duration,
		logger:   slog.Default().With("component", "session"),
	}
}

// Load returns the request's session, creating a fresh one (and setting
// the cookie) when the client has none or presents an unknown token.
func (m *SessionManager) Load(w http.ResponseWriter, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err == nil && cookie.Value != "" {
		record, err := m.store.GetWebSession(r.Context(), cookie.Value)
		if err == nil {
			return &Session{id: record.ID, values: record.Values}, nil
		}
		if !errors.Is(err, store.ErrSessionNotFound) {
			return nil, fmt.Errorf("loading session: %w", err)
		}
	}

	return m.create(w, r)
}

// Save persists the session if any handler mutated it.
func (m *SessionManager) Save(ctx context.Context, session *Session) error {
	if !session.dirty {
		return nil
	}
	record := &store.WebSession{
		ID:        session.id,
		Values:    session.values,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(m.duration),
	}
	if err := m.store.SaveWebSession(ctx, record); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	session.dirty = false
	return nil
}

// Destroy deletes the stored session and resets it in place to a fresh
// empty one under a new cookie, so post-logout state (like a one-shot
// error) has somewhere to live without carrying anything over.
func (m *SessionManager) Destroy(w http.ResponseWriter, r *http.Request, session *Session) error {
	if err := m.store.DeleteWebSession(r.Context(), session.id); err != nil {
		return fmt.Errorf("destroying session: %w", err)
	}

	fresh, err := m.create(w, r)
	if err != nil {
		return err
	}
	session.id = fresh.id
	session.values = fresh.values
	session.dirty = true
	return nil
}

func (m *SessionManager) create(w http.ResponseWriter, r *http.Request) (*Session, error) {
	token, err := generateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("generating session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.duration.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	return &Session{id: token, values: map[string]any{}}, nil
}

// generateSecureToken generates a cryptographically secure random token.
func generateSecureToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
