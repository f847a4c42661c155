// ABOUTME: Server-side web session rows keyed by a secure cookie token
// ABOUTME: Session values are an opaque JSON object owned by the web layer

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrSessionNotFound is returned when a session doesn't exist or is expired.
var ErrSessionNotFound = errors.New("session not found")

// WebSession is one client's scratch state between requests.
type WebSession struct {
	ID        string
	Values    map[string]any
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionStore defines persistence for web sessions.
type SessionStore interface {
	GetWebSession(ctx context.Context, id string) (*WebSession, error)
	SaveWebSession(ctx context.Context, session *WebSession) error
	DeleteWebSession(ctx context.Context, id string) error
	PurgeExpiredWebSessions(ctx context.Context) (int64, error)
}

// GetWebSession retrieves a session by ID.
// Returns ErrSessionNotFound for missing or expired sessions.
func (s *SQLiteStore) GetWebSession(ctx context.Context, id string) (*WebSession, error) {
	query := `SELECT id, data, created_at, expires_at FROM web_sessions WHERE id = ?`

	var session WebSession
	var dataJSON, createdAtStr, expiresAtStr string

	err := s.db.QueryRowContext(ctx, query, id).Scan(&session.ID, &dataJSON, &createdAtStr, &expiresAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	session.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	session.ExpiresAt, err = time.Parse(time.RFC3339, expiresAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}

	if time.Now().After(session.ExpiresAt) {
		_ = s.DeleteWebSession(ctx, id)
		return nil, ErrSessionNotFound
	}

	if err := json.Unmarshal([]byte(dataJSON), &session.Values); err != nil {
		return nil, fmt.Errorf("decoding session data: %w", err)
	}
	return &session, nil
}

// SaveWebSession upserts the session row.
func (s *SQLiteStore) SaveWebSession(ctx context.Context, session *WebSession) error {
	if session.Values == nil {
		session.Values = map[string]any{}
	}
	data, err := json.Marshal(session.Values)
	if err != nil {
		return fmt.Errorf("encoding session data: %w", err)
	}

	query := `
		INSERT INTO web_sessions (id, data, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at
	`

	_, err = s.db.ExecContext(ctx, query,
		session.ID,
		string(data),
		session.CreatedAt.UTC().Format(time.RFC3339),
		session.ExpiresAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// DeleteWebSession removes a session row. Deleting an unknown session is
// not an error so logout stays idempotent.
func (s *SQLiteStore) DeleteWebSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM web_sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// PurgeExpiredWebSessions removes all expired session rows and returns the
// number deleted.
func (s *SQLiteStore) PurgeExpiredWebSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM web_sessions WHERE expires_at < ?`,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("purging sessions: %w", err)
	}
	return res.RowsAffected()
}
