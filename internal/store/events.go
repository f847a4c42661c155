// ABOUTME: Audit event entity and store methods
// ABOUTME: Events are append-only records of security-relevant occurrences

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event names used by the auth core. The admin surface may record others.
const (
	EventWebLogin = "web.login"
	EventWebError = "web.error"
)

// Event is an immutable audit record. UserID is empty for events that are
// not attributable to an account.
type Event struct {
	ID        string
	Name      string
	UserID    string
	Detail    string
	CreatedAt time.Time
}

// EventFilter specifies filtering options for listing events.
type EventFilter struct {
	Name   string
	UserID string
	Search string // substring match on name or detail
	Limit  int    // max results (default 100, max 1000)
}

// EventStore defines the append and list operations for audit events.
// There is deliberately no update or delete.
type EventStore interface {
	CreateEvent(ctx context.Context, event *Event) error
	ListEvents(ctx context.Context, filter EventFilter) ([]*Event, error)
}

// CreateEvent appends a new event. Generates ID and timestamp if not set.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO events (id, name, user_id, detail, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.Name,
		nullString(event.UserID),
		event.Detail,
		event.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	s.logger.Debug("recorded event", "id", event.ID, "name", event.Name, "user_id", event.UserID)
	return nil
}

// ListEvents returns events matching the filter, newest first.
func (s *SQLiteStore) ListEvents(ctx context.Context, filter EventFilter) ([]*Event, error) {
	query := `SELECT id, name, user_id, detail, created_at FROM events WHERE 1=1`
	var args []any

	if filter.Name != "" {
		query += ` AND name = ?`
		args = append(args, filter.Name)
	}
	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.Search != "" {
		query += ` AND (name LIKE ? OR detail LIKE ?)`
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var event Event
		var userID sql.NullString
		var createdAtStr string

		if err := rows.Scan(&event.ID, &event.Name, &userID, &event.Detail, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		event.UserID = userID.String

		event.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}

		events = append(events, &event)
	}
	return events, rows.Err()
}
