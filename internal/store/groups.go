// ABOUTME: Group entity and store methods
// ABOUTME: Groups carry the admin role flag and the per-user device allowance

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrGroupNotFound is returned when a group doesn't exist.
var ErrGroupNotFound = errors.New("group not found")

// Group represents a set of users sharing a role and firewall policy.
type Group struct {
	ID         string
	Name       string
	IsAdmin    bool // members may use the admin API
	MaxDevices int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// GroupStore defines persistence operations for groups.
type GroupStore interface {
	CreateGroup(ctx context.Context, group *Group) error
	GetGroup(ctx context.Context, id string) (*Group, error)
	UpdateGroup(ctx context.Context, group *Group) error
	ListGroups(ctx context.Context) ([]*Group, error)
	DeleteGroup(ctx context.Context, id string) error
}

// CreateGroup creates a new group. Generates ID and timestamps if not set.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *Group) error {
	if err := insertGroup(ctx, s.db, group); err != nil {
		return err
	}
	s.logger.Debug("created group", "id", group.ID, "name", group.Name)
	return nil
}

// insertGroup fills defaults and inserts the row. Runs against the
// database or a transaction.
func insertGroup(ctx context.Context, db execer, group *Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	if group.UpdatedAt.IsZero() {
		group.UpdatedAt = now
	}
	if group.MaxDevices <= 0 {
		group.MaxDevices = 2
	}

	query := `
		INSERT INTO groups (id, name, is_admin, max_devices, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		group.ID,
		group.Name,
		group.IsAdmin,
		group.MaxDevices,
		group.CreatedAt.Format(time.RFC3339),
		group.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("group %q already exists", group.Name)
		}
		return fmt.Errorf("inserting group: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by ID.
// Returns ErrGroupNotFound if the group doesn't exist.
func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (*Group, error) {
	query := `SELECT id, name, is_admin, max_devices, created_at, updated_at FROM groups WHERE id = ?`

	group, err := s.scanGroup(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGroupNotFound
	}
	return group, err
}

// UpdateGroup persists the mutable fields of the group.
func (s *SQLiteStore) UpdateGroup(ctx context.Context, group *Group) error {
	group.UpdatedAt = time.Now().UTC()

	query := `UPDATE groups SET name = ?, is_admin = ?, max_devices = ?, updated_at = ? WHERE id = ?`

	res, err := s.db.ExecContext(ctx, query,
		group.Name,
		group.IsAdmin,
		group.MaxDevices,
		group.UpdatedAt.Format(time.RFC3339),
		group.ID,
	)
	if err != nil {
		return fmt.Errorf("updating group: %w", err)
	}
	return requireRowAffected(res, ErrGroupNotFound)
}

// ListGroups returns all groups ordered by name.
func (s *SQLiteStore) ListGroups(ctx context.Context) ([]*Group, error) {
	query := `SELECT id, name, is_admin, max_devices, created_at, updated_at FROM groups ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying groups: %w", err)
	}
	defer rows.Close()

	var groups []*Group
	for rows.Next() {
		group, err := s.scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

// DeleteGroup removes a group by ID.
// Returns ErrGroupInUse if any user still references the group.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, id string) error {
	var members int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE group_id = ?`, id).Scan(&members); err != nil {
		return fmt.Errorf("counting group members: %w", err)
	}
	if members > 0 {
		return ErrGroupInUse
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting group: %w", err)
	}
	return requireRowAffected(res, ErrGroupNotFound)
}

func (s *SQLiteStore) scanGroup(row rowScanner) (*Group, error) {
	var group Group
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&group.ID,
		&group.Name,
		&group.IsAdmin,
		&group.MaxDevices,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning group: %w", err)
	}

	group.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	group.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &group, nil
}
