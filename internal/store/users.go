// ABOUTME: User account entity and store methods for the VPN console
// ABOUTME: Covers credential, MFA, and forced-password-change fields read by the auth core

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned when a user doesn't exist.
var ErrUserNotFound = errors.New("user not found")

// User represents a console account. PasswordHash is a bcrypt hash and is
// empty for accounts that have only ever logged in via OAuth2.
type User struct {
	ID             string
	Email          string
	Name           string
	PasswordHash   string
	PasswordChange bool // true forces a password change on next login
	MfaSecret      string
	MfaEnabled     bool
	GroupID        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserFilter specifies filtering options for listing users.
type UserFilter struct {
	Search  string // matches email or name, substring
	GroupID string
	Limit   int // max results (default 100)
}

// UserStore defines the persistence operations the auth core and the admin
// API need for user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	UpdateUserPassword(ctx context.Context, id, passwordHash string, passwordChange bool) error
	UpdateUserMFA(ctx context.Context, id, secret string, enabled bool) error
	ListUsers(ctx context.Context, filter UserFilter) ([]*User, error)
	DeleteUser(ctx context.Context, id string) error
}

const userColumns = `id, email, name, password_hash, password_change, mfa_secret, mfa_enabled, group_id, created_at, updated_at`

// CreateUser creates a new user. Generates ID and timestamps if not set.
// Returns ErrEmailExists if the email is already registered.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	if err := insertUser(ctx, s.db, user); err != nil {
		return err
	}
	s.logger.Debug("created user", "id", user.ID, "email", user.Email)
	return nil
}

// insertUser fills defaults and inserts the row. Runs against the
// database or a transaction.
func insertUser(ctx context.Context, db execer, user *User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.PasswordChange,
		user.MfaSecret,
		user.MfaEnabled,
		user.GroupID,
		user.CreatedAt.Format(time.RFC3339),
		user.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
// Returns ErrUserNotFound if the user doesn't exist.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return s.scanUserRow(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByEmail retrieves a user by email.
// Returns ErrUserNotFound if no account matches.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return s.scanUserRow(s.db.QueryRowContext(ctx, query, email))
}

// UpdateUser persists all mutable fields of the user.
func (s *SQLiteStore) UpdateUser(ctx context.Context, user *User) error {
	user.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET email = ?, name = ?, password_hash = ?, password_change = ?,
		    mfa_secret = ?, mfa_enabled = ?, group_id = ?, updated_at = ?
		WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.PasswordChange,
		user.MfaSecret,
		user.MfaEnabled,
		user.GroupID,
		user.UpdatedAt.Format(time.RFC3339),
		user.ID,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("updating user: %w", err)
	}
	return requireRowAffected(res, ErrUserNotFound)
}

// UpdateUserPassword sets a new password hash and the forced-change flag.
func (s *SQLiteStore) UpdateUserPassword(ctx context.Context, id, passwordHash string, passwordChange bool) error {
	query := `UPDATE users SET password_hash = ?, password_change = ?, updated_at = ? WHERE id = ?`

	res, err := s.db.ExecContext(ctx, query,
		passwordHash,
		passwordChange,
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return requireRowAffected(res, ErrUserNotFound)
}

// UpdateUserMFA sets the MFA secret and enabled flag. A read-then-write on a
// single user's MFA fields goes through this single statement so that two
// concurrent confirmations cannot interleave secret and flag updates.
func (s *SQLiteStore) UpdateUserMFA(ctx context.Context, id, secret string, enabled bool) error {
	query := `UPDATE users SET mfa_secret = ?, mfa_enabled = ?, updated_at = ? WHERE id = ?`

	res, err := s.db.ExecContext(ctx, query,
		secret,
		enabled,
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("updating user mfa: %w", err)
	}
	return requireRowAffected(res, ErrUserNotFound)
}

// ListUsers returns users matching the filter, ordered by email.
func (s *SQLiteStore) ListUsers(ctx context.Context, filter UserFilter) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE 1=1`
	var args []any

	if filter.Search != "" {
		query += ` AND (email LIKE ? OR name LIKE ?)`
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	if filter.GroupID != "" {
		query += ` AND group_id = ?`
		args = append(args, filter.GroupID)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` ORDER BY email ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := s.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// DeleteUser removes a user by ID.
// Returns ErrUserNotFound if the user doesn't exist.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if err := requireRowAffected(res, ErrUserNotFound); err != nil {
		return err
	}
	s.logger.Debug("deleted user", "id", id)
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanUserRow(row *sql.Row) (*User, error) {
	user, err := s.scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *SQLiteStore) scanUser(row rowScanner) (*User, error) {
	var user User
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.PasswordChange,
		&user.MfaSecret,
		&user.MfaEnabled,
		&user.GroupID,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	user.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	user.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &user, nil
}

// requireRowAffected maps a zero-row update/delete to notFound.
func requireRowAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
