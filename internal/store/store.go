// ABOUTME: Common errors and shared helpers for the console persistence layer
// ABOUTME: Entity types and their store methods live in per-entity files

package store

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when creating a user with an email that is
// already registered.
var ErrEmailExists = errors.New("email already exists")

// ErrGroupInUse is returned when deleting a group that still has members.
var ErrGroupInUse = errors.New("group has members")

// nullString converts an empty string to nil for nullable columns.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isConstraintViolation reports whether err is a SQLite constraint error.
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}
