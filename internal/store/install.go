// ABOUTME: Transactional first-run setup operation
// ABOUTME: Group, administrator, organization, and install flag commit together or not at all

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// InstallStore is the one-shot first-run setup operation.
type InstallStore interface {
	CompleteInstall(ctx context.Context, group *Group, admin *User, organization string) error
}

// CompleteInstall creates the first group and administrator, stores the
// organization name, and sets the install flag in a single transaction.
// A failure anywhere leaves nothing behind, so the install form can be
// resubmitted cleanly.
func (s *SQLiteStore) CompleteInstall(ctx context.Context, group *Group, admin *User, organization string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning install transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertGroup(ctx, tx, group); err != nil {
		return err
	}
	admin.GroupID = group.ID
	if err := insertUser(ctx, tx, admin); err != nil {
		return err
	}
	if err := upsertSetting(ctx, tx, SettingOrganization, organization); err != nil {
		return err
	}
	if err := upsertSetting(ctx, tx, SettingInstalled, "true"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing install transaction: %w", err)
	}

	s.logger.Info("installation completed", "organization", organization, "admin", admin.Email)
	return nil
}
