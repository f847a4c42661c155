// ABOUTME: Firewall rule entity and store methods
// ABOUTME: Rules are attached to groups and applied by the VPN layer

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrRuleNotFound is returned when a firewall rule doesn't exist.
var ErrRuleNotFound = errors.New("firewall rule not found")

// Rule actions.
const (
	RuleActionAllow = "allow"
	RuleActionDeny  = "deny"
)

// FirewallRule describes traffic policy for members of a group.
// Port is a string so ranges ("8000-9000") can be expressed.
type FirewallRule struct {
	ID          string
	GroupID     string
	Action      string
	Protocol    string // "tcp", "udp", or empty for any
	Destination string // CIDR or host
	Port        string
	CreatedAt   time.Time
}

// FirewallStore defines persistence operations for firewall rules.
type FirewallStore interface {
	CreateFirewallRule(ctx context.Context, rule *FirewallRule) error
	GetFirewallRule(ctx context.Context, id string) (*FirewallRule, error)
	UpdateFirewallRule(ctx context.Context, rule *FirewallRule) error
	ListFirewallRules(ctx context.Context, groupID string) ([]*FirewallRule, error)
	DeleteFirewallRule(ctx context.Context, id string) error
}

// CreateFirewallRule creates a new rule. Generates ID and timestamp if not set.
func (s *SQLiteStore) CreateFirewallRule(ctx context.Context, rule *FirewallRule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO firewall_rules (id, group_id, action, protocol, destination, port, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rule.ID,
		rule.GroupID,
		rule.Action,
		rule.Protocol,
		rule.Destination,
		rule.Port,
		rule.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting firewall rule: %w", err)
	}

	s.logger.Debug("created firewall rule", "id", rule.ID, "group_id", rule.GroupID)
	return nil
}

// GetFirewallRule retrieves a rule by ID.
func (s *SQLiteStore) GetFirewallRule(ctx context.Context, id string) (*FirewallRule, error) {
	query := `SELECT id, group_id, action, protocol, destination, port, created_at FROM firewall_rules WHERE id = ?`

	rule, err := s.scanFirewallRule(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRuleNotFound
	}
	return rule, err
}

// UpdateFirewallRule persists the mutable fields of the rule.
func (s *SQLiteStore) UpdateFirewallRule(ctx context.Context, rule *FirewallRule) error {
	query := `
		UPDATE firewall_rules
		SET group_id = ?, action = ?, protocol = ?, destination = ?, port = ?
		WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		rule.GroupID,
		rule.Action,
		rule.Protocol,
		rule.Destination,
		rule.Port,
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("updating firewall rule: %w", err)
	}
	return requireRowAffected(res, ErrRuleNotFound)
}

// ListFirewallRules returns rules, optionally restricted to a group.
func (s *SQLiteStore) ListFirewallRules(ctx context.Context, groupID string) ([]*FirewallRule, error) {
	query := `SELECT id, group_id, action, protocol, destination, port, created_at FROM firewall_rules`
	var args []any
	if groupID != "" {
		query += ` WHERE group_id = ?`
		args = append(args, groupID)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying firewall rules: %w", err)
	}
	defer rows.Close()

	var rules []*FirewallRule
	for rows.Next() {
		rule, err := s.scanFirewallRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// DeleteFirewallRule removes a rule by ID.
func (s *SQLiteStore) DeleteFirewallRule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM firewall_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting firewall rule: %w", err)
	}
	return requireRowAffected(res, ErrRuleNotFound)
}

func (s *SQLiteStore) scanFirewallRule(row rowScanner) (*FirewallRule, error) {
	var rule FirewallRule
	var createdAtStr string

	err := row.Scan(
		&rule.ID,
		&rule.GroupID,
		&rule.Action,
		&rule.Protocol,
		&rule.Destination,
		&rule.Port,
		&createdAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning firewall rule: %w", err)
	}

	rule.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &rule, nil
}
