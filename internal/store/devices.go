// ABOUTME: Device and connected-client entities and store methods
// ABOUTME: Devices hold issued VPN credentials, clients are live connections

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrDeviceNotFound is returned when a device doesn't exist.
var ErrDeviceNotFound = errors.New("device not found")

// ErrClientNotFound is returned when a connected client doesn't exist.
var ErrClientNotFound = errors.New("client not found")

// Device represents a VPN credential issued to a user's machine.
type Device struct {
	ID          string
	UserID      string
	Name        string
	Fingerprint string // certificate fingerprint
	CreatedAt   time.Time
}

// Client represents a currently connected VPN session for a device.
type Client struct {
	ID          string
	DeviceID    string
	RemoteIP    string
	VirtualIP   string
	ConnectedAt time.Time
}

// DeviceStore defines persistence operations for devices and clients.
type DeviceStore interface {
	CreateDevice(ctx context.Context, device *Device) error
	ListDevices(ctx context.Context, userID string) ([]*Device, error)
	DeleteDevice(ctx context.Context, id string) error

	CreateClient(ctx context.Context, client *Client) error
	ListClients(ctx context.Context, search string) ([]*Client, error)
	DeleteClient(ctx context.Context, id string) error
}

// CreateDevice creates a new device. Generates ID and timestamp if not set.
func (s *SQLiteStore) CreateDevice(ctx context.Context, device *Device) error {
	if device.ID == "" {
		device.ID = uuid.New().String()
	}
	if device.CreatedAt.IsZero() {
		device.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO devices (id, user_id, name, fingerprint, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		device.ID,
		device.UserID,
		device.Name,
		device.Fingerprint,
		device.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// ListDevices returns the devices for a user, oldest first.
func (s *SQLiteStore) ListDevices(ctx context.Context, userID string) ([]*Device, error) {
	query := `SELECT id, user_id, name, fingerprint, created_at FROM devices WHERE user_id = ? ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []*Device
	for rows.Next() {
		var device Device
		var createdAtStr string
		if err := rows.Scan(&device.ID, &device.UserID, &device.Name, &device.Fingerprint, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		device.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		devices = append(devices, &device)
	}
	return devices, rows.Err()
}

// DeleteDevice removes a device and any of its live client rows.
func (s *SQLiteStore) DeleteDevice(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM clients WHERE device_id = ?`, id); err != nil {
		return fmt.Errorf("deleting device clients: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return requireRowAffected(res, ErrDeviceNotFound)
}

// CreateClient records a connected VPN client.
func (s *SQLiteStore) CreateClient(ctx context.Context, client *Client) error {
	if client.ID == "" {
		client.ID = uuid.New().String()
	}
	if client.ConnectedAt.IsZero() {
		client.ConnectedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO clients (id, device_id, remote_ip, virtual_ip, connected_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		client.ID,
		client.DeviceID,
		client.RemoteIP,
		client.VirtualIP,
		client.ConnectedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting client: %w", err)
	}
	return nil
}

// ListClients returns connected clients, optionally filtered by a substring
// match on the remote or virtual address.
func (s *SQLiteStore) ListClients(ctx context.Context, search string) ([]*Client, error) {
	query := `SELECT id, device_id, remote_ip, virtual_ip, connected_at FROM clients`
	var args []any
	if search != "" {
		query += ` WHERE remote_ip LIKE ? OR virtual_ip LIKE ?`
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY connected_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying clients: %w", err)
	}
	defer rows.Close()

	var clients []*Client
	for rows.Next() {
		var client Client
		var connectedAtStr string
		if err := rows.Scan(&client.ID, &client.DeviceID, &client.RemoteIP, &client.VirtualIP, &connectedAtStr); err != nil {
			return nil, fmt.Errorf("scanning client: %w", err)
		}
		client.ConnectedAt, err = time.Parse(time.RFC3339, connectedAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing connected_at: %w", err)
		}
		clients = append(clients, &client)
	}
	return clients, rows.Err()
}

// DeleteClient removes a connected client row (a disconnect).
func (s *SQLiteStore) DeleteClient(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting client: %w", err)
	}
	return requireRowAffected(res, ErrClientNotFound)
}
