// ABOUTME: Mock in-memory store implementation for testing
// ABOUTME: Allows handler and flow tests to run without SQLite

package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory implementation of the store interfaces.
type MockStore struct {
	mu       sync.RWMutex
	users    map[string]*User // keyed by user ID
	emails   map[string]string
	groups   map[string]*Group
	events   []*Event
	rules    map[string]*FirewallRule
	devices  map[string]*Device
	clients  map[string]*Client
	settings map[string]string
	sessions map[string]*WebSession

	// FailEvents forces CreateEvent to fail, for best-effort recorder tests.
	FailEvents bool
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:    make(map[string]*User),
		emails:   make(map[string]string),
		groups:   make(map[string]*Group),
		rules:    make(map[string]*FirewallRule),
		devices:  make(map[string]*Device),
		clients:  make(map[string]*Client),
		settings: make(map[string]string),
		sessions: make(map[string]*WebSession),
	}
}

// mockError lets tests distinguish injected failures.
type mockError string

func (e mockError) Error() string { return string(e) }

// ErrMockFailure is returned by operations configured to fail.
const ErrMockFailure = mockError("mock store failure")

// --- users ---

func (m *MockStore) CreateUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.emails[user.Email]; ok {
		return ErrEmailExists
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	u := *user
	m.users[u.ID] = &u
	m.emails[u.Email] = u.ID
	return nil
}

func (m *MockStore) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.emails[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := *m.users[id]
	return &u, nil
}

func (m *MockStore) UpdateUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	if existing.Email != user.Email {
		if _, taken := m.emails[user.Email]; taken {
			return ErrEmailExists
		}
		delete(m.emails, existing.Email)
		m.emails[user.Email] = user.ID
	}
	user.UpdatedAt = time.Now().UTC()
	u := *user
	m.users[u.ID] = &u
	return nil
}

func (m *MockStore) UpdateUserPassword(ctx context.Context, id, passwordHash string, passwordChange bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	user.PasswordChange = passwordChange
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockStore) UpdateUserMFA(ctx context.Context, id, secret string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	user.MfaSecret = secret
	user.MfaEnabled = enabled
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockStore) ListUsers(ctx context.Context, filter UserFilter) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var users []*User
	for _, user := range m.users {
		if filter.GroupID != "" && user.GroupID != filter.GroupID {
			continue
		}
		if filter.Search != "" &&
			!strings.Contains(user.Email, filter.Search) &&
			!strings.Contains(user.Name, filter.Search) {
			continue
		}
		u := *user
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (m *MockStore) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	delete(m.emails, user.Email)
	delete(m.users, id)
	return nil
}

// --- groups ---

func (m *MockStore) CreateGroup(ctx context.Context, group *Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.MaxDevices <= 0 {
		group.MaxDevices = 2
	}
	now := time.Now().UTC()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.UpdatedAt = now

	g := *group
	m.groups[g.ID] = &g
	return nil
}

func (m *MockStore) GetGroup(ctx context.Context, id string) (*Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	group, ok := m.groups[id]
	if !ok {
		return nil, ErrGroupNotFound
	}
	g := *group
	return &g, nil
}

func (m *MockStore) UpdateGroup(ctx context.Context, group *Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.groups[group.ID]; !ok {
		return ErrGroupNotFound
	}
	group.UpdatedAt = time.Now().UTC()
	g := *group
	m.groups[g.ID] = &g
	return nil
}

func (m *MockStore) ListGroups(ctx context.Context) ([]*Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var groups []*Group
	for _, group := range m.groups {
		g := *group
		groups = append(groups, &g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, nil
}

func (m *MockStore) DeleteGroup(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.groups[id]; !ok {
		return ErrGroupNotFound
	}
	for _, user := range m.users {
		if user.GroupID == id {
			return ErrGroupInUse
		}
	}
	delete(m.groups, id)
	return nil
}

// --- events ---

func (m *MockStore) CreateEvent(ctx context.Context, event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailEvents {
		return ErrMockFailure
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	e := *event
	m.events = append(m.events, &e)
	return nil
}

func (m *MockStore) ListEvents(ctx context.Context, filter EventFilter) ([]*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var events []*Event
	for _, event := range m.events {
		if filter.Name != "" && event.Name != filter.Name {
			continue
		}
		if filter.UserID != "" && event.UserID != filter.UserID {
			continue
		}
		if filter.Search != "" &&
			!strings.Contains(event.Name, filter.Search) &&
			!strings.Contains(event.Detail, filter.Search) {
			continue
		}
		e := *event
		events = append(events, &e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].CreatedAt.After(events[j].CreatedAt) })
	return events, nil
}

// Events returns every recorded event, oldest first. Test helper.
func (m *MockStore) Events() []*Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Event, 0, len(m.events))
	for _, event := range m.events {
		e := *event
		out = append(out, &e)
	}
	return out
}

// --- firewall rules ---

func (m *MockStore) CreateFirewallRule(ctx context.Context, rule *FirewallRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	r := *rule
	m.rules[r.ID] = &r
	return nil
}

func (m *MockStore) GetFirewallRule(ctx context.Context, id string) (*FirewallRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rule, ok := m.rules[id]
	if !ok {
		return nil, ErrRuleNotFound
	}
	r := *rule
	return &r, nil
}

func (m *MockStore) UpdateFirewallRule(ctx context.Context, rule *FirewallRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rules[rule.ID]; !ok {
		return ErrRuleNotFound
	}
	r := *rule
	m.rules[r.ID] = &r
	return nil
}

func (m *MockStore) ListFirewallRules(ctx context.Context, groupID string) ([]*FirewallRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rules []*FirewallRule
	for _, rule := range m.rules {
		if groupID != "" && rule.GroupID != groupID {
			continue
		}
		r := *rule
		rules = append(rules, &r)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].CreatedAt.Before(rules[j].CreatedAt) })
	return rules, nil
}

func (m *MockStore) DeleteFirewallRule(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rules[id]; !ok {
		return ErrRuleNotFound
	}
	delete(m.rules, id)
	return nil
}

// --- devices and clients ---

func (m *MockStore) CreateDevice(ctx context.Context, device *Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if device.ID == "" {
		device.ID = uuid.New().String()
	}
	if device.CreatedAt.IsZero() {
		device.CreatedAt = time.Now().UTC()
	}
	d := *device
	m.devices[d.ID] = &d
	return nil
}

func (m *MockStore) ListDevices(ctx context.Context, userID string) ([]*Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var devices []*Device
	for _, device := range m.devices {
		if device.UserID != userID {
			continue
		}
		d := *device
		devices = append(devices, &d)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].CreatedAt.Before(devices[j].CreatedAt) })
	return devices, nil
}

func (m *MockStore) DeleteDevice(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.devices[id]; !ok {
		return ErrDeviceNotFound
	}
	delete(m.devices, id)
	for cid, client := range m.clients {
		if client.DeviceID == id {
			delete(m.clients, cid)
		}
	}
	return nil
}

func (m *MockStore) CreateClient(ctx context.Context, client *Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client.ID == "" {
		client.ID = uuid.New().String()
	}
	if client.ConnectedAt.IsZero() {
		client.ConnectedAt = time.Now().UTC()
	}
	c := *client
	m.clients[c.ID] = &c
	return nil
}

func (m *MockStore) ListClients(ctx context.Context, search string) ([]*Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var clients []*Client
	for _, client := range m.clients {
		if search != "" &&
			!strings.Contains(client.RemoteIP, search) &&
			!strings.Contains(client.VirtualIP, search) {
			continue
		}
		c := *client
		clients = append(clients, &c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].ConnectedAt.After(clients[j].ConnectedAt) })
	return clients, nil
}

func (m *MockStore) DeleteClient(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[id]; !ok {
		return ErrClientNotFound
	}
	delete(m.clients, id)
	return nil
}

// --- settings ---

func (m *MockStore) GetSetting(ctx context.Context, key, fallback string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.settings[key]
	if !ok {
		return fallback, nil
	}
	return value, nil
}

func (m *MockStore) SetSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settings[key] = value
	return nil
}

func (m *MockStore) GetBoolSetting(ctx context.Context, key string, fallback bool) (bool, error) {
	raw, err := m.GetSetting(ctx, key, "")
	if err != nil {
		return false, err
	}
	if raw == "" {
		return fallback, nil
	}
	return raw == "true", nil
}

func (m *MockStore) SetBoolSetting(ctx context.Context, key string, value bool) error {
	raw := "false"
	if value {
		raw = "true"
	}
	return m.SetSetting(ctx, key, raw)
}

func (m *MockStore) GetSettings(ctx context.Context, keys []string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(keys))
	for _, key := range keys {
		out[key] = m.settings[key]
	}
	return out, nil
}

// --- install ---

func (m *MockStore) CompleteInstall(ctx context.Context, group *Group, admin *User, organization string) error {
	if err := m.CreateGroup(ctx, group); err != nil {
		return err
	}
	admin.GroupID = group.ID
	if err := m.CreateUser(ctx, admin); err != nil {
		m.mu.Lock()
		delete(m.groups, group.ID)
		m.mu.Unlock()
		return err
	}
	if err := m.SetSetting(ctx, SettingOrganization, organization); err != nil {
		return err
	}
	return m.SetBoolSetting(ctx, SettingInstalled, true)
}

// --- web sessions ---

func (m *MockStore) GetWebSession(ctx context.Context, id string) (*WebSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok || time.Now().After(session.ExpiresAt) {
		return nil, ErrSessionNotFound
	}

	s := *session
	s.Values = make(map[string]any, len(session.Values))
	for k, v := range session.Values {
		s.Values[k] = v
	}
	return &s, nil
}

func (m *MockStore) SaveWebSession(ctx context.Context, session *WebSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := *session
	s.Values = make(map[string]any, len(session.Values))
	for k, v := range session.Values {
		s.Values[k] = v
	}
	m.sessions[s.ID] = &s
	return nil
}

func (m *MockStore) DeleteWebSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

func (m *MockStore) PurgeExpiredWebSessions(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	now := time.Now()
	for id, session := range m.sessions {
		if now.After(session.ExpiresAt) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}
