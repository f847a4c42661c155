// ABOUTME: In-memory Controller implementation for handler tests
// ABOUTME: Tracks actions and lets tests force failures

package vpn

import (
	"context"
	"sync"
)

// MockController is an in-memory Controller for tests.
type MockController struct {
	mu      sync.Mutex
	active  bool
	actions []string

	// FailWith, when set, is returned by every control action.
	FailWith error
}

// NewMockController creates a mock in the given initial state.
func NewMockController(active bool) *MockController {
	return &MockController{active: active}
}

func (m *MockController) Status(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, nil
}

func (m *MockController) Start(ctx context.Context) error {
	return m.apply("start", true)
}

func (m *MockController) Stop(ctx context.Context) error {
	return m.apply("stop", false)
}

func (m *MockController) Restart(ctx context.Context) error {
	return m.apply("restart", true)
}

func (m *MockController) apply(action string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return m.FailWith
	}
	m.actions = append(m.actions, action)
	m.active = active
	return nil
}

// Actions returns the control verbs applied so far.
func (m *MockController) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.actions...)
}
