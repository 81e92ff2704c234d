package session

import (
	"context"
	"sync"

	"callcenter-platform/internal/calls"
	"callcenter-platform/internal/telephony"
)

// Manager keeps one Controller per operator on this replica.
type Manager struct {
	deps Deps
	opts Options

	mu          sync.Mutex
	controllers map[string]*Controller
}

var _ telephony.StatusSink = (*Manager)(nil)

func NewManager(deps Deps, opts Options) *Manager {
	return &Manager{
		deps:        deps,
		opts:        opts,
		controllers: map[string]*Controller{},
	}
}

// For returns the operator's controller, creating it on first use.
func (m *Manager) For(operatorID string) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.controllers[operatorID]
	if !ok {
		c = NewController(operatorID, m.deps, m.opts)
		m.controllers[operatorID] = c
	}
	return c
}

func (m *Manager) Get(operatorID string) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.controllers[operatorID]
	return c, ok
}

// ApplyProviderStatus routes a pushed provider status to the controller
// whose live call carries the ref.
func (m *Manager) ApplyProviderStatus(ctx context.Context, providerCallRef string, status calls.ProviderStatus) bool {
	for _, c := range m.snapshot() {
		if c.ApplyProviderStatus(ctx, providerCallRef, status) {
			return true
		}
	}
	return false
}

func (m *Manager) snapshot() []*Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Controller, 0, len(m.controllers))
	for _, c := range m.controllers {
		out = append(out, c)
	}
	return out
}

// Close stops background work on every controller.
func (m *Manager) Close() {
	for _, c := range m.snapshot() {
		c.Close()
	}
}
