package lifecycle

import (
	"context"
	"fmt"
	"sync"

	core "github.com/starvault/casebot/internal/app/core/service"
)

// Manager registers Services and starts/stops them as a unit. Start runs
// registrants in registration order and aborts (stopping whatever already
// started) on the first failure; Stop runs in reverse registration order and
// attempts every stop rather than stopping early, since shutdown must make
// a best effort across all components, then returns the first error only.
type Manager struct {
	mu       sync.Mutex
	services []Service
	started  []Service
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Register adds a service to the managed set. Safe to call before Start;
// registering after Start has no effect on already-started services.
func (m *Manager) Register(svc Service) {
	if svc == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = append(m.services, svc)
}

// Start starts every registered service in registration order.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	services := append([]Service(nil), m.services...)
	m.mu.Unlock()

	for _, svc := range services {
		if err := svc.Start(ctx); err != nil {
			m.mu.Lock()
			started := append([]Service(nil), m.started...)
			m.mu.Unlock()
			for i := len(started) - 1; i >= 0; i-- {
				_ = started[i].Stop(ctx)
			}
			return fmt.Errorf("start %s: %w", svc.Name(), err)
		}
		m.mu.Lock()
		m.started = append(m.started, svc)
		m.mu.Unlock()
	}
	return nil
}

// Stop stops every started service in reverse start order, returning the
// first error encountered (if any) after attempting every stop.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	started := append([]Service(nil), m.started...)
	m.started = nil
	m.mu.Unlock()

	var firstErr error
	for i := len(started) - 1; i >= 0; i-- {
		if err := started[i].Stop(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stop %s: %w", started[i].Name(), err)
		}
	}
	return firstErr
}

// Descriptors collects descriptors from every registered service that
// advertises one.
func (m *Manager) Descriptors() []core.Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	providers := make([]DescriptorProvider, 0, len(m.services))
	for _, svc := range m.services {
		if dp, ok := svc.(DescriptorProvider); ok {
			providers = append(providers, dp)
		}
	}
	return CollectDescriptors(providers)
}

// NoopService is a Service that does nothing; useful for composing an
// Application when an optional component (e.g. the long-poll runner in
// webhook mode) is not active.
type NoopService struct {
	ServiceName string
}

// Name returns the configured name.
func (n NoopService) Name() string { return n.ServiceName }

// Start does nothing.
func (n NoopService) Start(context.Context) error { return nil }

// Stop does nothing.
func (n NoopService) Stop(context.Context) error { return nil }
