package process

import "sync"

// Registry tracks live managers so they can be torn down at program exit.
//
// Go has no interpreter exit hook, so binaries call KillAll from a deferred
// statement or a signal handler in main.
type Registry struct {
	mu       sync.Mutex
	managers map[*Manager]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{managers: make(map[*Manager]struct{})}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds m to the registry.
func (r *Registry) Register(m *Manager) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.managers[m] = struct{}{}
}

// Unregister removes m from the registry. Unknown managers are ignored.
func (r *Registry) Unregister(m *Manager) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.managers, m)
}

// Len returns the number of registered managers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.managers)
}

// KillAll force-kills every registered process tree and empties the registry.
// It returns the number of processes it attempted to kill.
func (r *Registry) KillAll() int {
	r.mu.Lock()
	managers := make([]*Manager, 0, len(r.managers))
	for m := range r.managers {
		managers = append(managers, m)
	}
	r.managers = make(map[*Manager]struct{})
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, m := range managers {
		wg.Add(1)
		go func(m *Manager) {
			defer wg.Done()
			_ = m.Kill() // Best-effort at exit.
		}(m)
	}
	wg.Wait()
	return len(managers)
}
