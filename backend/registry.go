package backend

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/framegraph"
)

// Factory creates a new, unopened backend instance.
type Factory func() DeviceBackend

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for backend selection (first that opens wins).
	// Real GPU first, the recording device as fallback.
	backendPriority = []string{BackendHAL, BackendTrace}
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it is replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the sorted names of registered backends.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Get returns a new backend instance by name.
// Returns nil if the backend is not registered.
func Get(name string) DeviceBackend {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()
	if !ok {
		return nil
	}
	return factory()
}

// Open looks up a backend by name and opens its device.
func Open(name string) (DeviceBackend, framegraph.Device, error) {
	b := Get(name)
	if b == nil {
		return nil, nil, fmt.Errorf("%w: %q (registered: %v)", ErrBackendNotAvailable, name, Available())
	}
	dev, err := b.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("backend %s: open: %w", name, err)
	}
	return b, dev, nil
}

// Default opens the best available backend based on priority, then any
// other registered backend. Backends that fail to open are skipped.
func Default() (DeviceBackend, framegraph.Device, error) {
	names := slices.Clone(backendPriority)
	for _, name := range Available() {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	log := framegraph.Logger()
	for _, name := range names {
		if !IsRegistered(name) {
			continue
		}
		b, dev, err := Open(name)
		if err != nil {
			log.Warn("backend: skipping", "backend", name, "err", err)
			continue
		}
		log.Info("backend: selected", "backend", name)
		return b, dev, nil
	}
	return nil, nil, ErrBackendNotAvailable
}
