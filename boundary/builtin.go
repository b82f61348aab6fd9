package boundary

import (
	"fmt"
	"sync"

	"github.com/jonwraymond/boundary/adapter"
)

// AdapterFactory builds a built-in adapter for a provider name with no
// per-call state beyond what the factory itself captures.
type AdapterFactory func() adapter.Adapter

// builtinRegistry is the process-wide map of adapter factories by
// provider name, mirroring auth.Registry/secret.Registry's factory-map
// shape. Registering a factory here does not instantiate an adapter;
// instantiation happens lazily, once per Boundary instance, in
// builtinCache below -- built-in adapters must never be process-global
// instances, only their factories may be shared.
type builtinRegistry struct {
	mu        sync.RWMutex
	factories map[string]AdapterFactory
}

func newBuiltinRegistry() *builtinRegistry {
	return &builtinRegistry{factories: make(map[string]AdapterFactory)}
}

// Register adds a built-in adapter factory under name. Re-registering
// an existing name is an error, matching auth.Registry's semantics.
func (r *builtinRegistry) Register(name string, factory AdapterFactory) error {
	if name == "" || factory == nil {
		return fmt.Errorf("boundary: invalid built-in adapter registration")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("boundary: built-in adapter %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

func (r *builtinRegistry) lookup(name string) (AdapterFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[name]
	return factory, ok
}

// Builtins is the default process-wide set of built-in adapter
// factories a host application may register concrete vendor adapters
// into. Each Boundary instance still instantiates and caches its own
// adapter from these factories; the registry only shares the recipe.
var Builtins = newBuiltinRegistry()

// RegisterBuiltin adds factory as the built-in adapter for name to the
// default registry, for use by provider-name-only ProviderConfig
// entries that leave Adapter unset.
func RegisterBuiltin(name string, factory AdapterFactory) error {
	return Builtins.Register(name, factory)
}

// builtinCache is the per-instance cache of lazily instantiated
// built-in adapters. Keeping this on the Boundary instance (rather
// than on builtinRegistry) is what guarantees built-in adapters are
// never shared process-globally.
type builtinCache struct {
	mu       sync.Mutex
	adapters map[string]adapter.Adapter
}

func newBuiltinCache() *builtinCache {
	return &builtinCache{adapters: make(map[string]adapter.Adapter)}
}

func (c *builtinCache) get(name string) (adapter.Adapter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if a, ok := c.adapters[name]; ok {
		return a, nil
	}
	factory, ok := Builtins.lookup(name)
	if !ok {
		return nil, fmt.Errorf("boundary: no adapter configured and no built-in adapter registered for provider %q", name)
	}
	a := factory()
	c.adapters[name] = a
	return a, nil
}
