package providers

import (
	"reflect"
	"sort"
	"sync"

	"routing_gateway/internal/logging"
)

// Factory builds a provider from its catalog config
type Factory func(cfg Config) (Provider, error)

// Registry holds the live provider instances keyed by catalog id
type Registry struct {
	mu        sync.RWMutex
	factory   Factory
	providers map[string]Provider
	configs   map[string]Config
	logger    *logging.Logger
}

// NewRegistry creates an empty registry that builds providers with factory.
// A nil factory means New.
func NewRegistry(factory Factory) *Registry {
	if factory == nil {
		factory = New
	}
	return &Registry{
		factory:   factory,
		providers: make(map[string]Provider),
		configs:   make(map[string]Config),
		logger:    logging.NewLogger("provider-registry"),
	}
}

// Sync makes the registry match cfgs: new providers are created, changed ones
// rebuilt and missing ones closed. A config that fails to build is logged and
// skipped so one bad entry does not take down the others.
func (r *Registry) Sync(cfgs []Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(cfgs))
	for _, cfg := range cfgs {
		seen[cfg.ID] = true
		if old, ok := r.configs[cfg.ID]; ok && reflect.DeepEqual(old, cfg) {
			continue
		}

		p, err := r.factory(cfg)
		if err != nil {
			r.logger.Error("Failed to create provider", "provider", cfg.ID, "type", cfg.Type, "error", err)
			continue
		}
		if old, ok := r.providers[cfg.ID]; ok {
			old.Close()
		}
		r.providers[cfg.ID] = p
		r.configs[cfg.ID] = cfg
		r.logger.Info("Provider ready", "provider", cfg.ID, "type", p.Type())
	}

	for id, p := range r.providers {
		if seen[id] {
			continue
		}
		p.Close()
		delete(r.providers, id)
		delete(r.configs, id)
		r.logger.Info("Provider removed", "provider", id)
	}
}

// Get retrieves a provider by ID
func (r *Registry) Get(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// IDs returns the registered provider ids, sorted
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close closes all providers
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.providers {
		p.Close()
		delete(r.providers, id)
	}
	r.configs = make(map[string]Config)
	return nil
}
