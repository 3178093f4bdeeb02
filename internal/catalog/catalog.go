// Package catalog holds the set of (provider, model) pairs the gateway is
// allowed to dispatch to.
package catalog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"routing_gateway/internal/logging"
	"routing_gateway/internal/models"
	"routing_gateway/internal/providers"
)

// snapshot is immutable once published
type snapshot struct {
	models    []models.ModelDescriptor
	providers []string
	configs   []providers.Config
	index     map[string]map[string]struct{} // provider -> model set
}

func newSnapshot(entries []*Entries) *snapshot {
	s := &snapshot{index: make(map[string]map[string]struct{})}
	configured := make(map[string]bool)

	for _, e := range entries {
		for _, cfg := range e.Providers {
			if configured[cfg.ID] {
				continue
			}
			configured[cfg.ID] = true
			s.configs = append(s.configs, cfg)
			s.addProvider(cfg.ID)
		}
		for _, d := range e.Models {
			s.addProvider(d.Provider)
			if _, ok := s.index[d.Provider][d.Model]; ok {
				continue
			}
			s.index[d.Provider][d.Model] = struct{}{}
			s.models = append(s.models, d)
		}
	}

	// Providers known only from the database get a stub implementation.
	for _, id := range s.providers {
		if !configured[id] {
			s.configs = append(s.configs, providers.Config{ID: id, Type: providers.TypeStub})
		}
	}
	return s
}

func (s *snapshot) addProvider(id string) {
	if _, ok := s.index[id]; ok {
		return
	}
	s.index[id] = make(map[string]struct{})
	s.providers = append(s.providers, id)
}

// Catalog merges its sources into one read-mostly view. Readers never block
// on a reload.
type Catalog struct {
	sources []Source
	current atomic.Pointer[snapshot]

	mu        sync.Mutex // serializes reloads
	listeners []func(configs []providers.Config)
	logger    *logging.Logger
}

// New creates a catalog over sources. Earlier sources win on ordering. The
// catalog is empty until Reload succeeds.
func New(sources ...Source) *Catalog {
	c := &Catalog{sources: sources, logger: logging.NewLogger("catalog")}
	c.current.Store(newSnapshot(nil))
	return c
}

// NewStatic creates a catalog with a fixed model list
func NewStatic(list ...models.ModelDescriptor) *Catalog {
	c := New()
	c.current.Store(newSnapshot([]*Entries{{Models: list}}))
	return c
}

// OnReload registers fn to receive the provider configs of every successful
// reload. Listeners run before the new catalog becomes visible to lookups.
func (c *Catalog) OnReload(fn func(configs []providers.Config)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Reload reads every source and swaps in the merged result. If any source
// fails the previous catalog stays in place.
func (c *Catalog) Reload(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	all := make([]*Entries, 0, len(c.sources))
	for _, src := range c.sources {
		entries, err := src.Load(ctx)
		if err != nil {
			return fmt.Errorf("catalog source %s: %w", src.Name(), err)
		}
		all = append(all, entries)
	}

	next := newSnapshot(all)
	for _, fn := range c.listeners {
		configs := make([]providers.Config, len(next.configs))
		copy(configs, next.configs)
		fn(configs)
	}

	c.current.Store(next)
	c.logger.Debug("Catalog reloaded", "models", len(next.models), "providers", len(next.providers))
	return nil
}

// Run reloads every interval until ctx is cancelled
func (c *Catalog) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Reload(ctx); err != nil {
				c.logger.Warn("Catalog reload failed, keeping previous catalog", "error", err)
			}
		}
	}
}

// Has reports whether provider serves model
func (c *Catalog) Has(provider, model string) bool {
	_, ok := c.current.Load().index[provider][model]
	return ok
}

// HasProvider reports whether provider appears in the catalog
func (c *Catalog) HasProvider(provider string) bool {
	_, ok := c.current.Load().index[provider]
	return ok
}

// ProvidersFor returns the providers serving model, ordered by the first
// catalog row that lists each of them
func (c *Catalog) ProvidersFor(model string) []string {
	s := c.current.Load()
	var out []string
	seen := make(map[string]struct{})
	for _, d := range s.models {
		if d.Model != model {
			continue
		}
		if _, dup := seen[d.Provider]; dup {
			continue
		}
		seen[d.Provider] = struct{}{}
		out = append(out, d.Provider)
	}
	return out
}

// List returns every (provider, model) pair in catalog order
func (c *Catalog) List() []models.ModelDescriptor {
	s := c.current.Load()
	out := make([]models.ModelDescriptor, len(s.models))
	copy(out, s.models)
	return out
}

// Providers returns the distinct provider ids in catalog order
func (c *Catalog) Providers() []string {
	s := c.current.Load()
	out := make([]string, len(s.providers))
	copy(out, s.providers)
	return out
}

// ProviderConfigs returns how to build each catalog provider
func (c *Catalog) ProviderConfigs() []providers.Config {
	s := c.current.Load()
	out := make([]providers.Config, len(s.configs))
	copy(out, s.configs)
	return out
}
