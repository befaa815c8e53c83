package data

import (
	"sync"

	"telegram-campaign-engine/internal/biz/repo"
)

// Registry is the process-wide provider registry. Registration order fixes
// the tail of every fallback chain.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]repo.Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]repo.Provider)}
}

// Register adds a provider under its name; a duplicate name replaces the
// previous provider without changing its chain position.
func (r *Registry) Register(p repo.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	if _, exists := r.byName[name]; !exists {
		r.order = append(r.order, name)
	}
	r.byName[name] = p
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (repo.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[name]
	return p, ok
}

// Names returns the registered provider names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Chain builds the fallback chain: preferred first, then fallback, then the
// remaining providers in registration order. Unknown names are skipped and
// duplicates collapsed.
func (r *Registry) Chain(preferred, fallback string) []repo.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var chain []repo.Provider
	seen := make(map[string]bool)
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		if p, ok := r.byName[name]; ok {
			chain = append(chain, p)
			seen[name] = true
		}
	}

	add(preferred)
	add(fallback)
	for _, name := range r.order {
		add(name)
	}
	return chain
}
