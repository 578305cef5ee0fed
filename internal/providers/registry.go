package providers

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the configured providers and the class-to-provider
// mapping used by model selection
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	// byClass maps a model class to the provider and model serving it
	byClass map[string]Selection
}

// NewRegistry creates an empty provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		byClass:   make(map[string]Selection),
	}
}

// Register adds a provider and binds one of its models to a class
func (r *Registry) Register(p Provider, class, model string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
	r.byClass[class] = Selection{Provider: p.Name(), Model: model, Class: class}
}

// Get returns a provider by name
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	return p, nil
}

// ForClass returns the selection bound to a model class
func (r *Registry) ForClass(class string) (Selection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sel, ok := r.byClass[class]
	if !ok {
		return Selection{}, fmt.Errorf("no provider bound to class %q", class)
	}
	return sel, nil
}

// Names lists registered provider names in stable order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
