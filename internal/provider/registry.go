package provider

import (
	"sort"
	"sync"

	"azdoauth/pkg/errors"
)

// Registry holds the configured providers by ID together with the
// credentials each is driven with. It is safe for concurrent use so a config
// reload can swap an entry while requests are in flight.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]entry
}

type entry struct {
	provider Provider
	context  ProviderContext
}

// NewRegistry registers the given providers. IDs must be unique.
func NewRegistry(list ...Provider) (*Registry, error) {
	r := &Registry{providers: make(map[string]entry, len(list))}
	for _, p := range list {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds p without credentials, failing if its ID is already taken.
func (r *Registry) Register(p Provider) error {
	id := p.Info().ID
	if id == "" {
		return errors.NewError(errors.ErrorTypeBadRequest, "provider id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[id]; exists {
		return errors.NewError(errors.ErrorTypeBadRequest, "duplicate provider").WithDetail("provider", id)
	}
	r.providers[id] = entry{provider: p}
	return nil
}

// Replace installs p and its credentials under p's ID whether or not one is
// already present. Readers see either the old pair or the new one.
func (r *Registry) Replace(p Provider, pc ProviderContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Info().ID] = entry{provider: p, context: pc}
}

// Get returns the provider by ID.
func (r *Registry) Get(id string) (Provider, error) {
	p, _, err := r.Resolve(id)
	return p, err
}

// Resolve returns the provider by ID with the credentials installed alongside
// it. The context is zero for providers added with Register.
func (r *Registry) Resolve(id string) (Provider, ProviderContext, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.providers[id]
	if !ok {
		return nil, ProviderContext{}, errors.NewError(errors.ErrorTypeNotFound, "unknown provider").WithDetail("provider", id)
	}
	return e.provider, e.context, nil
}

// List returns the registered providers' info ordered by ID.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.providers))
	for _, e := range r.providers {
		out = append(out, e.provider.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
