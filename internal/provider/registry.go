package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Registry is a thread-safe registry of data providers. It maps provider
// names to Provider instances and maintains an index of which providers
// serve which data kinds.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	kindIdx   map[DataKind][]string // kind → provider names (priority order)
	defaults  map[DataKind]string   // kind → default provider name
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		kindIdx:   make(map[DataKind][]string),
		defaults:  make(map[DataKind]string),
	}
}

// Register adds a provider to the registry. Duplicate registrations
// overwrite the previous entry.
func (r *Registry) Register(p Provider) error {
	info := p.Info()
	if info.Name == "" {
		return fmt.Errorf("provider name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[info.Name] = p

	for _, kind := range p.SupportedKinds() {
		existing := r.kindIdx[kind]
		found := false
		for _, name := range existing {
			if name == info.Name {
				found = true
				break
			}
		}
		if !found {
			r.kindIdx[kind] = append(existing, info.Name)
		}
		if _, ok := r.defaults[kind]; !ok {
			r.defaults[kind] = info.Name
		}
	}

	return nil
}

// Get returns a provider by name, or an error if not found.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}
	return p, nil
}

// List returns info about all registered providers, sorted by name.
func (r *Registry) List() []ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ProviderInfo, 0, len(r.providers))
	for _, p := range r.providers {
		infos = append(infos, p.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// ProvidersFor returns the names of providers serving the given kind,
// in priority order (first = default).
func (r *Registry) ProvidersFor(kind DataKind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := r.kindIdx[kind]
	result := make([]string, len(names))
	copy(result, names)
	return result
}

// SetDefault sets the default provider for a data kind.
func (r *Registry) SetDefault(kind DataKind, providerName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[providerName]
	if !ok {
		return &ErrProviderNotFound{Name: providerName}
	}
	if p.Fetcher(kind) == nil {
		return &ErrKindNotSupported{Provider: providerName, Kind: kind}
	}

	r.defaults[kind] = providerName
	return nil
}

// Fetch retrieves data of the given kind using the provider named in
// params (or the kind's default when absent).
func (r *Registry) Fetch(ctx context.Context, kind DataKind, params QueryParams) (*FetchResult, error) {
	providerName := params[ParamProvider]

	r.mu.RLock()
	if providerName == "" {
		providerName = r.defaults[kind]
	}
	p, ok := r.providers[providerName]
	r.mu.RUnlock()

	if !ok || providerName == "" {
		return nil, &ErrProviderNotFound{Name: providerName}
	}

	fetcher := p.Fetcher(kind)
	if fetcher == nil {
		return nil, &ErrKindNotSupported{Provider: providerName, Kind: kind}
	}

	if err := ValidateParams(params, fetcher.RequiredParams()); err != nil {
		return nil, err
	}

	result, err := fetcher.Fetch(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("provider %q fetch %s: %w", providerName, kind, err)
	}

	result.Provider = providerName
	result.Kind = kind
	if result.FetchedAt.IsZero() {
		result.FetchedAt = time.Now()
	}

	return result, nil
}
