package retriever

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry maps provider names and aliases to search providers.
type Registry struct {
	providers map[string]Provider
	aliases   map[string]string
	mu        sync.RWMutex
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		aliases:   make(map[string]string),
	}
}

// Endpoints overrides provider base URLs. Empty fields use the defaults.
type Endpoints struct {
	Scholar  string `mapstructure:"scholar"`
	Crossref string `mapstructure:"crossref"`
}

// NewDefaultRegistry registers the built-in providers sharing client.
func NewDefaultRegistry(client *Client, endpoints Endpoints) *Registry {
	r := NewRegistry()

	// Registration into a fresh registry cannot conflict.
	_ = r.Register(NewScholarProvider(client, endpoints.Scholar))
	_ = r.Register(NewCrossrefProvider(client, endpoints.Crossref))
	_ = r.Register(NoneProvider{})
	_ = r.RegisterAlias("google-scholar", "scholar")
	_ = r.RegisterAlias("off", "none")

	return r
}

// Register adds a provider.
func (r *Registry) Register(provider Provider) error {
	if provider == nil {
		return fmt.Errorf("provider cannot be nil")
	}

	name := normalizeName(provider.Name())
	if name == "" {
		return fmt.Errorf("provider must have a non-empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("provider '%s' already registered", name)
	}

	if _, exists := r.aliases[name]; exists {
		return fmt.Errorf("provider '%s' conflicts with an existing alias", name)
	}

	r.providers[name] = provider

	return nil
}

// RegisterAlias creates an alternative name for a registered provider.
func (r *Registry) RegisterAlias(alias, name string) error {
	alias = normalizeName(alias)
	name = normalizeName(name)

	if alias == "" || name == "" {
		return fmt.Errorf("alias and provider name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; !exists {
		return fmt.Errorf("provider '%s' not found", name)
	}

	if _, exists := r.aliases[alias]; exists {
		return fmt.Errorf("alias '%s' already registered", alias)
	}

	if _, exists := r.providers[alias]; exists {
		return fmt.Errorf("alias '%s' conflicts with existing provider", alias)
	}

	r.aliases[alias] = name

	return nil
}

// Get returns a provider by name or alias, case-insensitively.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	normalized := normalizeName(name)

	if provider, exists := r.providers[normalized]; exists {
		return provider, nil
	}

	if real, exists := r.aliases[normalized]; exists {
		if provider, exists := r.providers[real]; exists {
			return provider, nil
		}
	}

	return nil, fmt.Errorf("no search provider registered as '%s'", name)
}

// List returns the registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// ListWithAliases returns every provider name with its aliases.
func (r *Registry) ListWithAliases() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string][]string, len(r.providers))
	for name := range r.providers {
		result[name] = []string{}
	}

	for alias, name := range r.aliases {
		result[name] = append(result[name], alias)
	}

	for name := range result {
		sort.Strings(result[name])
	}

	return result
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
