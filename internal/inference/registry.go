package inference

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/appforge-ai/appforge/internal/config"
	"github.com/appforge-ai/appforge/internal/logging"
	"github.com/appforge-ai/appforge/pkg/types"
)

// Registry manages all available providers and the default model choice.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider

	defaultProviderID string
	defaultModelID    string
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider to the registry. The first registered
// provider becomes the default until SetDefault overrides it.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[p.ID()] = p
	if r.defaultProviderID == "" {
		r.defaultProviderID = p.ID()
		r.defaultModelID = p.DefaultModel()
	}
}

// SetDefault sets the default provider and model.
func (r *Registry) SetDefault(providerID, modelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultProviderID = providerID
	r.defaultModelID = modelID
}

// Default returns the default provider and model ids.
func (r *Registry) Default() (providerID, modelID string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultProviderID, r.defaultModelID
}

// Get retrieves a provider by ID.
func (r *Registry) Get(providerID string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", providerID)
	}
	return p, nil
}

// IDs returns all registered provider ids, sorted.
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

// providerFactory builds one provider kind from its config entry.
type providerFactory func(ctx context.Context, cfg types.ProviderConfig) (Provider, error)

var factories = map[string]providerFactory{
	"claude": NewClaudeProvider,
	"openai": NewOpenAIProvider,
	"ark":    NewArkProvider,
}

// InitializeProviders creates and registers all providers configured in
// cfg. Providers whose credentials are missing are skipped with a
// warning rather than failing startup.
func InitializeProviders(ctx context.Context, cfg *types.Config) (*Registry, error) {
	registry := NewRegistry()
	log := logging.Component("inference")

	for id, factory := range factories {
		pc := cfg.Provider[id]
		if pc.Disabled {
			continue
		}

		p, err := factory(ctx, pc)
		if err != nil {
			log.Warn().Str("provider", id).Err(err).Msg("provider unavailable")
			continue
		}
		registry.Register(p)
		log.Info().Str("provider", id).Str("model", p.DefaultModel()).Msg("provider registered")
	}

	if providerID, modelID := config.DefaultModel(cfg); providerID != "" {
		if _, err := registry.Get(providerID); err != nil {
			return registry, fmt.Errorf("default model %q: %w", cfg.Model, err)
		}
		registry.SetDefault(providerID, modelID)
	}

	return registry, nil
}
