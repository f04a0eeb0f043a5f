package llms

import (
	"fmt"

	"github.com/rtmcrc/claude-task-master/pkg/config"
	"github.com/rtmcrc/claude-task-master/pkg/registry"
)

// Registry maps semantic roles (main, research, fallback) to providers.
// Commands resolve a role; whether the bound provider is real or delegating
// is invisible to them.
type Registry struct {
	*registry.BaseRegistry[Provider]
}

// NewRegistry creates an empty role registry.
func NewRegistry() *Registry {
	return &Registry{
		BaseRegistry: registry.NewBaseRegistry[Provider](),
	}
}

// NewRegistryFromConfig builds providers for every configured role.
func NewRegistryFromConfig(cfg *config.Config) (*Registry, error) {
	r := NewRegistry()
	for role, llmCfg := range cfg.LLMs {
		provider, err := createProvider(&llmCfg)
		if err != nil {
			return nil, fmt.Errorf("role %s: %w", role, err)
		}
		if err := r.Register(role, provider); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func createProvider(cfg *config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case config.LLMProviderAgent, "":
		return NewDelegatingProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Provider)
	}
}

// ForRole returns the provider bound to role, falling back to main when the
// role is unknown.
func (r *Registry) ForRole(role string) (Provider, error) {
	if provider, ok := r.Get(role); ok {
		return provider, nil
	}
	if provider, ok := r.Get(config.RoleMain); ok {
		return provider, nil
	}
	return nil, fmt.Errorf("no provider for role %q and no main fallback", role)
}
