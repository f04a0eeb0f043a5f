package config

import "fmt"

// Semantic LLM roles. Commands resolve a role, never a concrete provider.
const (
	RoleMain     = "main"
	RoleResearch = "research"
	RoleFallback = "fallback"
)

// LLMProvider identifies the provider type bound to a role.
//
// The Host never performs model calls itself: the only provider this binary
// constructs is "agent", which turns every call into a delegation token for
// the driving agent. The enum leaves room for direct providers supplied by an
// embedding application.
type LLMProvider string

const (
	LLMProviderAgent LLMProvider = "agent"
)

// LLMConfig configures the provider for one semantic role.
type LLMConfig struct {
	// Provider type. Default: agent.
	Provider LLMProvider `yaml:"provider,omitempty"`

	// Model identifier forwarded verbatim in delegation directives,
	// e.g. "claude-sonnet-4-20250514".
	Model string `yaml:"model,omitempty"`

	// MaxTokens limit forwarded in delegation directives.
	MaxTokens int `yaml:"max_tokens,omitempty"`

	// Temperature forwarded in delegation directives.
	Temperature *float64 `yaml:"temperature,omitempty"`
}

// SetDefaults applies default values for the given role.
func (c *LLMConfig) SetDefaults(role string) {
	if c.Provider == "" {
		c.Provider = LLMProviderAgent
	}
	if c.Model == "" {
		switch role {
		case RoleResearch:
			c.Model = "claude-sonnet-4-20250514"
		default:
			c.Model = "claude-sonnet-4-20250514"
		}
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 64000
	}
	if c.Temperature == nil {
		temp := 0.2
		c.Temperature = &temp
	}
}

// Validate checks the LLM configuration.
func (c *LLMConfig) Validate() error {
	switch c.Provider {
	case LLMProviderAgent:
	case "":
	default:
		return fmt.Errorf("unsupported provider %q (this build only delegates: agent)", c.Provider)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens cannot be negative")
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("temperature must be within [0, 2]")
	}
	return nil
}
