// Package config defines the Task Master configuration document.
//
// Every section follows the same contract: a struct with yaml tags, a
// SetDefaults method applying defaults in place, and a Validate method
// returning the first problem found. The loader runs env expansion before
// decoding, so any string value may use ${VAR}, ${VAR:-default} or $VAR.
package config

import (
	"fmt"
	"time"
)

// DefaultDelegationTTL bounds how long a pending interaction may wait for the
// agent before the reaper rejects it. Agent-side LLM calls for a large PRD can
// run for minutes, so the default is generous.
const DefaultDelegationTTL = 30 * time.Minute

// DefaultTag is the task store tag used when none is supplied.
const DefaultTag = "master"

// Config is the root configuration document.
type Config struct {
	// DelegationTTLMs is the reaper threshold for pending interactions, in
	// milliseconds. 0 means DefaultDelegationTTL.
	DelegationTTLMs int `yaml:"delegation_ttl_ms,omitempty"`

	// DefaultTag is the task store tag used when a call supplies none.
	DefaultTag string `yaml:"default_tag,omitempty"`

	// Debug enables verbose logging (equivalent to logger.level: debug).
	Debug bool `yaml:"debug,omitempty"`

	// Logger configures the log sink.
	Logger LoggerConfig `yaml:"logger,omitempty"`

	// LLMs maps semantic roles (main, research, fallback) to providers.
	LLMs map[string]LLMConfig `yaml:"llms,omitempty"`

	// Server configures the tool channel transport.
	Server ServerConfig `yaml:"server,omitempty"`
}

// SetDefaults applies default values to all sections.
func (c *Config) SetDefaults() {
	if c.DefaultTag == "" {
		c.DefaultTag = DefaultTag
	}
	if c.LLMs == nil {
		c.LLMs = map[string]LLMConfig{}
	}
	for _, role := range []string{RoleMain, RoleResearch, RoleFallback} {
		llm := c.LLMs[role]
		llm.SetDefaults(role)
		c.LLMs[role] = llm
	}
	c.Logger.SetDefaults()
	if c.Debug {
		c.Logger.Level = "debug"
	}
	c.Server.SetDefaults()
}

// Validate checks the whole document.
func (c *Config) Validate() error {
	if c.DelegationTTLMs < 0 {
		return fmt.Errorf("delegation_ttl_ms cannot be negative")
	}
	for role, llm := range c.LLMs {
		if err := llm.Validate(); err != nil {
			return fmt.Errorf("llms.%s: %w", role, err)
		}
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// DelegationTTL returns the effective reaper threshold.
func (c *Config) DelegationTTL() time.Duration {
	if c.DelegationTTLMs <= 0 {
		return DefaultDelegationTTL
	}
	return time.Duration(c.DelegationTTLMs) * time.Millisecond
}

// ServerConfig configures the tool channel transport.
type ServerConfig struct {
	// Transport is "stdio" (default) or "http" (SSE endpoint).
	Transport string `yaml:"transport,omitempty"`

	// Host for the http transport.
	Host string `yaml:"host,omitempty"`

	// Port for the http transport.
	Port int `yaml:"port,omitempty"`

	// Metrics exposes /metrics on the http transport.
	Metrics bool `yaml:"metrics,omitempty"`
}

// SetDefaults applies default values.
func (c *ServerConfig) SetDefaults() {
	if c.Transport == "" {
		c.Transport = "stdio"
	}
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
}

// Validate checks the server configuration.
func (c *ServerConfig) Validate() error {
	switch c.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid transport %q (valid: stdio, http)", c.Transport)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}
