package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taskmaster.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultTag != "master" {
		t.Errorf("DefaultTag = %q, want master", cfg.DefaultTag)
	}
	if cfg.DelegationTTL() != DefaultDelegationTTL {
		t.Errorf("DelegationTTL() = %v, want %v", cfg.DelegationTTL(), DefaultDelegationTTL)
	}
	if cfg.Server.Transport != "stdio" {
		t.Errorf("Transport = %q, want stdio", cfg.Server.Transport)
	}
	for _, role := range []string{RoleMain, RoleResearch, RoleFallback} {
		llm, ok := cfg.LLMs[role]
		if !ok {
			t.Fatalf("role %s missing", role)
		}
		if llm.Provider != LLMProviderAgent {
			t.Errorf("role %s provider = %q, want agent", role, llm.Provider)
		}
		if llm.Model == "" {
			t.Errorf("role %s has no default model", role)
		}
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
delegation_ttl_ms: 60000
default_tag: feature
debug: true
llms:
  main:
    model: custom-model
    max_tokens: 1000
server:
  transport: http
  port: 9090
  metrics: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DelegationTTL() != time.Minute {
		t.Errorf("DelegationTTL() = %v, want 1m", cfg.DelegationTTL())
	}
	if cfg.DefaultTag != "feature" {
		t.Errorf("DefaultTag = %q", cfg.DefaultTag)
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("debug: true should force logger level debug, got %q", cfg.Logger.Level)
	}
	if cfg.LLMs["main"].Model != "custom-model" {
		t.Errorf("main model = %q", cfg.LLMs["main"].Model)
	}
	if cfg.LLMs["main"].MaxTokens != 1000 {
		t.Errorf("main max_tokens = %d", cfg.LLMs["main"].MaxTokens)
	}
	if cfg.Server.Port != 9090 || !cfg.Server.Metrics {
		t.Errorf("server = %+v", cfg.Server)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TM_TEST_MODEL", "env-model")

	path := writeConfig(t, `
llms:
  main:
    model: ${TM_TEST_MODEL}
  research:
    model: ${TM_TEST_MISSING:-fallback-model}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLMs["main"].Model != "env-model" {
		t.Errorf("main model = %q, want env-model", cfg.LLMs["main"].Model)
	}
	if cfg.LLMs["research"].Model != "fallback-model" {
		t.Errorf("research model = %q, want fallback-model", cfg.LLMs["research"].Model)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative ttl", "delegation_ttl_ms: -5"},
		{"bad transport", "server:\n  transport: carrier-pigeon"},
		{"bad log level", "logger:\n  level: noisy"},
		{"unknown provider", "llms:\n  main:\n    provider: openai"},
		{"unknown key", "no_such_section: true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestExpandString(t *testing.T) {
	t.Setenv("TM_VAR", "value")

	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"${TM_VAR}", "value"},
		{"$TM_VAR", "value"},
		{"${TM_UNSET:-def}", "def"},
		{"${TM_VAR:-def}", "value"},
		{"prefix-${TM_VAR}-suffix", "prefix-value-suffix"},
	}
	for _, tt := range tests {
		if got := expandString(tt.in); got != tt.want {
			t.Errorf("expandString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
