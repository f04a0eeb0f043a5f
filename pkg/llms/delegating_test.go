package llms

import (
	"context"
	"testing"

	"github.com/rtmcrc/claude-task-master/pkg/config"
)

func testLLMConfig() *config.LLMConfig {
	cfg := &config.LLMConfig{}
	cfg.SetDefaults(config.RoleMain)
	return cfg
}

func TestDelegatingProvider_GenerateText(t *testing.T) {
	provider, err := NewDelegatingProvider(testLLMConfig())
	if err != nil {
		t.Fatalf("NewDelegatingProvider() error = %v", err)
	}

	res, err := provider.GenerateText(context.Background(), &Request{
		Messages: []Message{{Role: "user", Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("GenerateText() error = %v", err)
	}
	if !res.IsDelegation() {
		t.Fatal("result should be a delegation token")
	}
	if res.InteractionID == "" {
		t.Error("delegation must carry an interaction id")
	}
	if res.Details.ServiceType != ServiceGenerateText {
		t.Errorf("serviceType = %s, want %s", res.Details.ServiceType, ServiceGenerateText)
	}
	if res.Details.Model == "" {
		t.Error("details must carry the model id")
	}
	if res.Details.MaxTokens == 0 {
		t.Error("details should inherit the configured max tokens")
	}
	if res.Text != "" {
		t.Error("a delegation result carries no completion text")
	}
}

func TestDelegatingProvider_UniqueInteractionIDs(t *testing.T) {
	provider, _ := NewDelegatingProvider(testLLMConfig())
	req := &Request{Messages: []Message{{Role: "user", Content: "x"}}}

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		res, err := provider.GenerateText(context.Background(), req)
		if err != nil {
			t.Fatal(err)
		}
		if seen[res.InteractionID] {
			t.Fatalf("duplicate interaction id %s", res.InteractionID)
		}
		seen[res.InteractionID] = true
	}
}

func TestDelegatingProvider_GenerateObjectRequiresSchema(t *testing.T) {
	provider, _ := NewDelegatingProvider(testLLMConfig())

	_, err := provider.GenerateObject(context.Background(), &Request{
		Messages: []Message{{Role: "user", Content: "x"}},
	})
	if err == nil {
		t.Error("generate_object without schema should fail")
	}

	res, err := provider.GenerateObject(context.Background(), &Request{
		Messages:   []Message{{Role: "user", Content: "x"}},
		Schema:     map[string]any{"type": "object"},
		ObjectName: "tasks",
	})
	if err != nil {
		t.Fatalf("GenerateObject() error = %v", err)
	}
	if res.Details.ObjectName != "tasks" {
		t.Errorf("objectName = %q, want tasks", res.Details.ObjectName)
	}
}

func TestDelegatingProvider_StreamTextDelegatesAsSingleResponse(t *testing.T) {
	provider, _ := NewDelegatingProvider(testLLMConfig())

	res, err := provider.StreamText(context.Background(), &Request{
		Messages: []Message{{Role: "user", Content: "x"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	// The protocol has no streaming form; the requested service type is
	// still recorded verbatim.
	if res.Details.ServiceType != ServiceStreamText {
		t.Errorf("serviceType = %s, want %s", res.Details.ServiceType, ServiceStreamText)
	}
}

func TestDelegatingProvider_ValidateAuth(t *testing.T) {
	provider, _ := NewDelegatingProvider(testLLMConfig())
	if err := provider.ValidateAuth(context.Background()); err != nil {
		t.Errorf("ValidateAuth() error = %v, want nil", err)
	}
}

func TestDelegatingProvider_EmptyRequest(t *testing.T) {
	provider, _ := NewDelegatingProvider(testLLMConfig())
	if _, err := provider.GenerateText(context.Background(), nil); err == nil {
		t.Error("nil request should fail")
	}
	if _, err := provider.GenerateText(context.Background(), &Request{}); err == nil {
		t.Error("empty message list should fail")
	}
}

func TestRegistry_ForRoleFallsBackToMain(t *testing.T) {
	cfg := &config.Config{}
	cfg.SetDefaults()

	registry, err := NewRegistryFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewRegistryFromConfig() error = %v", err)
	}

	mainProvider, err := registry.ForRole("main")
	if err != nil {
		t.Fatalf("ForRole(main) error = %v", err)
	}
	if mainProvider == nil {
		t.Fatal("main provider is nil")
	}

	unknown, err := registry.ForRole("nonexistent-role")
	if err != nil {
		t.Fatalf("ForRole(unknown) error = %v", err)
	}
	if unknown != mainProvider {
		t.Error("unknown roles should fall back to main")
	}
}
