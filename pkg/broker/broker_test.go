package broker

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/rtmcrc/claude-task-master/pkg/interaction"
	"github.com/rtmcrc/claude-task-master/pkg/protocol"
	"github.com/rtmcrc/claude-task-master/pkg/tool"
)

func call(args map[string]any) *tool.Call {
	return &tool.Call{
		Args:    args,
		Session: interaction.Session{ID: "test", ProjectRoot: "/p"},
		Logger:  slog.Default(),
	}
}

func directiveArgs(id string) map[string]any {
	return map[string]any{
		"interactionId": id,
		"delegatedCallDetails": map[string]any{
			"originalCommand": "parse-prd",
			"role":            "main",
			"serviceType":     "generate_object",
			"requestParameters": map[string]any{
				"model":    "test-model",
				"numTasks": 3,
			},
		},
		"projectRoot": "/p",
	}
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	var protoErr *protocol.Error
	if !errors.As(err, &protoErr) {
		t.Fatalf("error %v is not a protocol error", err)
	}
	if protoErr.Code != code {
		t.Errorf("code = %s, want %s", protoErr.Code, code)
	}
}

func TestBroker_Directive(t *testing.T) {
	b := New()

	result, err := b.Execute(context.Background(), call(directiveArgs("I1")))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if got := result.Value["toolResponseSource"]; got != protocol.SourceHostToAgent {
		t.Errorf("toolResponseSource = %v, want %s", got, protocol.SourceHostToAgent)
	}
	if got := result.Value["status"]; got != protocol.StatusPendingAgentAction {
		t.Errorf("status = %v, want %s", got, protocol.StatusPendingAgentAction)
	}
	if got := result.Value["interactionId"]; got != "I1" {
		t.Errorf("interactionId = %v, want I1", got)
	}

	request, ok := result.Value["llmRequestForAgent"].(map[string]any)
	if !ok {
		t.Fatal("llmRequestForAgent missing")
	}
	if request["model"] != "test-model" {
		t.Errorf("llmRequestForAgent.model = %v", request["model"])
	}

	signal, ok := result.Value["pendingInteractionSignalToAgent"].(map[string]any)
	if !ok {
		t.Fatal("pendingInteractionSignalToAgent missing")
	}
	if signal["type"] != protocol.PendingSignalType {
		t.Errorf("signal type = %v, want %s", signal["type"], protocol.PendingSignalType)
	}
	if signal["interactionId"] != "I1" {
		t.Errorf("signal interactionId = %v", signal["interactionId"])
	}
	if instructions, _ := signal["instructions"].(string); instructions == "" {
		t.Error("instructions block is empty")
	}
}

func TestBroker_DirectiveGeneratesID(t *testing.T) {
	b := New()
	args := directiveArgs("")
	delete(args, "interactionId")

	result, err := b.Execute(context.Background(), call(args))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if id, _ := result.Value["interactionId"].(string); id == "" {
		t.Error("interactionId should be generated when absent")
	}
}

func TestBroker_CompletionSuccess(t *testing.T) {
	b := New()

	result, err := b.Execute(context.Background(), call(map[string]any{
		"interactionId": "I1",
		"agentLLMResponse": map[string]any{
			"status": "success",
			"data":   map[string]any{"tasks": []any{}},
		},
		"projectRoot": "/p",
	}))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := result.Value["toolResponseSource"]; got != protocol.SourceAgentToHost {
		t.Errorf("toolResponseSource = %v, want %s", got, protocol.SourceAgentToHost)
	}
	if got := result.Value["status"]; got != protocol.StatusCompleted {
		t.Errorf("status = %v, want %s", got, protocol.StatusCompleted)
	}
	if _, ok := result.Value["finalLLMOutput"]; !ok {
		t.Error("finalLLMOutput missing")
	}
}

func TestBroker_CompletionError(t *testing.T) {
	b := New()

	result, err := b.Execute(context.Background(), call(map[string]any{
		"interactionId": "I1",
		"agentLLMResponse": map[string]any{
			"status":       "error",
			"errorDetails": map[string]any{"message": "rate limited"},
		},
		"projectRoot": "/p",
	}))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := result.Value["status"]; got != protocol.StatusError {
		t.Errorf("status = %v, want %s", got, protocol.StatusError)
	}
	errObj, ok := result.Value["error"].(map[string]any)
	if !ok || errObj["message"] != "rate limited" {
		t.Errorf("error = %v, want message 'rate limited'", result.Value["error"])
	}
}

func TestBroker_SuccessWithoutDataIsError(t *testing.T) {
	b := New()

	result, err := b.Execute(context.Background(), call(map[string]any{
		"interactionId":    "I1",
		"agentLLMResponse": map[string]any{"status": "success"},
		"projectRoot":      "/p",
	}))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := result.Value["status"]; got != protocol.StatusError {
		t.Errorf("status = %v, want %s (success without data)", got, protocol.StatusError)
	}
}

func TestBroker_ArgumentValidation(t *testing.T) {
	b := New()

	tests := []struct {
		name string
		args map[string]any
		code string
	}{
		{
			"neither form",
			map[string]any{"projectRoot": "/p"},
			protocol.ErrCodeInvalidBrokerArgs,
		},
		{
			"both forms",
			func() map[string]any {
				args := directiveArgs("I1")
				args["agentLLMResponse"] = map[string]any{"status": "success", "data": "x"}
				return args
			}(),
			protocol.ErrCodeAmbiguousBrokerArgs,
		},
		{
			"agent form without id",
			map[string]any{
				"agentLLMResponse": map[string]any{"status": "success", "data": "x"},
				"projectRoot":      "/p",
			},
			protocol.ErrCodeMissingInteractionID,
		},
		{
			"directive without command",
			map[string]any{
				"delegatedCallDetails": map[string]any{"serviceType": "generate_text"},
				"projectRoot":          "/p",
			},
			protocol.ErrCodeInvalidBrokerArgs,
		},
		{
			"directive with bad service type",
			map[string]any{
				"delegatedCallDetails": map[string]any{
					"originalCommand": "parse-prd",
					"serviceType":     "telepathy",
				},
				"projectRoot": "/p",
			},
			protocol.ErrCodeInvalidBrokerArgs,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Execute(context.Background(), call(tt.args))
			if err == nil {
				t.Fatal("expected an error")
			}
			wantCode(t, err, tt.code)
		})
	}
}

func TestBroker_Schema(t *testing.T) {
	b := New()
	schema := b.Schema()
	if schema["type"] != "object" {
		t.Errorf("schema type = %v, want object", schema["type"])
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatal("schema has no properties")
	}
	for _, field := range []string{"interactionId", "delegatedCallDetails", "agentLLMResponse", "projectRoot"} {
		if _, ok := props[field]; !ok {
			t.Errorf("schema missing property %q", field)
		}
	}
}
