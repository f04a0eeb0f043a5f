// Package tool implements the tool channel and the wrapper that interposes
// on every invocation to run the delegated LLM interaction protocol.
package tool

import (
	"context"
	"log/slog"

	"github.com/rtmcrc/claude-task-master/pkg/interaction"
)

// Call carries the per-invocation context every tool receives.
type Call struct {
	// Args are the caller's arguments, already validated by the transport.
	Args map[string]any

	// Session identifies the caller and resolves the project root.
	Session interaction.Session

	// Logger is the invocation-scoped structured logger.
	Logger *slog.Logger
}

// Tool is one callable unit on the channel.
type Tool interface {
	Name() string
	Description() string

	// Schema returns the JSON schema of the tool's parameters.
	Schema() map[string]any

	// Execute runs the tool. A returned error is surfaced to the caller as
	// a tool failure; protocol-level errors are *protocol.Error values.
	Execute(ctx context.Context, call *Call) (*Result, error)
}

// EmbeddedResource is a resource attached to a tool result. The delegation
// signal has a legacy embedded-resource form using a sentinel URI.
type EmbeddedResource struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType,omitempty"`
	Text     string `json:"text"`
}

// Result is a structured tool response.
type Result struct {
	// Value is the structured payload returned to the caller.
	Value map[string]any `json:"value"`

	// Resources are optional embedded resources.
	Resources []EmbeddedResource `json:"resources,omitempty"`
}

// PostProcessor consumes a resolved interaction and mutates persistent
// state. Implemented by the saver dispatch table; injected here to keep the
// wrapper free of persistence concerns.
type PostProcessor interface {
	// Run executes the saver for the interaction's original command.
	Run(ctx context.Context, record *interaction.Record, finalOutput any) error
}
