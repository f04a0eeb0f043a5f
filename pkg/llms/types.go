// Package llms defines the provider surface commands call for LLM work.
//
// Only one provider ships in this binary: the delegating provider, which
// never performs network I/O. Its results carry KindDelegation and the full
// set of would-be call inputs, which the tool wrapper turns into a broker
// directive for the driving agent.
package llms

import "context"

// ServiceType identifies the LLM operation being requested.
type ServiceType string

const (
	ServiceGenerateText   ServiceType = "generate_text"
	ServiceStreamText     ServiceType = "stream_text"
	ServiceGenerateObject ServiceType = "generate_object"
)

// Valid reports whether s is a known service type.
func (s ServiceType) Valid() bool {
	switch s {
	case ServiceGenerateText, ServiceStreamText, ServiceGenerateObject:
		return true
	}
	return false
}

// Message is a single conversation message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Request carries the inputs of one LLM call.
type Request struct {
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"maxTokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`

	// Schema and ObjectName apply to generate_object only.
	Schema     map[string]any `json:"schema,omitempty"`
	ObjectName string         `json:"objectName,omitempty"`
}

// ResultKind discriminates completions from delegation tokens.
type ResultKind string

const (
	// KindCompletion means Text holds a model response.
	KindCompletion ResultKind = "completion"

	// KindDelegation means the call was not performed; Details describe the
	// call for the agent to make, keyed by InteractionID.
	KindDelegation ResultKind = "delegation"
)

// Result is the outcome of a provider call.
//
// Callers MUST check Kind before using Text: a delegation result carries no
// completion and using it as one is a programming error.
type Result struct {
	Kind ResultKind `json:"kind"`

	// Completion fields.
	Text   string `json:"text,omitempty"`
	Tokens int    `json:"tokens,omitempty"`

	// Delegation fields.
	InteractionID string             `json:"interactionId,omitempty"`
	Details       *DelegationDetails `json:"details,omitempty"`
}

// IsDelegation reports whether the result is a delegation token.
func (r *Result) IsDelegation() bool {
	return r != nil && r.Kind == KindDelegation
}

// DelegationDetails is the full set of would-be LLM inputs, serialized into
// the directive's requestParameters. Command-specific hints are merged in by
// the command cores before the directive is dispatched.
type DelegationDetails struct {
	ServiceType ServiceType    `json:"serviceType"`
	Model       string         `json:"model"`
	Messages    []Message      `json:"messages"`
	MaxTokens   int            `json:"maxTokens,omitempty"`
	Temperature *float64       `json:"temperature,omitempty"`
	Schema      map[string]any `json:"schema,omitempty"`
	ObjectName  string         `json:"objectName,omitempty"`

	// EstimatedInputTokens is advisory telemetry for the agent.
	EstimatedInputTokens int `json:"estimatedInputTokens,omitempty"`
}

// Provider is the polymorphic LLM surface.
//
// stream_text has no streaming form on the delegation protocol; the
// delegating provider records the requested service type and the agent
// returns a single completion envelope either way.
type Provider interface {
	GenerateText(ctx context.Context, req *Request) (*Result, error)
	StreamText(ctx context.Context, req *Request) (*Result, error)
	GenerateObject(ctx context.Context, req *Request) (*Result, error)

	// ValidateAuth checks credentials. The delegating provider always
	// succeeds: no API key lives in the Host.
	ValidateAuth(ctx context.Context) error

	ModelName() string
}
