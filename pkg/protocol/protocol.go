// Package protocol defines the wire shapes of the delegated LLM interaction
// protocol spoken over the agent_llm tool.
//
// One interaction is a full round trip under a single interaction id:
//
//	Host -> Agent  delegation directive  (what LLM call to make)
//	Agent -> Host  completion envelope   (the result of that call)
//
// Both directions flow through the same tool; the payload discriminates them.
package protocol

import (
	"fmt"

	"github.com/rtmcrc/claude-task-master/pkg/llms"
)

// BrokerToolName is the tool the two protocol directions share.
const BrokerToolName = "agent_llm"

// PendingInteractionURI is the sentinel resource URI marking the embedded
// form of the delegation signal.
const PendingInteractionURI = "agent-llm://pending-interaction"

// Response sources, discriminating the direction of a broker tool response.
const (
	SourceHostToAgent = "taskmaster_to_agent"
	SourceAgentToHost = "agent_to_taskmaster"
)

// Broker tool statuses.
const (
	StatusPendingAgentAction = "pending_agent_llm_action"
	StatusCompleted          = "llm_response_completed"
	StatusError              = "llm_response_error"
	StatusProcessed          = "agent_response_processed_by_taskmaster"
)

// Completion envelope statuses reported by the agent.
const (
	AgentStatusSuccess = "success"
	AgentStatusError   = "error"
)

// Protocol error codes. Surfaced to the agent as structured tool errors that
// keep their code; they never propagate as Go panics.
const (
	ErrCodeInvalidBrokerArgs    = "ERR_INVALID_BROKER_ARGS"
	ErrCodeAmbiguousBrokerArgs  = "ERR_AMBIGUOUS_BROKER_ARGS"
	ErrCodeMissingInteractionID = "ERR_MISSING_INTERACTION_ID"
	ErrCodeUnknownInteraction   = "ERR_UNKNOWN_INTERACTION"
	ErrCodeInteractionTimeout   = "ERR_INTERACTION_TIMEOUT"
	ErrCodeDispatchFailed       = "ERR_DIRECTIVE_DISPATCH_FAILED"
	ErrCodeAgentLLMFailure      = "ERR_AGENT_LLM_FAILURE"
)

// Error is a structured protocol error.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates a protocol error.
func NewError(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// DelegatedCallDetails is the Host-side description of the LLM call the
// agent must perform. RequestParameters is the union of the delegating
// provider's details with command-specific hints; hints are opaque to the
// agent but must round-trip intact for the post-processor.
type DelegatedCallDetails struct {
	OriginalCommand   string           `json:"originalCommand"`
	Role              string           `json:"role"`
	ServiceType       llms.ServiceType `json:"serviceType"`
	RequestParameters map[string]any   `json:"requestParameters"`
}

// Validate checks the directive form of the broker payload.
func (d *DelegatedCallDetails) Validate() error {
	if d.OriginalCommand == "" {
		return fmt.Errorf("originalCommand is required")
	}
	if !d.ServiceType.Valid() {
		return fmt.Errorf("invalid serviceType %q", d.ServiceType)
	}
	return nil
}

// AgentLLMResponse is the completion envelope sent by the agent.
type AgentLLMResponse struct {
	Status       string         `json:"status"`
	Data         any            `json:"data,omitempty"`
	ErrorDetails map[string]any `json:"errorDetails,omitempty"`
}

// IsSuccess reports whether the envelope claims success AND carries data.
// The Host treats a success without data as an error.
func (r *AgentLLMResponse) IsSuccess() bool {
	return r.Status == AgentStatusSuccess && r.Data != nil
}

// ErrorMessage extracts a printable message from errorDetails, falling back
// to a generic description.
func (r *AgentLLMResponse) ErrorMessage() string {
	if r.ErrorDetails != nil {
		if msg, ok := r.ErrorDetails["message"].(string); ok && msg != "" {
			return msg
		}
	}
	if r.Status == AgentStatusSuccess {
		return "agent reported success but sent no data"
	}
	return "agent reported an LLM error without details"
}

// PendingInteractionType discriminates the pending-interaction object a
// delegating command returns to its wrapper.
const PendingInteractionType = "agent_llm"

// PendingInteraction is what a command core hands back instead of a
// completion when its provider returned a delegation token.
type PendingInteraction struct {
	Type                 string                `json:"type"`
	InteractionID        string                `json:"interactionId"`
	DelegatedCallDetails *DelegatedCallDetails `json:"delegatedCallDetails"`
}

// PendingSignal is the instruction block embedded in the Host->Agent
// directive response, telling the agent how to come back.
type PendingSignal struct {
	Type          string `json:"type"`
	InteractionID string `json:"interactionId"`
	Instructions  string `json:"instructions"`
}

// PendingSignalType is the discriminator of PendingSignal.
const PendingSignalType = "agent_must_respond_via_agent_llm"

// DirectiveResponse is the broker tool response on the Host->Agent path.
type DirectiveResponse struct {
	ToolResponseSource string         `json:"toolResponseSource"`
	Status             string         `json:"status"`
	Message            string         `json:"message"`
	LLMRequestForAgent map[string]any `json:"llmRequestForAgent"`
	InteractionID      string         `json:"interactionId"`
	PendingSignal      *PendingSignal `json:"pendingInteractionSignalToAgent"`
}

// CompletionResponse is the broker tool response on the Agent->Host path,
// before the wrapper resolves it into an acknowledgment.
type CompletionResponse struct {
	ToolResponseSource string         `json:"toolResponseSource"`
	Status             string         `json:"status"`
	FinalLLMOutput     any            `json:"finalLLMOutput,omitempty"`
	Error              map[string]any `json:"error,omitempty"`
	InteractionID      string         `json:"interactionId"`
}

// AckResponse is what the agent finally receives once the Host has matched
// the envelope to a pending interaction.
type AckResponse struct {
	Status        string `json:"status"`
	InteractionID string `json:"interactionId"`
}
