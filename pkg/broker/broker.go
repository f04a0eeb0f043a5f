// Package broker implements the agent_llm tool: one bidirectional tool
// carrying both protocol directions under a shared interaction id namespace.
//
// The broker tool is stateless. It validates and shapes payloads; every
// mutation of the interaction registry belongs to the tool wrapper.
package broker

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rtmcrc/claude-task-master/pkg/protocol"
	"github.com/rtmcrc/claude-task-master/pkg/tool"
)

const description = "Bidirectional broker for delegated LLM calls. " +
	"Task Master sends delegation directives through it; the agent answers " +
	"with completion envelopes carrying the same interactionId."

// Params is the discriminated-union payload of the broker tool.
type Params struct {
	// InteractionID correlates the two directions. Optional on the
	// directive form (generated when absent), required on the agent form.
	InteractionID string `json:"interactionId,omitempty" jsonschema:"description=Interaction id shared by both directions"`

	// DelegatedCallDetails selects the Host->Agent form.
	DelegatedCallDetails *protocol.DelegatedCallDetails `json:"delegatedCallDetails,omitempty" jsonschema:"description=Host-to-agent delegation directive"`

	// AgentLLMResponse selects the Agent->Host form.
	AgentLLMResponse *protocol.AgentLLMResponse `json:"agentLLMResponse,omitempty" jsonschema:"description=Agent-to-host completion envelope"`

	// ProjectRoot is the absolute project root path.
	ProjectRoot string `json:"projectRoot" jsonschema:"required,description=Absolute path to the project root"`
}

// BrokerTool implements tool.Tool for agent_llm.
type BrokerTool struct {
	schema map[string]any
}

// New creates the broker tool.
func New() *BrokerTool {
	return &BrokerTool{schema: tool.ReflectSchema(&Params{})}
}

func (b *BrokerTool) Name() string {
	return protocol.BrokerToolName
}

func (b *BrokerTool) Description() string {
	return description
}

func (b *BrokerTool) Schema() map[string]any {
	return b.schema
}

// Execute validates the payload union and shapes the response for the
// selected direction.
func (b *BrokerTool) Execute(ctx context.Context, call *tool.Call) (*tool.Result, error) {
	params := &Params{}
	if err := protocol.FromMap(call.Args, params); err != nil {
		return nil, protocol.NewError(protocol.ErrCodeInvalidBrokerArgs, "malformed broker arguments: %v", err)
	}

	hasDirective := params.DelegatedCallDetails != nil
	hasResponse := params.AgentLLMResponse != nil

	switch {
	case hasDirective && hasResponse:
		return nil, protocol.NewError(protocol.ErrCodeAmbiguousBrokerArgs,
			"both delegatedCallDetails and agentLLMResponse are set")
	case hasDirective:
		return b.directive(call, params)
	case hasResponse:
		return b.completion(call, params)
	default:
		return nil, protocol.NewError(protocol.ErrCodeInvalidBrokerArgs,
			"one of delegatedCallDetails or agentLLMResponse is required")
	}
}

// directive handles the Host->Agent form.
func (b *BrokerTool) directive(call *tool.Call, params *Params) (*tool.Result, error) {
	details := params.DelegatedCallDetails
	if err := details.Validate(); err != nil {
		return nil, protocol.NewError(protocol.ErrCodeInvalidBrokerArgs, "invalid delegatedCallDetails: %v", err)
	}

	id := params.InteractionID
	if id == "" {
		id = uuid.NewString()
	}

	resp := &protocol.DirectiveResponse{
		ToolResponseSource: protocol.SourceHostToAgent,
		Status:             protocol.StatusPendingAgentAction,
		Message: fmt.Sprintf("Task Master requires an LLM call for %s. Perform it and respond via the %s tool.",
			details.OriginalCommand, protocol.BrokerToolName),
		LLMRequestForAgent: details.RequestParameters,
		InteractionID:      id,
		PendingSignal: &protocol.PendingSignal{
			Type:          protocol.PendingSignalType,
			InteractionID: id,
			Instructions: fmt.Sprintf(
				"Execute the LLM request in llmRequestForAgent using service type %q, then call %s with "+
					"interactionId %q and agentLLMResponse {status, data | errorDetails}.",
				details.ServiceType, protocol.BrokerToolName, id),
		},
	}

	call.Logger.Debug("Broker directive prepared", "interaction", id, "command", details.OriginalCommand)
	return &tool.Result{Value: protocol.ToMap(resp)}, nil
}

// completion handles the Agent->Host form. The wrapper resolves the pending
// interaction from the returned envelope.
func (b *BrokerTool) completion(call *tool.Call, params *Params) (*tool.Result, error) {
	if params.InteractionID == "" {
		return nil, protocol.NewError(protocol.ErrCodeMissingInteractionID,
			"agentLLMResponse requires an interactionId")
	}

	agentResp := params.AgentLLMResponse
	resp := &protocol.CompletionResponse{
		ToolResponseSource: protocol.SourceAgentToHost,
		InteractionID:      params.InteractionID,
	}

	if agentResp.IsSuccess() {
		resp.Status = protocol.StatusCompleted
		resp.FinalLLMOutput = agentResp.Data
	} else {
		resp.Status = protocol.StatusError
		resp.Error = map[string]any{"message": agentResp.ErrorMessage()}
		if agentResp.ErrorDetails != nil {
			resp.Error["details"] = agentResp.ErrorDetails
		}
	}

	call.Logger.Debug("Broker completion received", "interaction", params.InteractionID, "status", resp.Status)
	return &tool.Result{Value: protocol.ToMap(resp)}, nil
}
