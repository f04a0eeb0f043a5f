package tool

import (
	"context"
	"time"

	"github.com/rtmcrc/claude-task-master/pkg/interaction"
	"github.com/rtmcrc/claude-task-master/pkg/observability"
	"github.com/rtmcrc/claude-task-master/pkg/protocol"
)

// Wrapper interposes on every tool invocation to run the delegation
// protocol:
//
//   - When a wrapped tool returns a delegation signal, the wrapper registers
//     a pending interaction, schedules the Host->Agent directive in the
//     background, and returns the tool's result unchanged to the caller.
//   - When the broker tool delivers an agent completion envelope, the
//     wrapper resolves the matching record, dispatches the post-processor
//     fire-and-forget, and acknowledges the agent.
//
// The wrapper is the only component that mutates the interaction registry.
type Wrapper struct {
	interactions  *interaction.Registry
	postProcessor PostProcessor
	defaultTag    string
	channel       *Channel
}

// NewWrapper creates a wrapper. The channel is bound by NewChannel.
func NewWrapper(interactions *interaction.Registry, postProcessor PostProcessor, defaultTag string) *Wrapper {
	if defaultTag == "" {
		defaultTag = "master"
	}
	return &Wrapper{
		interactions:  interactions,
		postProcessor: postProcessor,
		defaultTag:    defaultTag,
	}
}

func (w *Wrapper) bind(c *Channel) {
	w.channel = c
}

// Execute runs one wrapped invocation.
func (w *Wrapper) Execute(ctx context.Context, t Tool, call *Call) (*Result, error) {
	result, err := t.Execute(ctx, call)
	if err != nil {
		return nil, err
	}

	// Agent->Host leg of the broker tool: resolve the pending interaction
	// and acknowledge.
	if t.Name() == protocol.BrokerToolName {
		if completion := parseCompletion(result); completion != nil {
			return w.handleAgentCompletion(ctx, call, completion)
		}
		return result, nil
	}

	signal, present, sigErr := ParseDelegationSignal(result)
	if !present {
		return result, nil
	}
	if sigErr != nil {
		// A malformed signal never creates a pending record.
		return nil, protocol.NewError(protocol.ErrCodeInvalidBrokerArgs,
			"invalid delegation signal from %s: %v", t.Name(), sigErr)
	}

	brokerTool, ok := w.channel.Get(protocol.BrokerToolName)
	if !ok {
		return nil, protocol.NewError(protocol.ErrCodeDispatchFailed,
			"broker tool %s is not registered", protocol.BrokerToolName)
	}

	// Insertion happens before the dispatch is scheduled so a fast agent
	// callback cannot race the record.
	record, err := w.interactions.Insert(signal.InteractionID, t.Name(), call.Args, call.Session, signal.DelegatedCallDetails)
	if err != nil {
		return nil, err
	}

	go w.dispatchDirective(brokerTool, record, call)

	// The caller observes the delegation signal itself, untouched.
	return result, nil
}

// dispatchDirective sends the Host->Agent form of the broker tool in the
// background. The original caller never awaits it.
func (w *Wrapper) dispatchDirective(brokerTool Tool, record *interaction.Record, call *Call) {
	command := record.Details.OriginalCommand

	args := map[string]any{
		"interactionId":        record.ID,
		"delegatedCallDetails": protocol.ToMap(record.Details),
		"projectRoot":          record.Session.ProjectRoot,
	}

	result, err := brokerTool.Execute(context.Background(), &Call{
		Args:    args,
		Session: record.Session,
		Logger:  call.Logger,
	})
	if err == nil {
		status, _ := result.Value["status"].(string)
		if status != protocol.StatusPendingAgentAction {
			err = protocol.NewError(protocol.ErrCodeDispatchFailed,
				"broker tool returned unexpected status %q", status)
		}
	}
	observability.Global().DirectiveDispatched(command, err)

	if err != nil {
		// Any listener on the record observes the dispatch failure.
		if taken, ok := w.interactions.Take(record.ID); ok {
			w.interactions.Reject(taken, protocol.NewError(protocol.ErrCodeDispatchFailed,
				"failed to dispatch directive for %s: %v", record.ID, err))
		}
		return
	}

	w.interactions.MarkAwaiting(record.ID)
	call.Logger.Info("Delegation directive dispatched", "interaction", record.ID, "command", command)
}

// handleAgentCompletion matches an agent completion envelope to its pending
// record, resolves or rejects it, fires the post-processor, and builds the
// acknowledgment for the agent.
func (w *Wrapper) handleAgentCompletion(ctx context.Context, call *Call, completion *protocol.CompletionResponse) (*Result, error) {
	record, ok := w.interactions.Take(completion.InteractionID)
	if !ok {
		return nil, protocol.NewError(protocol.ErrCodeUnknownInteraction,
			"no pending interaction %q", completion.InteractionID)
	}

	if completion.Status == protocol.StatusError {
		w.interactions.Reject(record, agentError(completion))
	} else {
		outcome := &interaction.Outcome{
			MainResult:    completion.FinalLLMOutput,
			TelemetryData: nil,
			TagInfo:       w.recoverTagInfo(record),
		}
		w.interactions.Resolve(record, outcome)

		// Post-processing is fire-and-forget: the agent ack never waits on
		// persistence, which has its own failure domain.
		go w.runPostProcessor(record, completion.FinalLLMOutput)
	}

	return &Result{Value: protocol.ToMap(&protocol.AckResponse{
		Status:        protocol.StatusProcessed,
		InteractionID: completion.InteractionID,
	})}, nil
}

func (w *Wrapper) runPostProcessor(record *interaction.Record, finalOutput any) {
	if w.postProcessor == nil {
		return
	}
	start := time.Now()
	err := w.postProcessor.Run(context.Background(), record, finalOutput)
	observability.Global().SaverRan(record.Details.OriginalCommand, time.Since(start), err)
}

// recoverTagInfo recovers the tag hint carried by the directive, or builds
// the default.
func (w *Wrapper) recoverTagInfo(record *interaction.Record) map[string]any {
	if params := record.Details.RequestParameters; params != nil {
		if tagInfo, ok := params["tagInfo"].(map[string]any); ok {
			return tagInfo
		}
	}
	return map[string]any{"currentTag": w.defaultTag}
}

// parseCompletion extracts the Agent->Host completion envelope from a broker
// tool result, or nil when the result is the Host->Agent direction.
func parseCompletion(result *Result) *protocol.CompletionResponse {
	if result == nil || result.Value == nil {
		return nil
	}
	if source, _ := result.Value["toolResponseSource"].(string); source != protocol.SourceAgentToHost {
		return nil
	}
	completion := &protocol.CompletionResponse{}
	if err := protocol.FromMap(result.Value, completion); err != nil {
		return nil
	}
	return completion
}

func agentError(completion *protocol.CompletionResponse) error {
	if msg, ok := completion.Error["message"].(string); ok && msg != "" {
		return protocol.NewError(protocol.ErrCodeAgentLLMFailure, "agent reported LLM failure: %s", msg)
	}
	if text, ok := completion.FinalLLMOutput.(string); ok && text != "" {
		return protocol.NewError(protocol.ErrCodeAgentLLMFailure, "agent reported LLM failure: %s", text)
	}
	return protocol.NewError(protocol.ErrCodeAgentLLMFailure, "agent reported LLM failure")
}
