// Package interaction tracks in-flight delegated LLM interactions.
//
// A pending record exists only while an interaction is outstanding; nothing
// here survives a process restart. Each record is created exactly once and
// removed exactly once, by fulfillment, rejection or expiry.
package interaction

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/rtmcrc/claude-task-master/pkg/protocol"
)

// State of one interaction: DIRECTIVE_DISPATCHING, then AWAITING_AGENT, then
// one of the terminal states COMPLETED, FAILED or EXPIRED.
type State string

const (
	StateDispatching State = "DIRECTIVE_DISPATCHING"
	StateAwaiting    State = "AWAITING_AGENT"
	StateCompleted   State = "COMPLETED"
	StateFailed      State = "FAILED"
	StateExpired     State = "EXPIRED"
)

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateExpired:
		return true
	}
	return false
}

// Session identifies the caller of the original tool invocation. The project
// root anchors every persistence side effect of the post-processors.
type Session struct {
	ID          string
	ProjectRoot string
}

// Outcome is what the resolver delivers to anyone awaiting the interaction.
type Outcome struct {
	// MainResult is the agent's finalLLMOutput, shape determined by the
	// originating command and service type.
	MainResult any

	// TelemetryData is always nil for delegated calls: the Host cannot
	// meter an LLM call it did not make.
	TelemetryData any

	// TagInfo is recovered from the delegated call details, or the default
	// tag when the directive carried none.
	TagInfo map[string]any

	// Err is set when the interaction failed or expired.
	Err error
}

// Record is one pending interaction. Mutated only by the Registry; command
// cores and savers never touch it.
type Record struct {
	ID               string
	OriginalToolName string
	OriginalToolArgs map[string]any
	Session          Session
	Details          *protocol.DelegatedCallDetails
	CreatedAt        time.Time

	state State
	span  trace.Span

	// done delivers the outcome exactly once. Buffered so resolution never
	// blocks on an absent awaiter.
	done chan *Outcome
}

// State returns the current state. Safe only under the registry's lock or
// after the record has been taken.
func (r *Record) State() State {
	return r.state
}

// Done exposes the outcome channel for awaiting callers.
func (r *Record) Done() <-chan *Outcome {
	return r.done
}

func (r *Record) deliver(outcome *Outcome, state State) {
	r.state = state
	r.done <- outcome
	close(r.done)
	if r.span != nil {
		r.span.AddEvent("interaction." + string(state))
		if outcome.Err != nil {
			r.span.RecordError(outcome.Err)
		}
		r.span.End()
	}
}
