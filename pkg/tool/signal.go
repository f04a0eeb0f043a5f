package tool

import (
	"encoding/json"
	"fmt"

	"github.com/rtmcrc/claude-task-master/pkg/protocol"
)

// The delegation signal historically appeared in two shapes:
//
//  1. a plain object: {needsAgentDelegation: true, pendingInteraction: {...}}
//  2. an embedded resource at the sentinel URI whose body parses to
//     {isAgentLLMPendingInteraction: true, details: {...}}
//
// New code emits shape 1; the wrapper reads both.

// NewDelegationResult builds the canonical plain-object signal.
func NewDelegationResult(pi *protocol.PendingInteraction) *Result {
	return &Result{
		Value: map[string]any{
			"needsAgentDelegation": true,
			"pendingInteraction":   protocol.ToMap(pi),
		},
	}
}

// embeddedSignal is the body of the legacy embedded-resource form.
type embeddedSignal struct {
	IsAgentLLMPendingInteraction bool                         `json:"isAgentLLMPendingInteraction"`
	Details                      *protocol.PendingInteraction `json:"details"`
}

// ParseDelegationSignal extracts a pending interaction from a tool result,
// accepting both signal shapes. Returns (nil, false, nil) when no signal is
// present, and an error when a signal is present but malformed.
func ParseDelegationSignal(res *Result) (*protocol.PendingInteraction, bool, error) {
	if res == nil {
		return nil, false, nil
	}

	if res.Value != nil {
		if flag, ok := res.Value["needsAgentDelegation"].(bool); ok && flag {
			raw, ok := res.Value["pendingInteraction"].(map[string]any)
			if !ok {
				return nil, true, fmt.Errorf("delegation signal has no pendingInteraction")
			}
			pi := &protocol.PendingInteraction{}
			if err := protocol.FromMap(raw, pi); err != nil {
				return nil, true, fmt.Errorf("malformed pendingInteraction: %w", err)
			}
			return pi, true, validateSignal(pi)
		}
	}

	for _, resource := range res.Resources {
		if resource.URI != protocol.PendingInteractionURI {
			continue
		}
		var body embeddedSignal
		if err := json.Unmarshal([]byte(resource.Text), &body); err != nil {
			return nil, true, fmt.Errorf("malformed embedded delegation signal: %w", err)
		}
		if !body.IsAgentLLMPendingInteraction || body.Details == nil {
			return nil, true, fmt.Errorf("embedded delegation signal missing details")
		}
		return body.Details, true, validateSignal(body.Details)
	}

	return nil, false, nil
}

func validateSignal(pi *protocol.PendingInteraction) error {
	if pi.InteractionID == "" {
		return fmt.Errorf("delegation signal has no interactionId")
	}
	if pi.DelegatedCallDetails == nil {
		return fmt.Errorf("delegation signal has no delegatedCallDetails")
	}
	return pi.DelegatedCallDetails.Validate()
}
