package llms

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rtmcrc/claude-task-master/pkg/config"
)

// DelegatingProvider implements Provider without side effects: every call
// returns a delegation token carrying a fresh interaction id and the inputs
// the agent needs to perform the call itself.
type DelegatingProvider struct {
	cfg *config.LLMConfig
}

// NewDelegatingProvider creates a delegating provider for one role config.
func NewDelegatingProvider(cfg *config.LLMConfig) (*DelegatingProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("LLM config cannot be nil")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	return &DelegatingProvider{cfg: cfg}, nil
}

func (p *DelegatingProvider) GenerateText(ctx context.Context, req *Request) (*Result, error) {
	return p.delegate(ServiceGenerateText, req)
}

func (p *DelegatingProvider) StreamText(ctx context.Context, req *Request) (*Result, error) {
	return p.delegate(ServiceStreamText, req)
}

func (p *DelegatingProvider) GenerateObject(ctx context.Context, req *Request) (*Result, error) {
	if req != nil && req.Schema == nil {
		return nil, fmt.Errorf("generate_object requires a schema")
	}
	return p.delegate(ServiceGenerateObject, req)
}

// ValidateAuth always succeeds: the Host holds no credentials.
func (p *DelegatingProvider) ValidateAuth(ctx context.Context) error {
	return nil
}

func (p *DelegatingProvider) ModelName() string {
	return p.cfg.Model
}

func (p *DelegatingProvider) delegate(service ServiceType, req *Request) (*Result, error) {
	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("request has no messages")
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.cfg.MaxTokens
	}
	temperature := req.Temperature
	if temperature == nil {
		temperature = p.cfg.Temperature
	}

	return &Result{
		Kind:          KindDelegation,
		InteractionID: uuid.NewString(),
		Details: &DelegationDetails{
			ServiceType:          service,
			Model:                p.cfg.Model,
			Messages:             req.Messages,
			MaxTokens:            maxTokens,
			Temperature:          temperature,
			Schema:               req.Schema,
			ObjectName:           req.ObjectName,
			EstimatedInputTokens: EstimateMessageTokens(req.Messages),
		},
	}, nil
}
