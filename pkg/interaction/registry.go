package interaction

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rtmcrc/claude-task-master/pkg/observability"
	"github.com/rtmcrc/claude-task-master/pkg/protocol"
)

// DefaultReapInterval is how often the reaper scans for expired records.
const DefaultReapInterval = 30 * time.Second

const tracerName = "github.com/rtmcrc/claude-task-master/pkg/interaction"

// Registry is the process-wide map from interaction id to pending record.
type Registry struct {
	mu      sync.Mutex
	records map[string]*Record
	ttl     time.Duration
	clock   func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides time.Now, for expiry tests.
func WithClock(clock func() time.Time) Option {
	return func(r *Registry) {
		r.clock = clock
	}
}

// NewRegistry creates a registry whose records expire after ttl.
func NewRegistry(ttl time.Duration, opts ...Option) *Registry {
	r := &Registry{
		records: make(map[string]*Record),
		ttl:     ttl,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Insert registers a new pending record in DIRECTIVE_DISPATCHING state.
// It MUST be called before the directive dispatch is scheduled, so an
// unusually fast agent callback cannot arrive ahead of the record.
func (r *Registry) Insert(id, toolName string, toolArgs map[string]any, session Session, details *protocol.DelegatedCallDetails) (*Record, error) {
	if id == "" {
		return nil, protocol.NewError(protocol.ErrCodeInvalidBrokerArgs, "interaction id is required")
	}

	_, span := otel.Tracer(tracerName).Start(context.Background(), "interaction",
		trace.WithAttributes(
			attribute.String("interaction.id", id),
			attribute.String("interaction.tool", toolName),
			attribute.String("interaction.service_type", string(details.ServiceType)),
		))

	record := &Record{
		ID:               id,
		OriginalToolName: toolName,
		OriginalToolArgs: toolArgs,
		Session:          session,
		Details:          details,
		CreatedAt:        r.clock(),
		state:            StateDispatching,
		span:             span,
		done:             make(chan *Outcome, 1),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[id]; exists {
		span.End()
		return nil, protocol.NewError(protocol.ErrCodeInvalidBrokerArgs, "interaction %s already pending", id)
	}
	r.records[id] = record

	observability.Global().InteractionCreated(details.OriginalCommand)
	slog.Debug("Interaction registered", "interaction", id, "tool", toolName)
	return record, nil
}

// MarkAwaiting transitions a record to AWAITING_AGENT once the broker tool
// acknowledged the directive.
func (r *Registry) MarkAwaiting(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record, ok := r.records[id]; ok && record.state == StateDispatching {
		record.state = StateAwaiting
	}
}

// Take removes and returns the record for id. The caller owns resolution;
// a second Take for the same id misses, which is what makes fulfillment
// single-shot.
func (r *Registry) Take(id string) (*Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if ok {
		delete(r.records, id)
	}
	return record, ok
}

// Resolve fulfills a taken record with the agent's output.
func (r *Registry) Resolve(record *Record, outcome *Outcome) {
	record.deliver(outcome, StateCompleted)
	observability.Global().InteractionClosed(record.Details.OriginalCommand, string(StateCompleted), r.clock().Sub(record.CreatedAt))
	slog.Debug("Interaction resolved", "interaction", record.ID)
}

// Reject fails a taken record with err.
func (r *Registry) Reject(record *Record, err error) {
	r.rejectAs(record, err, StateFailed)
}

func (r *Registry) rejectAs(record *Record, err error, state State) {
	record.deliver(&Outcome{Err: err}, state)
	observability.Global().InteractionClosed(record.Details.OriginalCommand, string(state), r.clock().Sub(record.CreatedAt))
	slog.Warn("Interaction rejected", "interaction", record.ID, "state", string(state), "error", err)
}

// Await blocks until the record resolves or ctx is done. Cancellation of the
// awaiting caller does not cancel the interaction itself.
func (r *Registry) Await(ctx context.Context, record *Record) (*Outcome, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case outcome := <-record.Done():
		return outcome, nil
	}
}

// Count returns the number of outstanding records.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// ReapExpired removes every record older than the TTL and rejects it with
// ERR_INTERACTION_TIMEOUT. Returns the number reaped.
func (r *Registry) ReapExpired() int {
	cutoff := r.clock().Add(-r.ttl)

	r.mu.Lock()
	var expired []*Record
	for id, record := range r.records {
		if record.CreatedAt.Before(cutoff) {
			delete(r.records, id)
			expired = append(expired, record)
		}
	}
	r.mu.Unlock()

	for _, record := range expired {
		r.rejectAs(record, protocol.NewError(protocol.ErrCodeInteractionTimeout,
			"no agent response for interaction %s within %s", record.ID, r.ttl), StateExpired)
	}
	return len(expired)
}

// StartReaper runs ReapExpired on interval until ctx is done.
func (r *Registry) StartReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.ReapExpired(); n > 0 {
					slog.Info("Reaped expired interactions", "count", n)
				}
			}
		}
	}()
}
