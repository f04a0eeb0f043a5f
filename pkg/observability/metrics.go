package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements Metrics on a private Prometheus registry.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	interactionsCreated    *prometheus.CounterVec
	interactionsClosed     *prometheus.CounterVec
	interactionOutstanding *prometheus.HistogramVec

	directiveDispatches *prometheus.CounterVec

	saverRuns     *prometheus.CounterVec
	saverDuration *prometheus.HistogramVec

	toolCalls        *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec
}

// NewPrometheusMetrics creates and registers all collectors.
func NewPrometheusMetrics() *PrometheusMetrics {
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),

		interactionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmaster_interactions_created_total",
			Help: "Pending interactions registered, by originating command.",
		}, []string{"command"}),

		interactionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmaster_interactions_closed_total",
			Help: "Interactions removed from the registry, by command and terminal state.",
		}, []string{"command", "state"}),

		interactionOutstanding: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskmaster_interaction_outstanding_seconds",
			Help:    "Time between registration and terminal state.",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
		}, []string{"command"}),

		directiveDispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmaster_directive_dispatches_total",
			Help: "Host-to-agent directive dispatches, by command and result.",
		}, []string{"command", "result"}),

		saverRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmaster_saver_runs_total",
			Help: "Post-processor runs, by command and result.",
		}, []string{"command", "result"}),

		saverDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskmaster_saver_duration_seconds",
			Help:    "Post-processor execution time.",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),

		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmaster_tool_calls_total",
			Help: "Tool channel invocations, by tool and result.",
		}, []string{"tool", "result"}),

		toolCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskmaster_tool_call_duration_seconds",
			Help:    "Tool execution time.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
	}

	m.registry.MustRegister(
		m.interactionsCreated,
		m.interactionsClosed,
		m.interactionOutstanding,
		m.directiveDispatches,
		m.saverRuns,
		m.saverDuration,
		m.toolCalls,
		m.toolCallDuration,
	)
	return m
}

// Handler serves the metrics endpoint.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PrometheusMetrics) InteractionCreated(command string) {
	m.interactionsCreated.WithLabelValues(command).Inc()
}

func (m *PrometheusMetrics) InteractionClosed(command, state string, outstanding time.Duration) {
	m.interactionsClosed.WithLabelValues(command, state).Inc()
	m.interactionOutstanding.WithLabelValues(command).Observe(outstanding.Seconds())
}

func (m *PrometheusMetrics) DirectiveDispatched(command string, err error) {
	m.directiveDispatches.WithLabelValues(command, resultLabel(err)).Inc()
}

func (m *PrometheusMetrics) SaverRan(command string, duration time.Duration, err error) {
	m.saverRuns.WithLabelValues(command, resultLabel(err)).Inc()
	m.saverDuration.WithLabelValues(command).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) ToolCall(tool string, duration time.Duration, err error) {
	m.toolCalls.WithLabelValues(tool, resultLabel(err)).Inc()
	m.toolCallDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
