// Package metrics counts backend calls and session transitions and writes
// them in Prometheus textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rbright/recite/internal/fsm"
)

// Registry owns every recite collector. It is safe for concurrent use.
type Registry struct {
	reg *prometheus.Registry

	calls       *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	transitions *prometheus.CounterVec
	sessions    *prometheus.CounterVec
	failures    prometheus.Counter
}

func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Registry{
		reg: reg,
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recite_backend_calls_total",
			Help: "Backend calls by stage, backend, and outcome.",
		}, []string{"stage", "backend", "status"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recite_backend_call_duration_seconds",
			Help:    "Backend call latency.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"stage", "backend"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recite_session_transitions_total",
			Help: "Accepted session state transitions by target state.",
		}, []string{"to"}),
		sessions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recite_sessions_total",
			Help: "Practice sessions by outcome.",
		}, []string{"outcome"}),
		failures: factory.NewCounter(prometheus.CounterOpts{
			Name: "recite_session_failures_total",
			Help: "Sessions that ended in the error state.",
		}),
	}
}

// ObserveCall records one backend call.
func (r *Registry) ObserveCall(stage, backend string, elapsed time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.calls.WithLabelValues(stage, backend, status).Inc()
	r.latency.WithLabelValues(stage, backend).Observe(elapsed.Seconds())
}

// ObserveTransition implements session.Observer.
func (r *Registry) ObserveTransition(from, to fsm.State) {
	r.transitions.WithLabelValues(to.Name()).Inc()
	switch to.(type) {
	case fsm.Summary:
		r.sessions.WithLabelValues("completed").Inc()
	case fsm.Failed:
		r.failures.Inc()
	case fsm.Idle:
		if _, done := from.(fsm.Summary); !done {
			r.sessions.WithLabelValues("abandoned").Inc()
		}
	}
}

// Gatherer exposes the underlying registry for tests and doctor output.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// WriteTextfile atomically writes the registry to path for node_exporter's
// textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
