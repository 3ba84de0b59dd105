// Package metrics records conformance run statistics in a private
// Prometheus registry and optionally pushes them to a Pushgateway.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Job is the Pushgateway job name.
const Job = "profilecheck"

// Metrics holds the run collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	Registry *prometheus.Registry

	// Verdicts by outcome kind and signaling channel.
	Verdicts *prometheus.CounterVec

	// Scenario results by status (pass, fail, inconclusive).
	Scenarios *prometheus.CounterVec

	// Responses that could not be parsed as JSON.
	DecodeErrors prometheus.Counter

	// Sessions that fell back to the configured fixture ids, by reason.
	FixtureFallbacks *prometheus.CounterVec

	// Request latency by method and path template.
	RequestDuration *prometheus.HistogramVec
}

// New creates Metrics registered in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		Verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "profilecheck_verdicts_total",
			Help: "Classified responses by outcome kind and signaling channel",
		}, []string{"kind", "channel"}),

		Scenarios: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "profilecheck_scenarios_total",
			Help: "Scenario results by status",
		}, []string{"status"}),

		DecodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "profilecheck_decode_errors_total",
			Help: "Responses whose body could not be parsed",
		}),

		FixtureFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "profilecheck_fixture_fallbacks_total",
			Help: "Fixture discoveries that substituted the fallback ids",
		}, []string{"reason"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "profilecheck_request_duration_seconds",
			Help:    "Duration of API requests by method and path template",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "path"}),
	}
}

// IncVerdict counts one classified response. Channel is empty for
// successes.
func (m *Metrics) IncVerdict(kind, channel string) {
	if m != nil {
		m.Verdicts.WithLabelValues(kind, channel).Inc()
	}
}

// IncScenario counts one scenario result.
func (m *Metrics) IncScenario(status string) {
	if m != nil {
		m.Scenarios.WithLabelValues(status).Inc()
	}
}

// IncDecodeError counts one unparseable body.
func (m *Metrics) IncDecodeError() {
	if m != nil {
		m.DecodeErrors.Inc()
	}
}

// IncFixtureFallback counts one degraded discovery.
func (m *Metrics) IncFixtureFallback(reason string) {
	if m != nil {
		m.FixtureFallbacks.WithLabelValues(reason).Inc()
	}
}

// ObserveRequest records one request. Its signature matches
// transport.Observer.
func (m *Metrics) ObserveRequest(method, path string, _ int, d time.Duration) {
	if m != nil {
		m.RequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
	}
}

// Push sends the registry to a Pushgateway, grouped by run id.
func (m *Metrics) Push(ctx context.Context, gatewayURL, runID string) error {
	if m == nil {
		return nil
	}
	err := push.New(gatewayURL, Job).
		Gatherer(m.Registry).
		Grouping("run", runID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("metrics: push to %s: %w", gatewayURL, err)
	}
	return nil
}
