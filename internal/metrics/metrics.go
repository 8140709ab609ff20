package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's prometheus instruments.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	AgentRetries     *prometheus.CounterVec
	ProviderFailures *prometheus.CounterVec
	DeliveryFailures *prometheus.CounterVec
}

// New registers the pipeline metrics on the given registerer. Pass a fresh
// registry in tests to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signalforge_runs_total",
			Help: "Pipeline runs by terminal outcome.",
		}, []string{"type"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalforge_run_duration_seconds",
			Help:    "Wall-clock duration of pipeline runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		AgentRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signalforge_agent_retries_total",
			Help: "Agent attempts that had to be retried, by role.",
		}, []string{"role"}),
		ProviderFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signalforge_provider_failures_total",
			Help: "Market data provider failures tolerated by the aggregator.",
		}, []string{"provider"}),
		DeliveryFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signalforge_delivery_failures_total",
			Help: "Tier deliveries that failed, by tier.",
		}, []string{"tier"}),
	}
}
