package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "orderflow"

// Recorder holds the order lifecycle metrics.
type Recorder struct {
	operations      *prometheus.CounterVec
	durations       *prometheus.HistogramVec
	compensations   *prometheus.CounterVec
	publishFailures *prometheus.CounterVec
	gatherer        prometheus.Gatherer
}

// New registers the metrics on reg. Passing prometheus.DefaultRegisterer
// exposes them next to the Go runtime collectors.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Recorder {
	r := &Recorder{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total lifecycle operations by outcome.",
			},
			[]string{"operation", "outcome"},
		),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Lifecycle operation latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		compensations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compensation_failures_total",
				Help:      "Compensating actions that failed after all retries.",
			},
			[]string{"step"},
		),
		publishFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "publish_failures_total",
				Help:      "Messages that could not be published after all retries.",
			},
			[]string{"queue"},
		),
		gatherer: gatherer,
	}

	reg.MustRegister(r.operations, r.durations, r.compensations, r.publishFailures)
	return r
}

func (r *Recorder) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	r.operations.WithLabelValues(operation, outcome).Inc()
	r.durations.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (r *Recorder) IncCompensationFailure(step string) {
	r.compensations.WithLabelValues(step).Inc()
}

func (r *Recorder) IncPublishFailure(queue string) {
	r.publishFailures.WithLabelValues(queue).Inc()
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
