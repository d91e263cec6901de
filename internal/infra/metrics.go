package infra

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. Counters are bumped by
// the orchestration layer at lifecycle transition points.
type Metrics struct {
	registry *prometheus.Registry

	JobsCreated    prometheus.Counter
	JobsCompleted  prometheus.Counter
	JobsFailed     prometheus.Counter
	JobsCancelled  prometheus.Counter
	BatchesCreated prometheus.Counter
	BatchesDone    *prometheus.CounterVec
}

// NewMetrics registers all collectors on a private registry so tests can
// construct as many instances as they want.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		JobsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "videogen_jobs_created_total",
			Help: "Video generation jobs accepted.",
		}),
		JobsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "videogen_jobs_completed_total",
			Help: "Jobs that reached the completed state.",
		}),
		JobsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "videogen_jobs_failed_total",
			Help: "Jobs that reached the failed state.",
		}),
		JobsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "videogen_jobs_cancelled_total",
			Help: "Jobs that reached the cancelled state.",
		}),
		BatchesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "videogen_batches_created_total",
			Help: "Batches accepted.",
		}),
		BatchesDone: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "videogen_batches_finished_total",
			Help: "Batches that reached a terminal state, by outcome.",
		}, []string{"status"}),
	}
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
