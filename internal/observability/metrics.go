// Package observability provides prometheus metrics for the classification
// and catalog operations.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus collectors shared across components.
type Metrics struct {
	registry *prometheus.Registry

	ClassificationsTotal   *prometheus.CounterVec
	ClassificationDuration prometheus.Histogram
	CatalogOpsTotal        *prometheus.CounterVec
	RecommendationsTotal   *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on a private registry.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ClassificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "closet_classifications_total",
			Help: "Total number of classification attempts by outcome.",
		}, []string{"status"}),
		ClassificationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "closet_classification_duration_seconds",
			Help:    "Classification latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		CatalogOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "closet_catalog_operations_total",
			Help: "Total number of catalog operations by operation and outcome.",
		}, []string{"operation", "status"}),
		RecommendationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "closet_recommendations_total",
			Help: "Total number of recommendation requests by outcome.",
		}, []string{"status"}),
	}

	collectors := []prometheus.Collector{
		m.ClassificationsTotal,
		m.ClassificationDuration,
		m.CatalogOpsTotal,
		m.RecommendationsTotal,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordCatalogOp increments the catalog operation counter. Safe on a nil
// receiver so components can run without metrics wired.
func (m *Metrics) RecordCatalogOp(operation, status string) {
	if m == nil {
		return
	}
	m.CatalogOpsTotal.WithLabelValues(operation, status).Inc()
}

// RecordClassification increments the classification counter and observes
// the latency when duration is positive.
func (m *Metrics) RecordClassification(status string, seconds float64) {
	if m == nil {
		return
	}
	m.ClassificationsTotal.WithLabelValues(status).Inc()
	if seconds > 0 {
		m.ClassificationDuration.Observe(seconds)
	}
}

// RecordRecommendation increments the recommendation counter.
func (m *Metrics) RecordRecommendation(status string) {
	if m == nil {
		return
	}
	m.RecommendationsTotal.WithLabelValues(status).Inc()
}
