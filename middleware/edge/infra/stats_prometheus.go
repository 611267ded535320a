package infra

import (
	"context"

	"edge-gateway/middleware/edge/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusStats expõe os desfechos do pipeline como métricas.
// Labels ficam em rule/outcome; nunca em IP ou path (cardinalidade).
type PrometheusStats struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusStats registra as métricas em reg. Registrar duas vezes no
// mesmo registry entra em pânico (promauto).
func NewPrometheusStats(reg prometheus.Registerer, namespace string) *PrometheusStats {
	f := promauto.With(reg)
	return &PrometheusStats{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edge_requests_total",
			Help:      "Requests handled by the edge admission pipeline, by rule and outcome.",
		}, []string{"rule", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "edge_pipeline_duration_seconds",
			Help:      "Time spent in the admission pipeline before pass-through or short-circuit.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"outcome"}),
	}
}

func (p *PrometheusStats) Record(_ context.Context, ev domain.StatsEvent) error {
	rule := ev.RuleID
	if rule == "" {
		rule = "none"
	}
	p.requests.WithLabelValues(rule, string(ev.Outcome)).Inc()
	if ev.Duration > 0 {
		p.duration.WithLabelValues(string(ev.Outcome)).Observe(ev.Duration.Seconds())
	}
	return nil
}
