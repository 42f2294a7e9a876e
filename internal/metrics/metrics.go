package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's collectors on their own registry.
type Metrics struct {
	Registry          *prometheus.Registry
	RequestCount      *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	Predictions       *prometheus.CounterVec
	NutritionLookups  *prometheus.CounterVec
	InferenceDuration prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			}, []string{"path", "method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			}, []string{"path"},
		),
		Predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictions_total",
				Help: "Predictions served, by produce category",
			}, []string{"category"},
		),
		NutritionLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nutrition_lookups_total",
				Help: "Nutrition lookups, by outcome",
			}, []string{"outcome"},
		),
		InferenceDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "inference_duration_seconds",
				Help:    "Model forward pass duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	m.Registry.MustRegister(
		m.RequestCount,
		m.RequestDuration,
		m.Predictions,
		m.NutritionLookups,
		m.InferenceDuration,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
