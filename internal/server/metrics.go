package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Synthesis outcomes.
const (
	outcomeSuccess       = "success"
	outcomeClientError   = "client_error"
	outcomeEmptyResponse = "empty_response"
	outcomeFailed        = "failed"
)

// Metrics contains the Prometheus metrics for the speech API.
type Metrics struct {
	registry *prometheus.Registry

	// Synthesis metrics
	SynthesisRequests *prometheus.CounterVec
	SynthesisDuration prometheus.Histogram
	AudioSeconds      prometheus.Counter

	// HTTP API metrics
	HTTPRequests *prometheus.CounterVec
}

// NewMetrics creates the metrics on their own registry, so that several
// servers can live in one process.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		SynthesisRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shobdo_synthesis_requests_total",
			Help: "Speech synthesis requests by outcome",
		}, []string{"outcome"}),
		SynthesisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "shobdo_synthesis_duration_seconds",
			Help:    "Time spent on one synthesis round trip",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		AudioSeconds: factory.NewCounter(prometheus.CounterOpts{
			Name: "shobdo_audio_seconds_total",
			Help: "Seconds of audio produced",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shobdo_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
