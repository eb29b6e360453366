// Package observability holds the Prometheus collectors and log setup shared by the API.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service collectors. A nil *Metrics is valid and records nothing,
// which keeps unit tests free of registry wiring.
type Metrics struct {
	backendCalls      *prometheus.CounterVec
	geocodeResults    *prometheus.CounterVec
	directionsStatus  *prometheus.CounterVec
	extractionResults *prometheus.CounterVec
	chatSessions      prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		backendCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "navsmart_backend_calls_total",
			Help: "Generative backend calls by provider and outcome",
		}, []string{"provider", "outcome"}),
		geocodeResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "navsmart_geocode_results_total",
			Help: "Geocoding lookups by outcome",
		}, []string{"outcome"}),
		directionsStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "navsmart_directions_status_total",
			Help: "Directions responses by provider status",
		}, []string{"status"}),
		extractionResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "navsmart_extraction_results_total",
			Help: "Location extraction attempts by strategy and outcome",
		}, []string{"strategy", "outcome"}),
		chatSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "navsmart_chat_sessions",
			Help: "Open chat relay sessions",
		}),
	}
	reg.MustRegister(m.backendCalls, m.geocodeResults, m.directionsStatus, m.extractionResults, m.chatSessions)
	return m
}

func (m *Metrics) ObserveBackendCall(provider, outcome string) {
	if m == nil {
		return
	}
	m.backendCalls.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) ObserveGeocode(outcome string) {
	if m == nil {
		return
	}
	m.geocodeResults.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveDirections(status string) {
	if m == nil {
		return
	}
	m.directionsStatus.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveExtraction(strategy, outcome string) {
	if m == nil {
		return
	}
	m.extractionResults.WithLabelValues(strategy, outcome).Inc()
}

func (m *Metrics) ChatSessionOpened() {
	if m == nil {
		return
	}
	m.chatSessions.Inc()
}

func (m *Metrics) ChatSessionClosed() {
	if m == nil {
		return
	}
	m.chatSessions.Dec()
}
