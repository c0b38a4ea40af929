// Package observability wires probe and detection outcomes into Prometheus.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"keymate/internal/core"
	"keymate/internal/probeclient"
)

// Metrics holds the Prometheus collectors for probe activity.
type Metrics struct {
	probesTotal     *prometheus.CounterVec
	probeDuration   *prometheus.HistogramVec
	detectionsTotal *prometheus.CounterVec
}

// NewMetrics registers the collectors with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		probesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keymate_probes_total",
				Help: "Total number of provider probes by terminal outcome",
			},
			[]string{"provider", "outcome"},
		),
		probeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keymate_probe_duration_seconds",
				Help:    "Provider probe duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		detectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keymate_detections_total",
				Help: "Total number of detection runs by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// NewDefaultMetrics registers the collectors with the default registry.
func NewDefaultMetrics() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}

// Hooks adapts the collectors to the probe client's observation interface.
func (m *Metrics) Hooks() probeclient.Hooks {
	return probeclient.Hooks{
		ObserveProbe: func(provider core.ProviderID, statusCode int, failure core.FailureClass, elapsed time.Duration) {
			outcome := "ok"
			if failure != "" {
				outcome = string(failure)
			}
			m.probesTotal.WithLabelValues(string(provider), outcome).Inc()
			m.probeDuration.WithLabelValues(string(provider)).Observe(elapsed.Seconds())
		},
	}
}

// ObserveDetection counts one finished detection run.
func (m *Metrics) ObserveDetection(valid bool) {
	outcome := "no_match"
	if valid {
		outcome = "match"
	}
	m.detectionsTotal.WithLabelValues(outcome).Inc()
}
