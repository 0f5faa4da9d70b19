// Package metrics exposes refresh activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/chrisdamba/urbanwatch/internal/aggregator"
)

const namespace = "urbanwatch"

const (
	ResultSuccess   = "success"
	ResultCancelled = "cancelled"
	ResultRejected  = "rejected"
)

// Recorder receives refresh measurements.
type Recorder interface {
	ObserveRefresh(result string, elapsed time.Duration)
	SetActiveEvents(stats []aggregator.CategoryStat)
	SetCameras(n int)
}

type Metrics struct {
	refreshes       *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	activeEvents    *prometheus.GaugeVec
	cameras         prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Refresh attempts by result.",
		}, []string{"result"}),
		refreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Wall time of completed refreshes, including the configured delay.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 1.5, 2, 5},
		}),
		activeEvents: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_events",
			Help:      "Events in the current snapshot by category.",
		}, []string{"category"}),
		cameras: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cameras",
			Help:      "Cameras loaded into the dashboard.",
		}),
	}
}

func (m *Metrics) ObserveRefresh(result string, elapsed time.Duration) {
	m.refreshes.WithLabelValues(result).Inc()
	if result == ResultSuccess {
		m.refreshDuration.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) SetActiveEvents(stats []aggregator.CategoryStat) {
	for _, s := range stats {
		m.activeEvents.WithLabelValues(s.Category.Name).Set(float64(s.Count))
	}
}

func (m *Metrics) SetCameras(n int) {
	m.cameras.Set(float64(n))
}

type nop struct{}

// Nop discards every measurement.
var Nop Recorder = nop{}

func (nop) ObserveRefresh(string, time.Duration) {}
func (nop) SetActiveEvents([]aggregator.CategoryStat) {}
func (nop) SetCameras(int) {}
