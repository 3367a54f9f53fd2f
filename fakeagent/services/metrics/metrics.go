package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the run collectors. Each instance owns its registry so
// tests can build as many as they like.
type Metrics struct {
	Registry    *prometheus.Registry
	Runs        *prometheus.CounterVec
	Frames      *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fakeagent_runs_total",
				Help: "Total number of runs by delivery mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		Frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fakeagent_frames_total",
				Help: "Total number of streamed frames by event kind",
			},
			[]string{"event"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fakeagent_run_duration_seconds",
				Help:    "Duration of runs by delivery mode",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 3, 5, 10},
			},
			[]string{"mode"},
		),
	}
	m.Registry.MustRegister(m.Runs, m.Frames, m.RunDuration)
	return m
}

func (m *Metrics) ObserveRun(mode, outcome string, d time.Duration) {
	m.Runs.WithLabelValues(mode, outcome).Inc()
	m.RunDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (m *Metrics) ObserveFrame(event string) {
	m.Frames.WithLabelValues(event).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
