// Package metrics exposes poll outcomes to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder holds the dashboard poll metrics on its own registry.
type Recorder struct {
	registry    *prometheus.Registry
	polls       *prometheus.CounterVec
	lastSuccess prometheus.Gauge
}

// NewRecorder creates and registers the poll metrics.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_poll_total",
			Help: "Dashboard refresh attempts by outcome",
		}, []string{"outcome"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_last_success_timestamp_seconds",
			Help: "Unix time of the last successful refresh",
		}),
	}
	r.registry.MustRegister(r.polls, r.lastSuccess)
	r.polls.WithLabelValues(OutcomeSuccess)
	r.polls.WithLabelValues(OutcomeFailure)
	return r
}

// Success counts a successful refresh completed at t.
func (r *Recorder) Success(t time.Time) {
	r.polls.WithLabelValues(OutcomeSuccess).Inc()
	r.lastSuccess.Set(float64(t.Unix()))
}

// Failure counts a failed refresh.
func (r *Recorder) Failure() {
	r.polls.WithLabelValues(OutcomeFailure).Inc()
}

// Handler serves the registry in the exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
