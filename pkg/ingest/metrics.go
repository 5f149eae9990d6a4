package ingest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records sync activity. A nil *Metrics records nothing.
type Metrics struct {
	items    *prometheus.CounterVec
	runs     *prometheus.CounterVec
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMetrics creates the sync collectors and registers them on reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		items: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thesaurus",
			Subsystem: "sync",
			Name:      "items_total",
			Help:      "Sync items processed, by source and outcome.",
		}, []string{"source", "outcome"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thesaurus",
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Completed sync runs, by source and final status.",
		}, []string{"source", "status"}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thesaurus",
			Subsystem: "sync",
			Name:      "external_requests_total",
			Help:      "Requests to external sources, by adapter and status.",
		}, []string{"adapter", "status"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "thesaurus",
			Subsystem: "sync",
			Name:      "external_request_duration_seconds",
			Help:      "Latency of requests to external sources.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"adapter"}),
	}
}

func (m *Metrics) itemDone(source string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.items.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) runDone(source, status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(source, status).Inc()
}

func (m *Metrics) request(adapter, status string, took time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(adapter, status).Inc()
	m.latency.WithLabelValues(adapter).Observe(took.Seconds())
}
