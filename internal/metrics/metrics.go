// Package metrics exposes the brain's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics implements the stage, lock and pronoun observers used by the
// engine. Each instance owns its registry, so tests can create many.
type Metrics struct {
	registry *prometheus.Registry

	EventsIngested  *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec
	StageProcessed  *prometheus.CounterVec
	LockWait        prometheus.Histogram
	LockTimeouts    prometheus.Counter
	PronounLookups  *prometheus.CounterVec
	RetentionPruned prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		EventsIngested: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pngtuber_events_ingested_total",
			Help: "Events accepted into the pipeline by type",
		}, []string{"type"}),

		EventsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pngtuber_events_dropped_total",
			Help: "Events rejected before entering the pipeline",
		}, []string{"reason"}), // not_running, ignored

		StageProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pngtuber_stage_processed_total",
			Help: "Context IDs handled per stage and outcome",
		}, []string{"stage", "outcome"}),

		LockWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pngtuber_db_lock_wait_seconds",
			Help:    "Time spent waiting for the database lock",
			Buckets: []float64{0.001, 0.005, 0.025, 0.1, 0.25, 0.5, 1, 2, 5},
		}),

		LockTimeouts: f.NewCounter(prometheus.CounterOpts{
			Name: "pngtuber_db_lock_timeouts_total",
			Help: "Database lock acquisitions that timed out",
		}),

		PronounLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pngtuber_pronoun_lookups_total",
			Help: "Pronoun resolutions by the tier that answered",
		}, []string{"result"}),

		RetentionPruned: f.NewCounter(prometheus.CounterOpts{
			Name: "pngtuber_chat_logs_pruned_total",
			Help: "Chat log rows removed by retention",
		}),
	}
}

func (m *Metrics) ObserveStage(stage, outcome string) {
	m.StageProcessed.WithLabelValues(stage, outcome).Inc()
}

func (m *Metrics) ObserveLockWait(wait time.Duration, acquired bool) {
	m.LockWait.Observe(wait.Seconds())
	if !acquired {
		m.LockTimeouts.Inc()
	}
}

func (m *Metrics) ObservePronounLookup(source string) {
	m.PronounLookups.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveIngest(eventType string) {
	m.EventsIngested.WithLabelValues(eventType).Inc()
}

func (m *Metrics) ObserveDrop(reason string) {
	m.EventsDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObservePruned(n int64) {
	if n > 0 {
		m.RetentionPruned.Add(float64(n))
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
