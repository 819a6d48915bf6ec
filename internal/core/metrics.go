package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records pipeline activity. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	filesIngested  *prometheus.CounterVec
	ingestDuration *prometheus.HistogramVec
	cleaningOps    *prometheus.CounterVec
	exports        *prometheus.CounterVec
	sessions       prometheus.GaugeFunc
	sessionsSwept  prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. The
// sessions gauge reads the store's size at scrape time.
func NewMetrics(reg prometheus.Registerer, store *SessionStore) *Metrics {
	m := &Metrics{
		filesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sweeper",
			Name:      "files_ingested_total",
			Help:      "Uploaded files by detected format and outcome.",
		}, []string{"format", "result"}),
		ingestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sweeper",
			Name:      "ingest_duration_seconds",
			Help:      "Time spent detecting and loading one file.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"format"}),
		cleaningOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sweeper",
			Name:      "cleaning_operations_total",
			Help:      "Cleaning operations applied, by operation.",
		}, []string{"operation"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sweeper",
			Name:      "exports_total",
			Help:      "Conversions by target format and outcome.",
		}, []string{"format", "result"}),
		sessions: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "sweeper",
			Name:      "sessions",
			Help:      "Sessions currently held in memory.",
		}, func() float64 { return float64(store.Len()) }),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sweeper",
			Name:      "sessions_expired_total",
			Help:      "Sessions dropped after their idle TTL.",
		}),
	}

	reg.MustRegister(
		m.filesIngested,
		m.ingestDuration,
		m.cleaningOps,
		m.exports,
		m.sessions,
		m.sessionsSwept,
	)
	return m
}

func (m *Metrics) observeIngest(format string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.filesIngested.WithLabelValues(format, result(err)).Inc()
	m.ingestDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeCleaning(op string) {
	if m == nil {
		return
	}
	m.cleaningOps.WithLabelValues(op).Inc()
}

func (m *Metrics) observeExport(format string, err error) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format, result(err)).Inc()
}

func (m *Metrics) observeSweep(n int) {
	if m == nil || n == 0 {
		return
	}
	m.sessionsSwept.Add(float64(n))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
