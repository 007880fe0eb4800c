// Package observability exposes tracker runs as Prometheus metrics.
package observability

import (
	"net/http"

	"github.com/fidde/glean_migration_tracker/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "glean_migration"

// Metrics holds the tracker collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	snapshots   prometheus.Counter
	duration    prometheus.Histogram
	lastSuccess prometheus.Gauge
	latest      *prometheus.GaugeVec
	records     prometheus.Gauge
}

// NewMetrics registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Tracker runs by result.",
		}, []string{"result"}),
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_processed_total",
			Help:      "Snapshots analyzed and appended to the history log.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of tracker runs.",
			Buckets:   []float64{1, 10, 30, 60, 300, 900, 1800, 3600},
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		latest: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "latest_record",
			Help:      "Counts of the newest record in the history log.",
		}, []string{"count"}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_records",
			Help:      "Records in the history log.",
		}),
	}

	m.registry.MustRegister(
		m.runs,
		m.snapshots,
		m.duration,
		m.lastSuccess,
		m.latest,
		m.records,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SnapshotProcessed counts an analyzed snapshot. Its counts reach the
// gauges only once the log holding it is saved.
func (m *Metrics) SnapshotProcessed(record *models.MigrationRecord) {
	m.snapshots.Inc()
}

// LogPersisted refreshes the gauges from the stored log.
func (m *Metrics) LogPersisted(records []*models.MigrationRecord) {
	m.ObserveLog(records)
}

// RunFinished records the outcome of a run.
func (m *Metrics) RunFinished(result models.RunResult, err error) {
	m.duration.Observe(result.Finished.Sub(result.Started).Seconds())

	switch {
	case err != nil:
		m.runs.WithLabelValues("error").Inc()
	case len(result.NewBuildIDs) == 0:
		m.runs.WithLabelValues("up_to_date").Inc()
		m.lastSuccess.Set(float64(result.Finished.Unix()))
	default:
		m.runs.WithLabelValues("updated").Inc()
		m.lastSuccess.Set(float64(result.Finished.Unix()))
	}
}

// observeLatest sets the latest_record gauges from record.
func (m *Metrics) observeLatest(record *models.MigrationRecord) {
	if record == nil {
		return
	}
	for _, c := range record.Data.Counts() {
		m.latest.WithLabelValues(c.Name).Set(float64(c.Value))
	}
}

// ObserveLog refreshes the gauges from a loaded history log.
func (m *Metrics) ObserveLog(records []*models.MigrationRecord) {
	m.records.Set(float64(len(records)))
	if len(records) > 0 {
		m.observeLatest(records[len(records)-1])
	}
}
