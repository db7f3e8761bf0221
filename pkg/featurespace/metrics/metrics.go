// Package metrics defines the Prometheus collectors for collection and
// extraction runs and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors of a run. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	DocsProcessedTotal    *prometheus.CounterVec
	DocsSkippedTotal      *prometheus.CounterVec
	InstancesWrittenTotal *prometheus.CounterVec
	VocabularyKeys        *prometheus.GaugeVec
	FilterRunsTotal       *prometheus.CounterVec
	ReconcileDropped      prometheus.Gauge
	ReconcilePadded       prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates all collectors and registers them with reg. A nil reg uses a
// fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		DocsProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "featurespace_docs_processed_total",
				Help: "Documents processed by stage (collect, extract) and extractor.",
			},
			[]string{"stage", "extractor"},
		),
		DocsSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "featurespace_docs_skipped_total",
				Help: "Documents skipped because of malformed annotations.",
			},
			[]string{"stage", "extractor"},
		),
		InstancesWrittenTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "featurespace_instances_written_total",
				Help: "Instances written to the feature store by split.",
			},
			[]string{"split"},
		),
		VocabularyKeys: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "featurespace_vocabulary_keys",
				Help: "Distinct keys in a vocabulary after collection.",
			},
			[]string{"extractor"},
		),
		FilterRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "featurespace_filter_runs_total",
				Help: "Filter applications by filter and status.",
			},
			[]string{"filter", "status"},
		),
		ReconcileDropped: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "featurespace_reconcile_dropped_features",
				Help: "Test-only feature names dropped by the last reconciliation.",
			},
		),
		ReconcilePadded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "featurespace_reconcile_missing_features",
				Help: "Training feature names absent from the test run in the last reconciliation.",
			},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.DocsProcessedTotal,
		m.DocsSkippedTotal,
		m.InstancesWrittenTotal,
		m.VocabularyKeys,
		m.FilterRunsTotal,
		m.ReconcileDropped,
		m.ReconcilePadded,
	)

	return m
}

// DocProcessed counts one processed document
func (m *Metrics) DocProcessed(stage, extractor string) {
	if m == nil {
		return
	}
	m.DocsProcessedTotal.WithLabelValues(stage, extractor).Inc()
}

// DocSkipped counts one skipped document
func (m *Metrics) DocSkipped(stage, extractor string) {
	if m == nil {
		return
	}
	m.DocsSkippedTotal.WithLabelValues(stage, extractor).Inc()
}

// InstancesWritten counts written instances
func (m *Metrics) InstancesWritten(split string, n int) {
	if m == nil {
		return
	}
	m.InstancesWrittenTotal.WithLabelValues(split).Add(float64(n))
}

// VocabularySize records the size of a collected vocabulary
func (m *Metrics) VocabularySize(extractor string, n int) {
	if m == nil {
		return
	}
	m.VocabularyKeys.WithLabelValues(extractor).Set(float64(n))
}

// FilterRun counts a filter application
func (m *Metrics) FilterRun(filter string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.FilterRunsTotal.WithLabelValues(filter, status).Inc()
}

// Reconciled records the outcome of a reconciliation
func (m *Metrics) Reconciled(dropped, missing int) {
	if m == nil {
		return
	}
	m.ReconcileDropped.Set(float64(dropped))
	m.ReconcilePadded.Set(float64(missing))
}

// Handler returns the Prometheus scrape HTTP handler for these metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
