// Package metrics holds the Prometheus collectors shared by the ingestion
// pipeline, the query engine and the HTTP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values.
const (
	OutcomeMatch  = "match"
	OutcomeEmpty  = "empty"
	OutcomePrompt = "prompt"
	OutcomeError  = "error"

	FetchNetwork = "network"
	FetchCached  = "cached"
	FetchError   = "error"
)

// Metrics defines the metrics exposed by redatlas.
type Metrics struct {
	RegionQueriesTotal   *prometheus.CounterVec
	RegionQueryDuration  prometheus.Histogram
	IngestRunsTotal      *prometheus.CounterVec
	IngestedRows         *prometheus.GaugeVec
	BoundaryFetchesTotal *prometheus.CounterVec
	TableExportsTotal    *prometheus.CounterVec
}

// New registers all collectors with reg. A nil reg creates unregistered
// collectors, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RegionQueriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redatlas_region_queries_total",
				Help: "Total number of region queries by outcome.",
			},
			[]string{"field", "outcome"},
		),
		RegionQueryDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "redatlas_region_query_duration_seconds",
				Help:    "Time spent running the region join.",
				Buckets: prometheus.DefBuckets,
			},
		),
		IngestRunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redatlas_ingest_runs_total",
				Help: "Total number of ingestion runs by mode and status.",
			},
			[]string{"mode", "status"},
		),
		IngestedRows: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "redatlas_ingested_rows",
				Help: "Rows written to each table by the last successful ingestion.",
			},
			[]string{"table"},
		),
		BoundaryFetchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redatlas_boundary_fetches_total",
				Help: "Boundary document lookups by result.",
			},
			[]string{"result"},
		),
		TableExportsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redatlas_table_exports_total",
				Help: "Filtered table exports by table name.",
			},
			[]string{"table"},
		),
	}
}

// OrDiscard returns m, or a set of unregistered collectors when m is nil.
func OrDiscard(m *Metrics) *Metrics {
	if m == nil {
		return New(nil)
	}
	return m
}
