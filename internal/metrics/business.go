// Package metrics exposes Prometheus instrumentation for the import pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Import pipeline metrics
	recordsIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "healthkit_records_ingested_total",
		Help: "Total records ingested by HealthKit kind",
	}, []string{"kind"}) // kind=Quantity|Category|Workout|Unknown

	duplicatesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "healthkit_duplicates_skipped_total",
		Help: "Total records skipped because they were already imported",
	})

	recordsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "healthkit_records_rejected_total",
		Help: "Total records rejected during parsing (missing type, bad dates)",
	})

	importFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "healthkit_import_failures_total",
		Help: "Total import failures by stage",
	}, []string{"stage"}) // stage=config|parse|dedup|store|report

	importDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "healthkit_import_duration_seconds",
		Help:    "Wall time of complete import runs",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	lastImportTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "healthkit_last_import_timestamp_seconds",
		Help: "Unix time of the last successful import",
	})

	storedRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "healthkit_stored_records",
		Help: "Records currently persisted in the store",
	})

	storedWorkouts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "healthkit_stored_workouts",
		Help: "Workouts currently persisted in the store",
	})

	// Cache metrics
	cacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "healthkit_cache_requests_total",
		Help: "Query cache lookups by outcome",
	}, []string{"outcome"}) // outcome=hit|miss
)

func AddRecordsIngested(kind string, n int) {
	recordsIngestedTotal.WithLabelValues(kind).Add(float64(n))
}

func AddDuplicatesSkipped(n int) { duplicatesSkippedTotal.Add(float64(n)) }
func AddRecordsRejected(n int)   { recordsRejectedTotal.Add(float64(n)) }

func IncImportFailure(stage string) { importFailuresTotal.WithLabelValues(stage).Inc() }

func ObserveImportDuration(seconds float64) { importDurationSeconds.Observe(seconds) }

func RecordImportSuccess(unixTime float64) { lastImportTimestamp.Set(unixTime) }

func RecordStoredCounts(records, workouts int64) {
	storedRecords.Set(float64(records))
	storedWorkouts.Set(float64(workouts))
}

func IncCacheHit()  { cacheRequestsTotal.WithLabelValues("hit").Inc() }
func IncCacheMiss() { cacheRequestsTotal.WithLabelValues("miss").Inc() }
