// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dpanfilo/enforcer/timesheet"
)

var (
	// AnalysesTotal counts analyses.
	// Labels: kind (allocation/irregularities/hours/team/adhoc), status (success/error)
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enforcer_analyses_total",
			Help: "Total number of analyses run, by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	// FlagsTotal counts emitted irregularity flags after deduplication.
	FlagsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enforcer_flags_total",
			Help: "Total number of irregularity flags emitted, by category and severity",
		},
		[]string{"category", "severity"},
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enforcer_analysis_duration_seconds",
			Help:    "Analysis duration in seconds, including row fetch",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"kind"},
	)

	RowsFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "enforcer_rows_fetched_total",
			Help: "Total number of timesheet rows read from the row source",
		},
	)

	// RegistryLookups counts job registry batches.
	// Labels: status (success/error)
	RegistryLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enforcer_registry_lookups_total",
			Help: "Total number of job registry lookup batches, by outcome",
		},
		[]string{"status"},
	)
)

// RecordAnalysis records the outcome and duration of one analysis.
func RecordAnalysis(kind string, started time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	AnalysesTotal.WithLabelValues(kind, status).Inc()
	AnalysisDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}

// RecordFlag counts one emitted flag.
func RecordFlag(category, severity string) {
	FlagsTotal.WithLabelValues(category, severity).Inc()
}

// RecordRows adds n fetched rows.
func RecordRows(n int) {
	RowsFetched.Add(float64(n))
}

// RecordLookup counts one registry batch.
func RecordLookup(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	RegistryLookups.WithLabelValues(status).Inc()
}

// InstrumentRegistry counts every lookup batch made through reg.
func InstrumentRegistry(reg timesheet.JobRegistry) timesheet.JobRegistry {
	if reg == nil {
		return nil
	}
	return instrumentedRegistry{reg}
}

type instrumentedRegistry struct {
	next timesheet.JobRegistry
}

func (r instrumentedRegistry) LookupJobs(ctx context.Context, codes []string) (map[string]timesheet.JobDetail, error) {
	found, err := r.next.LookupJobs(ctx, codes)
	RecordLookup(err)
	return found, err
}
