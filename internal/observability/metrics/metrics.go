package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "venue_pulse_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	snapshotBuildTotal   *prometheus.CounterVec
	snapshotBuildLatency *prometheus.HistogramVec

	upstreamFetchTotal   *prometheus.CounterVec
	upstreamFetchLatency *prometheus.HistogramVec

	ponrStatusTotal *prometheus.CounterVec

	carryoverLookups *prometheus.CounterVec
	carryoverEntries prometheus.Gauge

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	publishTotal    *prometheus.CounterVec
	wageAlertsTotal *prometheus.CounterVec

	breakerState *prometheus.GaugeVec
)

// Init registers service metrics and, when db is set, DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		snapshotBuildTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "snapshot_builds_total",
				Help: "Total snapshot builds by mode and result",
			},
			[]string{"mode", "result"},
		)
		snapshotBuildLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "snapshot_build_latency_seconds",
				Help:    "Snapshot build latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode", "result"},
		)

		upstreamFetchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "upstream_fetch_total",
				Help: "Total upstream fetches by source and result",
			},
			[]string{"source", "result"},
		)
		upstreamFetchLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "upstream_fetch_latency_seconds",
				Help:    "Upstream fetch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		)

		ponrStatusTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ponr_status_total",
				Help: "Point of no return evaluations by status",
			},
			[]string{"status"},
		)

		carryoverLookups = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "carryover_lookups_total",
				Help: "Carryover cache lookups by outcome",
			},
			[]string{"outcome"},
		)
		carryoverEntries = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "carryover_entries",
				Help: "Entries held in the carryover cache",
			},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total night report exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Night report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		publishTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "snapshot_publish_total",
				Help: "Total snapshot events published by result",
			},
			[]string{"result"},
		)
		wageAlertsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "wage_alerts_total",
				Help: "Total wage alerts by status and result",
			},
			[]string{"status", "result"},
		)

		breakerState = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "breaker_state",
				Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"name"},
		)

		prometheus.MustRegister(
			snapshotBuildTotal,
			snapshotBuildLatency,
			upstreamFetchTotal,
			upstreamFetchLatency,
			ponrStatusTotal,
			carryoverLookups,
			carryoverEntries,
			exportTotal,
			exportLatency,
			publishTotal,
			wageAlertsTotal,
			breakerState,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveSnapshotBuild records snapshot build duration and result.
func ObserveSnapshotBuild(mode, result string, duration time.Duration) {
	if mode == "" {
		mode = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if snapshotBuildTotal != nil {
		snapshotBuildTotal.WithLabelValues(mode, result).Inc()
	}
	if snapshotBuildLatency != nil {
		snapshotBuildLatency.WithLabelValues(mode, result).Observe(duration.Seconds())
	}
}

// ObserveUpstreamFetch records one upstream fetch.
func ObserveUpstreamFetch(source, result string, duration time.Duration) {
	if source == "" {
		source = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if upstreamFetchTotal != nil {
		upstreamFetchTotal.WithLabelValues(source, result).Inc()
	}
	if upstreamFetchLatency != nil {
		upstreamFetchLatency.WithLabelValues(source).Observe(duration.Seconds())
	}
}

// IncPONRStatus counts a point of no return evaluation.
func IncPONRStatus(status string) {
	if status == "" {
		status = "unknown"
	}
	if ponrStatusTotal != nil {
		ponrStatusTotal.WithLabelValues(status).Inc()
	}
}

// IncCarryoverLookup counts a carryover cache hit or miss.
func IncCarryoverLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	if carryoverLookups != nil {
		carryoverLookups.WithLabelValues(outcome).Inc()
	}
}

// SetCarryoverEntries sets the carryover cache size.
func SetCarryoverEntries(count int) {
	if count < 0 {
		count = 0
	}
	if carryoverEntries != nil {
		carryoverEntries.Set(float64(count))
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncSnapshotPublish counts a published snapshot event.
func IncSnapshotPublish(result string) {
	if result == "" {
		result = resultSuccess
	}
	if publishTotal != nil {
		publishTotal.WithLabelValues(result).Inc()
	}
}

// IncWageAlert counts a wage alert delivery.
func IncWageAlert(status, result string) {
	if status == "" {
		status = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if wageAlertsTotal != nil {
		wageAlertsTotal.WithLabelValues(status, result).Inc()
	}
}

// SetBreakerState records a breaker's state.
func SetBreakerState(name string, state int) {
	if name == "" {
		name = "unknown"
	}
	if breakerState != nil {
		breakerState.WithLabelValues(name).Set(float64(state))
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
