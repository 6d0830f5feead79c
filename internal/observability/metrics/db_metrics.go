package metrics

import (
	"database/sql"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	prometheus.MustRegister(
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: metricPrefix + "venue_config_revisions",
				Help: "Stored venue config revisions",
			},
			func() float64 {
				return queryCount(db, logger, "SELECT COUNT(*) FROM venue_config_revisions")
			},
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: metricPrefix + "config_audit_logs",
				Help: "Stored venue config audit entries",
			},
			func() float64 {
				return queryCount(db, logger, "SELECT COUNT(*) FROM config_audit_logs")
			},
		),
	)
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
