package mm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mm_scans_total",
			Help: "Completed scan passes by outcome.",
		},
		[]string{"outcome"},
	)

	scanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mm_scan_duration_seconds",
			Help:    "Duration of scan passes.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	scanModels = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mm_scan_models",
			Help: "Number of models observed by the most recent scan pass.",
		},
	)

	scanSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mm_scan_skipped_files_total",
			Help: "Files a scan pass observed but could not process.",
		},
	)

	scanRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mm_scan_removed_models_total",
			Help: "Catalog entries pruned because their files vanished.",
		},
	)
)
