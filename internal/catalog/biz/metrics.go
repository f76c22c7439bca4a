package biz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_uploads_total",
		Help: "File uploads by outcome.",
	}, []string{"result"})

	deletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_deletes_total",
		Help: "File deletions by outcome.",
	}, []string{"result"})

	compensationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_compensations_total",
		Help: "Orphaned blobs removed after a failed metadata write.",
	}, []string{"result"})

	bestEffortFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_best_effort_failures_total",
		Help: "Best-effort cleanup steps that failed and were only logged.",
	}, []string{"op"})

	statsRecomputes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_stats_recomputes_total",
		Help: "Full storage scans by outcome.",
	}, []string{"result"})

	statsRecomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_stats_recompute_duration_seconds",
		Help:    "Duration of a full storage scan.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	statsTotalBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_storage_bytes",
		Help: "Total stored bytes as of the last snapshot write.",
	})

	statsTotalFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_storage_files",
		Help: "Total stored objects as of the last snapshot write.",
	})
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
