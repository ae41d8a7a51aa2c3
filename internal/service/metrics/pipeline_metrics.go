package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// StageLatency tracks per-stage feature engineering latency.
	StageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "esgpulse",
			Subsystem: "pipeline",
			Name:      "stage_latency_seconds",
			Help:      "Latency of feature engineering stages",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// HistoryDepth tracks the fill level of per-metric history buffers.
	HistoryDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "esgpulse",
			Subsystem: "pipeline",
			Name:      "history_depth",
			Help:      "Samples held in per-metric history buffers",
		},
		[]string{"metric"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(StageLatency, HistoryDepth)
	})
}
