// Package metrics provides Prometheus metrics for the bundler.
package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stage labels for duration observations.
const (
	StageList     = "list"
	StageDownload = "download"
	StageArchive  = "archive"
	StageUpload   = "upload"
)

// Metrics holds all Prometheus metrics for the bundler.
type Metrics struct {
	RunsTotal  prometheus.Counter
	RunsFailed prometheus.Counter

	ObjectsDownloaded prometheus.Counter
	ObjectsSkipped    prometheus.Counter

	InputBytes   prometheus.Counter
	ArchiveBytes prometheus.Gauge

	StageDuration *prometheus.HistogramVec
}

// Init registers the bundler metrics under the given namespace.
// Call this once at startup.
func Init(namespace string) *Metrics {
	if namespace == "" {
		namespace = "prefix_bundler"
	}

	return &Metrics{
		RunsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of pipeline runs",
			},
		),
		RunsFailed: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_failed_total",
				Help:      "Total number of failed pipeline runs",
			},
		),
		ObjectsDownloaded: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "objects_downloaded_total",
				Help:      "Total number of objects downloaded",
			},
		),
		ObjectsSkipped: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "objects_skipped_total",
				Help:      "Total number of objects skipped (already present locally)",
			},
		),
		InputBytes: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "input_bytes_total",
				Help:      "Total bytes of listed source objects",
			},
		),
		ArchiveBytes: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "archive_bytes",
				Help:      "Size of the most recently built archive",
			},
		),
		StageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of each pipeline stage",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~160s
			},
			[]string{"stage"},
		),
	}
}

// ObserveStage records one stage duration.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Serve exposes /metrics on addr in the background.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("metrics server stopped", "error", err)
		}
	}()
}
