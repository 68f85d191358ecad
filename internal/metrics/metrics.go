// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wroklog_session_transitions_total",
		Help: "Session lifecycle transitions by kind (start, stop, manual, cancel)",
	}, []string{"kind"})

	SessionRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wroklog_session_rejections_total",
		Help: "Rejected session operations by error code",
	}, []string{"code"})

	AutoStopFirings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wroklog_autostop_firings_total",
		Help: "Auto-stop firings by outcome (stopped, too_short, noop, retry, error)",
	}, []string{"outcome"})

	AutoStopArmed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wroklog_autostop_armed",
		Help: "In-process auto-stop timers currently armed",
	})

	DocumentSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wroklog_document_saves_total",
		Help: "Document saves by trigger (autosave, publish, restore) and status",
	}, []string{"trigger", "status"})

	DocumentSaveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wroklog_document_save_duration_seconds",
		Help:    "Document save duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
	})

	MediaDeletes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wroklog_media_deletes_total",
		Help: "Orphaned media deletions by status",
	}, []string{"status"})

	SummaryRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wroklog_summary_requests_total",
		Help: "AI summary requests by outcome (granted, quota_exhausted, error)",
	}, []string{"outcome"})
)

// ObserveSince records the elapsed time since start on h.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
