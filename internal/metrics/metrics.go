package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boothd_print_jobs_submitted_total",
		Help: "Print jobs accepted into the queue.",
	})

	JobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boothd_print_jobs_finished_total",
		Help: "Print jobs that reached a terminal state.",
	}, []string{"state"})

	PrintAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boothd_print_attempts_total",
		Help: "Individual print attempts, including retries.",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "boothd_print_queue_depth",
		Help: "Jobs currently waiting in the queue channel.",
	})

	PrintDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "boothd_print_duration_seconds",
		Help:    "Wall time of successful print attempts.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	AlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boothd_alerts_total",
		Help: "Operator alerts by kind and outcome.",
	}, []string{"kind", "outcome"})

	SharesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boothd_shares_total",
		Help: "Share requests by SMS outcome.",
	}, []string{"status"})

	HostUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boothd_host_uploads_total",
		Help: "Hosting backend upload attempts by backend and outcome.",
	}, []string{"host", "outcome"})
)
