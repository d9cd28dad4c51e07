package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HTTP client metrics
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ripper_http_requests_total",
			Help: "Total number of outgoing HTTP requests by method and status code.",
		},
		[]string{"method", "code"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ripper_http_request_duration_seconds",
			Help:    "Time until response headers are received.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	HTTPRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ripper_http_retries_total",
			Help: "Total number of retried HTTP requests.",
		},
	)
)

// Download metrics
var (
	DownloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ripper_downloads_total",
			Help: "Total number of subtitle download tasks by final status.",
		},
		[]string{"status"},
	)

	DownloadBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ripper_download_bytes_total",
			Help: "Total number of subtitle bytes written to disk.",
		},
	)
)

// Browser metrics
var (
	BrowserPollsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ripper_browser_polls_total",
			Help: "Total number of performance-log polls made while awaiting a network request.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		HTTPRetriesTotal,
		DownloadsTotal,
		DownloadBytesTotal,
		BrowserPollsTotal,
	)
}
