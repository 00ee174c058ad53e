// Package metrics registers the Prometheus collectors of the directory.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts served HTTP requests.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration observes HTTP request latency.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "directory_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	// EntriesSubmitted counts accepted submissions.
	EntriesSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_entries_submitted_total",
			Help: "Entries submitted, by type",
		},
		[]string{"type"},
	)

	// DuplicatesFlagged counts submissions flagged as possible duplicates.
	DuplicatesFlagged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "directory_duplicates_flagged_total",
		Help: "Submissions flagged as possible duplicates",
	})

	// GeoResolutions counts pivot lookups by outcome (hit, miss).
	GeoResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_geo_resolutions_total",
			Help: "Query pivot resolutions by outcome",
		},
		[]string{"outcome"},
	)

	// GeocodeJobs counts background geocoding jobs by result
	// (matched, unmatched, failed, dropped, gone).
	GeocodeJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_geocode_jobs_total",
			Help: "Background geocoding jobs by result",
		},
		[]string{"result"},
	)

	// GeocodeQueueDepth reports pending geocoding jobs.
	GeocodeQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "directory_geocode_queue_depth",
		Help: "Pending background geocoding jobs",
	})
)
