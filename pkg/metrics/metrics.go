package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// PagesTotal counts processed pages; outcome is inserted, no_new, no_quotes,
	// empty, fetch_failed or insert_failed.
	PagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_pages_total",
			Help: "Total number of pages processed.",
		},
		[]string{"site", "outcome"},
	)

	QuotesInserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_quotes_inserted_total",
			Help: "Total number of new quotes persisted.",
		},
		[]string{"site", "language"},
	)

	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_batches_total",
			Help: "Total number of enumeration batches received.",
		},
		[]string{"site"},
	)

	EnumerationRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_enumeration_retries_total",
			Help: "Total number of failed enumeration calls that were retried.",
		},
		[]string{"site"},
	)

	CrawlsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_crawls_total",
			Help: "Total number of site crawls by terminal outcome.",
		},
		[]string{"site", "outcome"},
	)

	CrawlDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harvester_crawl_duration_seconds",
			Help:    "Duration of site crawls.",
			Buckets: []float64{1, 10, 60, 300, 900, 1800, 3600, 7200},
		},
		[]string{"site"},
	)
)
