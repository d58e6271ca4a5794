// Package metrics exposes Prometheus collectors for the grabber.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Page kinds used as metric labels.
const (
	PageCatalog = "catalog"
	PageListing = "listing"
	PageDetail  = "detail"
)

var (
	grabPagesTotal           *prometheus.CounterVec
	grabFetchDurationSeconds *prometheus.HistogramVec
	grabListingRetriesTotal  prometheus.Counter
	grabAbandonedDaysTotal   prometheus.Counter
	grabProgrammesTotal      *prometheus.CounterVec
	httpRequestsTotal        *prometheus.CounterVec

	once sync.Once
)

// Init registers the collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		grabPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tvgrab_pages_total",
				Help: "Pages fetched, labeled by page kind and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		grabFetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tvgrab_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies by page kind.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"kind"},
		)

		grabListingRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tvgrab_listing_retries_total",
				Help: "Day-listing attempts that found no listing container.",
			},
		)

		grabAbandonedDaysTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "tvgrab_abandoned_days_total",
				Help: "Channel-days abandoned after exhausting listing retries.",
			},
		)

		grabProgrammesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tvgrab_programmes_total",
				Help: "Programme records forwarded to the sink, per channel.",
			},
			[]string{"channel"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tvgrab_http_requests_total",
				Help: "Requests served by the debug listener.",
			},
			[]string{"method", "route", "status"},
		)
	})
}

// Outcome maps an error to the label value used by ObservePage.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler returns an http.Handler exposing the Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage records one fetched page and its latency.
func ObservePage(kind, outcome string, duration time.Duration) {
	grabPagesTotal.WithLabelValues(kind, outcome).Inc()
	grabFetchDurationSeconds.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObserveListingRetry counts one failed listing attempt.
func ObserveListingRetry() {
	grabListingRetriesTotal.Inc()
}

// ObserveAbandonedDay counts one channel-day given up on.
func ObserveAbandonedDay() {
	grabAbandonedDaysTotal.Inc()
}

// ObserveProgramme counts one record handed to the sink.
func ObserveProgramme(channel string) {
	grabProgrammesTotal.WithLabelValues(channel).Inc()
}

// ObserveHTTPRequest counts one request served by the debug listener.
func ObserveHTTPRequest(method, route string, status int) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
