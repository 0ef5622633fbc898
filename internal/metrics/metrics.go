// Package metrics exposes Prometheus collectors for the chart crawler.
package metrics

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Chart outcome labels.
const (
	OutcomeSaved   = "saved"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

var (
	fetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hot100_fetches_total",
			Help: "Total number of page fetches, labeled by site and status.",
		},
		[]string{"site", "status"},
	)

	fetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hot100_fetch_bytes_total",
			Help: "Total number of bytes fetched, labeled by site.",
		},
		[]string{"site"},
	)

	fetchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hot100_fetch_duration_seconds",
			Help:    "Histogram of page fetch latencies, labeled by site.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"site"},
	)

	chartsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hot100_charts_total",
			Help: "Total number of chart pages processed, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	rateLimitDelaySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hot100_rate_limit_delay_seconds",
			Help:    "Histogram of politeness limiter wait durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"site"},
	)
)

// SanitizeSite extracts a lowercase hostname from a URL.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one page fetch.
func ObserveFetch(rawURL, status string, bytesFetched int, duration time.Duration) {
	site := SanitizeSite(rawURL)
	fetchesTotal.WithLabelValues(site, status).Inc()
	fetchDurationSeconds.WithLabelValues(site).Observe(duration.Seconds())
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(site).Add(float64(bytesFetched))
	}
}

// ObserveChart increments the chart counter for the given outcome.
func ObserveChart(outcome string) {
	chartsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRateLimitDelay records the duration of a politeness wait.
func ObserveRateLimitDelay(site string, duration time.Duration) {
	rateLimitDelaySeconds.WithLabelValues(site).Observe(duration.Seconds())
}
