// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000}

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "munidash_http_requests_total",
		Help: "Total HTTP requests by route and status code",
	}, []string{"route", "status"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "munidash_http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: durationBuckets,
	}, []string{"route"})
	DatasetRows = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "munidash_dataset_rows",
		Help: "Raw rows read per dataset at startup",
	}, []string{"dataset"})
	DatasetAvailable = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "munidash_dataset_available",
		Help: "1 when the dataset loaded, 0 when it is unavailable",
	}, []string{"dataset"})
	DatasetLoadDurationMs = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "munidash_dataset_load_duration_ms",
		Help: "Time spent reading each dataset in milliseconds",
	}, []string{"dataset"})
	Municipalities = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "munidash_municipalities",
		Help: "Municipalities in the population aggregate",
	})
	ViewCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "munidash_view_cache_hits_total",
		Help: "Rendered municipality views served from cache",
	})
	ViewCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "munidash_view_cache_misses_total",
		Help: "Rendered municipality views built on demand",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(DatasetRows)
	prometheus.MustRegister(DatasetAvailable)
	prometheus.MustRegister(DatasetLoadDurationMs)
	prometheus.MustRegister(Municipalities)
	prometheus.MustRegister(ViewCacheHitsTotal)
	prometheus.MustRegister(ViewCacheMissesTotal)
}

// ObserveDataset records the outcome of loading one dataset.
func ObserveDataset(name string, rows int, available bool, took time.Duration) {
	DatasetRows.WithLabelValues(name).Set(float64(rows))
	v := 0.0
	if available {
		v = 1
	}
	DatasetAvailable.WithLabelValues(name).Set(v)
	DatasetLoadDurationMs.WithLabelValues(name).Set(float64(took.Milliseconds()))
}

// ObserveRequest records one served HTTP request.
func ObserveRequest(route string, status int, took time.Duration) {
	RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	RequestDurationMs.WithLabelValues(route).Observe(float64(took.Milliseconds()))
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }
