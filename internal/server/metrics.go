package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "fileshare"

// Metrics holds the server's Prometheus collectors. Each Server owns its own
// registry so tests can run servers side by side.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	uploadsTotal   *prometheus.CounterVec
	uploadBytes    prometheus.Counter
	downloadsTotal *prometheus.CounterVec
	downloadBytes  prometheus.Counter
	listingsTotal  prometheus.Counter
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "status_code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		uploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "uploads_total",
			Help:      "Total number of upload attempts by result",
		}, []string{"result"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "upload_bytes_total",
			Help:      "Bytes written by successful uploads",
		}),
		downloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "downloads_total",
			Help:      "Total number of download attempts by result",
		}, []string{"result"}),
		downloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "download_bytes_total",
			Help:      "Bytes sent by downloads",
		}),
		listingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "listings_total",
			Help:      "Total number of file listings served",
		}),
	}

	reg.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.uploadsTotal,
		m.uploadBytes,
		m.downloadsTotal,
		m.downloadBytes,
		m.listingsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest records one finished HTTP request.
func (m *Metrics) RecordRequest(method string, status int, d time.Duration) {
	m.requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordUpload records an upload attempt. result is "success",
// "client_error" or "error".
func (m *Metrics) RecordUpload(result string, bytes int64) {
	m.uploadsTotal.WithLabelValues(result).Inc()
	if result == resultSuccess {
		m.uploadBytes.Add(float64(bytes))
	}
}

// RecordDownload records a download attempt and the bytes actually sent.
func (m *Metrics) RecordDownload(result string, bytes int64) {
	m.downloadsTotal.WithLabelValues(result).Inc()
	if bytes > 0 {
		m.downloadBytes.Add(float64(bytes))
	}
}

// RecordListing counts a served listing.
func (m *Metrics) RecordListing() {
	m.listingsTotal.Inc()
}

const (
	resultSuccess     = "success"
	resultClientError = "client_error"
	resultNotFound    = "not_found"
	resultError       = "error"
)
