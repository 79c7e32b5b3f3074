// Package metrics exposes Prometheus collectors for a retrieval run.
//
// A CLI run is too short-lived to be scraped, so collectors live on a private
// registry that can be written out in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements retrieval.Recorder.
type Recorder struct {
	registry      *prometheus.Registry
	fetchTotal    *prometheus.CounterVec
	fetchBytes    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	writeTotal    *prometheus.CounterVec
}

// NewRecorder registers the collectors on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		fetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remotefiles_fetch_total",
				Help: "Total number of fetches, labeled by host and status class.",
			},
			[]string{"host", "status_class"},
		),
		fetchBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remotefiles_fetch_bytes_total",
				Help: "Total number of bytes fetched, labeled by host.",
			},
			[]string{"host"},
		),
		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "remotefiles_fetch_duration_seconds",
				Help:    "Histogram of fetch latencies, labeled by host.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"host"},
		),
		writeTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remotefiles_write_total",
				Help: "Total number of destination writes, labeled by result.",
			},
			[]string{"result"},
		),
	}
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
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

// ClassifyStatus groups HTTP status codes. Zero means no response was received.
func ClassifyStatus(code int) string {
	switch {
	case code == 0:
		return "error"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "other"
	}
}

// ObserveFetch records a fetch outcome.
func (r *Recorder) ObserveFetch(site string, statusCode int, bytesFetched int, duration time.Duration) {
	host := SanitizeSite(site)
	r.fetchTotal.WithLabelValues(host, ClassifyStatus(statusCode)).Inc()
	if bytesFetched > 0 {
		r.fetchBytes.WithLabelValues(host).Add(float64(bytesFetched))
	}
	if duration > 0 {
		r.fetchDuration.WithLabelValues(host).Observe(duration.Seconds())
	}
}

// ObserveWrite records a destination write outcome.
func (r *Recorder) ObserveWrite(result string) {
	r.writeTotal.WithLabelValues(result).Inc()
}

// Gatherer exposes the registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile atomically writes all metrics to path.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
