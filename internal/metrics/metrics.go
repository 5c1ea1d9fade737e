// Package metrics exposes Prometheus collectors for the conversion pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/datasweeper/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "datasweeper"

// Collector implements core.Observer on a dedicated registry.
type Collector struct {
	registry *prometheus.Registry

	uploads        *prometheus.CounterVec
	uploadBytes    prometheus.Counter
	rejected       *prometheus.CounterVec
	cleanOps       *prometheus.CounterVec
	passDuration   *prometheus.HistogramVec
	conversions    *prometheus.CounterVec
	convertedBytes *prometheus.CounterVec
	convertErrors  *prometheus.CounterVec
	sessions       prometheus.Gauge
}

// New registers all collectors, plus Go runtime and process collectors, on a
// fresh registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_uploaded_total",
			Help:      "Uploaded files accepted, by format.",
		}, []string{"format"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Bytes of accepted uploads.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_rejected_total",
			Help:      "Uploaded files rejected, by error code.",
		}, []string{"code"}),
		cleanOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clean_operations_total",
			Help:      "Cleaning operations applied, by operation.",
		}, []string{"op"}),
		passDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Duration of processing passes.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"result"}),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Successful exports, by target format.",
		}, []string{"format"}),
		convertedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "converted_bytes_total",
			Help:      "Bytes of exported files, by target format.",
		}, []string{"format"}),
		convertErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversion_errors_total",
			Help:      "Failed exports, by target format.",
		}, []string{"format"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Browser sessions held in memory.",
		}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.uploads,
		c.uploadBytes,
		c.rejected,
		c.cleanOps,
		c.passDuration,
		c.conversions,
		c.convertedBytes,
		c.convertErrors,
		c.sessions,
	)
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) FileUploaded(format core.Format, size int64) {
	c.uploads.WithLabelValues(format.String()).Inc()
	c.uploadBytes.Add(float64(size))
}

func (c *Collector) FileRejected(code string) {
	c.rejected.WithLabelValues(code).Inc()
}

func (c *Collector) CleanApplied(op core.CleanOp) {
	c.cleanOps.WithLabelValues(string(op)).Inc()
}

func (c *Collector) PassCompleted(d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.passDuration.WithLabelValues(result).Observe(d.Seconds())
}

func (c *Collector) Converted(format core.Format, size int64) {
	c.conversions.WithLabelValues(format.String()).Inc()
	c.convertedBytes.WithLabelValues(format.String()).Add(float64(size))
}

func (c *Collector) ConvertFailed(format core.Format) {
	c.convertErrors.WithLabelValues(format.String()).Inc()
}

func (c *Collector) SessionsActive(n int) {
	c.sessions.Set(float64(n))
}

var _ core.Observer = (*Collector)(nil)
