// Package metrics exposes Prometheus metrics for the pantry service.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pantry"

// Metrics holds the service collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	analysesTotal       *prometheus.CounterVec
	ingredientStatus    *prometheus.CounterVec
	quotaRejections     *prometheus.CounterVec
	usageRecordFailures *prometheus.CounterVec
	receiptScans        *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		analysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "requests_total",
				Help:      "Recipe analyses by result",
			},
			[]string{"result"},
		),
		ingredientStatus: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "ingredients_total",
				Help:      "Analyzed ingredients by availability status",
			},
			[]string{"status"},
		),
		quotaRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "usage",
				Name:      "quota_rejections_total",
				Help:      "Requests rejected because the daily quota was used up",
			},
			[]string{"kind"},
		),
		usageRecordFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "usage",
				Name:      "record_failures_total",
				Help:      "Failed usage counter increments",
			},
			[]string{"kind"},
		),
		receiptScans: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "receipts",
				Name:      "scans_total",
				Help:      "Receipt scans by outcome",
			},
			[]string{"status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}
}

func (m *Metrics) AnalysisCompleted(result string) {
	if m == nil {
		return
	}
	m.analysesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IngredientStatus(status string) {
	if m == nil {
		return
	}
	m.ingredientStatus.WithLabelValues(status).Inc()
}

func (m *Metrics) QuotaRejected(kind string) {
	if m == nil {
		return
	}
	m.quotaRejections.WithLabelValues(kind).Inc()
}

func (m *Metrics) UsageRecordFailed(kind string) {
	if m == nil {
		return
	}
	m.usageRecordFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) ReceiptScanned(status string) {
	if m == nil {
		return
	}
	m.receiptScans.WithLabelValues(status).Inc()
}

// Middleware records request latency per matched route.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		m.requestDuration.
			WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
