// Package metrics counts HTTP traffic for Prometheus and for the periodic
// log reporter.
package metrics

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "livraria"

// Collector owns the HTTP metrics and a private Prometheus registry.
type Collector struct {
	registry *prometheus.Registry
	logger   *slog.Logger

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
	lifecycleState   *prometheus.GaugeVec

	stateMu sync.Mutex

	total     atomic.Uint64
	errors    atomic.Uint64
	logEvery  uint64
	startedAt time.Time
}

// NewCollector creates a Collector. logEvery > 0 logs a summary line every
// logEvery requests.
func NewCollector(logger *slog.Logger, logEvery int) *Collector {
	c := &Collector{
		registry:  prometheus.NewRegistry(),
		logger:    logger,
		startedAt: time.Now(),
	}
	if logEvery > 0 {
		c.logEvery = uint64(logEvery)
	}

	c.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	c.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	c.requestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	c.lifecycleState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lifecycle_state",
			Help:      "Current server lifecycle state (1 for the active state)",
		},
		[]string{"state"},
	)

	c.registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.requestsInFlight,
		c.lifecycleState,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Handler serves the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// SetLifecycleState marks state as the only active lifecycle state.
func (c *Collector) SetLifecycleState(state string) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.lifecycleState.Reset()
	c.lifecycleState.WithLabelValues(state).Set(1)
}

// Total returns the number of completed requests.
func (c *Collector) Total() uint64 { return c.total.Load() }

// Errors returns the number of completed requests answered with 5xx.
func (c *Collector) Errors() uint64 { return c.errors.Load() }

// Uptime returns the time since the collector was created.
func (c *Collector) Uptime() time.Duration { return time.Since(c.startedAt) }

// Middleware records every request. It must run inside the chi router so
// the matched route pattern is known once the handler returns.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		c.requestsInFlight.Inc()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			c.requestsInFlight.Dec()
			c.observe(r, ww.Status(), time.Since(start))
		}()

		next.ServeHTTP(ww, r)
	})
}

func (c *Collector) observe(r *http.Request, status int, elapsed time.Duration) {
	if status == 0 {
		status = http.StatusOK
	}
	route := routePattern(r)

	c.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
	if status >= 500 {
		c.errors.Add(1)
	}

	n := c.total.Add(1)
	if c.logEvery > 0 && n%c.logEvery == 0 && c.logger != nil {
		c.logger.Info("request milestone",
			"requests", n,
			"errors", c.errors.Load(),
			"uptime", c.Uptime().Round(time.Second).String(),
		)
	}
}

// routePattern keeps label cardinality bounded: unmatched paths collapse
// into a single label.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
