// Package metrics exports simulation and HTTP metrics to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loguhan/FactoryGame/internal/sim/world"
)

const namespace = "factory"

// Metrics implements world.TickObserver.
type Metrics struct {
	reg *prometheus.Registry

	ticks       prometheus.Counter
	tickSeconds prometheus.Histogram
	commands    prometheus.Counter
	rejected    prometheus.Counter
	sessions    prometheus.Gauge
	buildings   prometheus.Gauge
	beltItems   prometheus.Gauge
	looseItems  prometheus.Gauge
	powerRatio  prometheus.Gauge
	lastTick    prometheus.Gauge

	reqDuration *prometheus.HistogramVec
	reqErrors   *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, which also carries the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ticks_total",
			Help: "Simulation ticks executed.",
		}),
		tickSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "tick_duration_seconds",
			Help:    "Wall time spent stepping one tick.",
			Buckets: []float64{0.0005, 0.001, 0.002, 0.004, 0.008, 0.016, 0.032, 0.064},
		}),
		commands: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "commands_total",
			Help: "Commands applied by the world.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "commands_rejected_total",
			Help: "Commands answered with an error code.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "sessions",
			Help: "Connected sessions.",
		}),
		buildings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "buildings",
			Help: "Placed buildings.",
		}),
		beltItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "belt_items",
			Help: "Items riding belts.",
		}),
		looseItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "loose_items",
			Help: "Items off-belt.",
		}),
		powerRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "power_ratio",
			Help: "Produced over consumed power, capped at 1.",
		}),
		lastTick: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "tick",
			Help: "Last executed tick.",
		}),
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP API request latency.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "path", "status"}),
		reqErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_request_errors_total",
			Help: "HTTP API requests that ended with 4xx or 5xx.",
		}, []string{"method", "path", "status"}),
	}
	reg.MustRegister(
		m.ticks, m.tickSeconds, m.commands, m.rejected, m.sessions,
		m.buildings, m.beltItems, m.looseItems, m.powerRatio, m.lastTick,
		m.reqDuration, m.reqErrors,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveTick(s world.TickSummary) {
	m.ticks.Inc()
	m.tickSeconds.Observe(s.Duration.Seconds())
	m.commands.Add(float64(s.Commands))
	m.rejected.Add(float64(s.Rejected))
	m.sessions.Set(float64(s.Sessions))
	m.buildings.Set(float64(s.Buildings))
	m.beltItems.Set(float64(s.BeltItems))
	m.looseItems.Set(float64(s.LooseItems))
	m.powerRatio.Set(s.PowerRatio)
	m.lastTick.Set(float64(s.Tick))
}

// GaugeFunc registers a gauge read from fn at scrape time.
func (m *Metrics) GaugeFunc(name, help string, fn func() float64) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace, Name: name, Help: help,
	}, fn))
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Middleware records latency and error counts per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.reqDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		if c.Writer.Status() >= 400 {
			m.reqErrors.WithLabelValues(c.Request.Method, path, status).Inc()
		}
	}
}
