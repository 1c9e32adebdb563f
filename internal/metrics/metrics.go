// Package metrics expone metricas Prometheus del servicio.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector agrupa las metricas HTTP y de dominio.
type Collector struct {
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	taskOps      *prometheus.CounterVec
	authEvents   *prometheus.CounterVec
}

// NewCollector crea las metricas y las registra en reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "todo_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		taskOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_task_operations_total",
			Help: "Task operations by operation and result.",
		}, []string{"operation", "result"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_auth_events_total",
			Help: "Authentication events by event and result.",
		}, []string{"event", "result"}),
	}

	reg.MustRegister(c.httpRequests, c.httpLatency, c.taskOps, c.authEvents)
	return c
}

// RecordHTTPRequest registra una respuesta HTTP.
func (c *Collector) RecordHTTPRequest(method, route string, status int, latency time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(latency.Seconds())
}

func (c *Collector) RecordTaskOperation(operation, result string) {
	c.taskOps.WithLabelValues(operation, result).Inc()
}

func (c *Collector) RecordAuthEvent(event, result string) {
	c.authEvents.WithLabelValues(event, result).Inc()
}

// Handler devuelve el handler de scrape para gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
