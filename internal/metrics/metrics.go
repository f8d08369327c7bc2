// Package metrics exposes Prometheus metrics for sessions, broadcasts and
// task mutations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the hub, router and service report to.
type Recorder interface {
	SessionOpened()
	SessionClosed()
	EventPublished(kind string)
	EventDelivered()
	EventDropped()
	Mutation(op string, ok bool)
}

type Collector struct {
	sessions  prometheus.Gauge
	published *prometheus.CounterVec
	delivered prometheus.Counter
	dropped   prometheus.Counter
	mutations *prometheus.CounterVec
}

// NewCollector creates the metrics and registers them on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tasksync_sessions_active",
			Help: "Live WebSocket sessions.",
		}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tasksync_events_published_total",
			Help: "Change events handed to the broadcast router, by kind.",
		}, []string{"kind"}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasksync_events_delivered_total",
			Help: "Change events queued to a session.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasksync_events_dropped_total",
			Help: "Change events not delivered because the session was slow or gone.",
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tasksync_task_mutations_total",
			Help: "Task service mutations by operation and result.",
		}, []string{"op", "result"}),
	}

	reg.MustRegister(c.sessions, c.published, c.delivered, c.dropped, c.mutations)
	return c
}

func (c *Collector) SessionOpened() { c.sessions.Inc() }
func (c *Collector) SessionClosed() { c.sessions.Dec() }

func (c *Collector) EventPublished(kind string) {
	c.published.WithLabelValues(kind).Inc()
}

func (c *Collector) EventDelivered() { c.delivered.Inc() }
func (c *Collector) EventDropped() { c.dropped.Inc() }

func (c *Collector) Mutation(op string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	c.mutations.WithLabelValues(op, result).Inc()
}

// Handler serves the Prometheus scrape endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything. Handy in tests that do not assert on metrics.
type Nop struct{}

func (Nop) SessionOpened() {}
func (Nop) SessionClosed() {}
func (Nop) EventPublished(string) {}
func (Nop) EventDelivered() {}
func (Nop) EventDropped() {}
func (Nop) Mutation(string, bool) {}
