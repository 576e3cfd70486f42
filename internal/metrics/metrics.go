// Package metrics exposes Prometheus collectors for simulation runs.
package metrics

import (
	"github.com/atlas-desktop/market-simulator/internal/events"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector tracks kernel activity for the /metrics endpoint.
type Collector struct {
	eventsDispatched *prometheus.CounterVec
	ordersPlaced     prometheus.Counter
	ordersFulfilled  prometheus.Counter
	simulationClock  prometheus.Gauge
	queueDepth       prometheus.Gauge
}

// NewCollector creates the collectors and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		eventsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simulator",
			Name:      "events_dispatched_total",
			Help:      "Events dispatched by the kernel, by event type.",
		}, []string{"type"}),
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "simulator",
			Name:      "orders_placed_total",
			Help:      "Orders accepted by the broker.",
		}),
		ordersFulfilled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "simulator",
			Name:      "orders_fulfilled_total",
			Help:      "Orders executed and turned into transactions.",
		}),
		simulationClock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "simulator",
			Name:      "virtual_time_seconds",
			Help:      "Current virtual clock as a unix timestamp.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "simulator",
			Name:      "queue_depth",
			Help:      "Scheduled events awaiting dispatch.",
		}),
	}
	reg.MustRegister(
		c.eventsDispatched,
		c.ordersPlaced,
		c.ordersFulfilled,
		c.simulationClock,
		c.queueDepth,
	)
	return c
}

// Observe records one dispatched event. Attach with Manager.OnDispatch.
func (c *Collector) Observe(e events.Event) {
	c.eventsDispatched.WithLabelValues(string(e.Type)).Inc()
	c.simulationClock.Set(float64(e.Time.Unix()))
	switch e.Type {
	case events.TypeOrderPlaced:
		c.ordersPlaced.Inc()
	case events.TypeOrderFulfilled:
		c.ordersFulfilled.Inc()
	}
}

// SetQueueDepth records the pending queue length.
func (c *Collector) SetQueueDepth(n int) {
	c.queueDepth.Set(float64(n))
}
