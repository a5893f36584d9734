// Package metrics exposes session counters to Prometheus and serves them,
// with a liveness probe, on an optional debug listener.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/ingest"
)

const namespace = "dialer"

// Collector implements engine.Recorder on its own registry.
type Collector struct {
	registry *prometheus.Registry

	applied       *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	sendsStarted  prometheus.Counter
	sendsFinished *prometheus.CounterVec
	inFlight      prometheus.Gauge
	parked        prometheus.Counter
	ignored       prometheus.Counter
	connected     prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		applied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_applied_total",
			Help:      "Push events applied to the local state, by kind.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Push events rejected before reaching the local state, by reason.",
		}, []string{"reason"}),
		sendsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sends_started_total",
			Help:      "Optimistic sends started.",
		}),
		sendsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sends_finished_total",
			Help:      "Sends resolved, by outcome.",
		}, []string{"outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sends_in_flight",
			Help:      "Sends awaiting acknowledgment.",
		}),
		parked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statuses_parked_total",
			Help:      "Status updates that arrived before their message.",
		}),
		ignored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statuses_ignored_total",
			Help:      "Status updates that would have moved a message backwards.",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "push_connected",
			Help:      "1 while the push channel is open.",
		}),
	}
	c.registry.MustRegister(
		c.applied, c.dropped, c.sendsStarted, c.sendsFinished, c.inFlight,
		c.parked, c.ignored, c.connected,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry is the registry the collector reports to.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) EventApplied(kind ingest.Kind) {
	c.applied.WithLabelValues(string(kind)).Inc()
}

func (c *Collector) EventDropped(reason string) {
	c.dropped.WithLabelValues(reason).Inc()
}

func (c *Collector) SendStarted() {
	c.sendsStarted.Inc()
	c.inFlight.Inc()
}

func (c *Collector) SendFinished(outcome string) {
	c.sendsFinished.WithLabelValues(outcome).Inc()
	c.inFlight.Dec()
}

func (c *Collector) StatusParked()  { c.parked.Inc() }
func (c *Collector) StatusIgnored() { c.ignored.Inc() }

// PushState tracks the push channel.
func (c *Collector) PushState(connected bool) {
	if connected {
		c.connected.Set(1)
		return
	}
	c.connected.Set(0)
}
