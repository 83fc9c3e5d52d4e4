// Package metrics exposes agent counters to Prometheus.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sigcntrl/lampagent/pkg/heartbeat"
	"github.com/sigcntrl/lampagent/pkg/wire"
)

const namespace = "lampagent"

// Sources are read on every scrape. Nil sources report nothing.
type Sources struct {
	// Heartbeat returns the live session counters.
	Heartbeat func() heartbeat.Stats

	// FlickerActive returns the number of running flicker tasks.
	FlickerActive func() int
}

// Collector implements prometheus.Collector over the agent state.
type Collector struct {
	mu      sync.RWMutex
	sources Sources

	commands *prometheus.CounterVec

	heartbeatDescs map[string]*prometheus.Desc
	flickerDesc    *prometheus.Desc
}

// NewCollector creates a collector and registers it with registerer.
// A nil registerer means prometheus.DefaultRegisterer.
func NewCollector(registerer prometheus.Registerer) (*Collector, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	c := &Collector{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "commands_total",
			Help:      "Dispatched commands by kind and result",
		}, []string{"kind", "result"}),
		heartbeatDescs: make(map[string]*prometheus.Desc),
		flickerDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "flicker", "active_tasks"),
			"Number of running flicker tasks",
			nil, nil,
		),
	}
	for _, name := range heartbeatCounters {
		c.heartbeatDescs[name] = prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "heartbeat", name+"_total"),
			"Heartbeat session counter: "+name,
			nil, nil,
		)
	}

	if err := registerer.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}

var heartbeatCounters = []string{
	"sent", "send_failures", "received", "in_order",
	"lost", "restarts", "resend_requests", "framing_errors",
}

func statValues(s heartbeat.Stats) map[string]uint64 {
	return map[string]uint64{
		"sent":            s.Sent,
		"send_failures":   s.SendFailures,
		"received":        s.Received,
		"in_order":        s.InOrder,
		"lost":            s.Lost,
		"restarts":        s.Restarts,
		"resend_requests": s.ResendRequests,
		"framing_errors":  s.FramingErrors,
	}
}

// Bind sets the scrape sources.
func (c *Collector) Bind(sources Sources) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = sources
}

// ObserveCommand counts a dispatched command. Its signature matches
// dispatch.Config.OnCommand.
func (c *Collector) ObserveCommand(cmd wire.Command, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.commands.WithLabelValues(cmd.Kind.String(), result).Inc()
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.commands.Describe(ch)
	for _, name := range heartbeatCounters {
		ch <- c.heartbeatDescs[name]
	}
	ch <- c.flickerDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.commands.Collect(ch)

	c.mu.RLock()
	sources := c.sources
	c.mu.RUnlock()

	if sources.Heartbeat != nil {
		values := statValues(sources.Heartbeat())
		for _, name := range heartbeatCounters {
			ch <- prometheus.MustNewConstMetric(c.heartbeatDescs[name], prometheus.CounterValue, float64(values[name]))
		}
	}
	if sources.FlickerActive != nil {
		ch <- prometheus.MustNewConstMetric(c.flickerDesc, prometheus.GaugeValue, float64(sources.FlickerActive()))
	}
}
