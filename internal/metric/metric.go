package metric

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mqttConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "desktop2mqtt_mqtt_connected",
		Help: "1 when connected to mqtt broker",
	})
	messagesPublished = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "desktop2mqtt_messages_published",
		Help: "Total number of published messages",
	})
	topicsSubscribed = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "desktop2mqtt_topics_subscribed",
		Help: "Number of subscribed topics",
	})
	messagesRecv = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "desktop2mqtt_messages_recv",
		Help: "Total number of received messages",
	})
	pendingCommands = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "desktop2mqtt_pending_commands",
		Help: "Number of commands waiting for broker gateway",
	})
	messagesDropped = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "desktop2mqtt_messages_dropped",
		Help: "Total number of inbound messages dropped to slow subscriber",
	})
	stateChanges = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "desktop2mqtt_state_changes",
		Help: "Total number of applied state changes",
	})

	registerOnce sync.Once
)

// Collector refreshes Prometheus collectors. It should be created by New().
type Collector struct {
	broker        BrokerStats
	busDropped    Counter
	stateApplied  Counter
	refreshPeriod time.Duration
}

// New registers prometheus collectors and creates Collector.
func New(opts *Options) *Collector {
	registerOnce.Do(func() {
		prometheus.MustRegister(mqttConnected)
		prometheus.MustRegister(messagesPublished)
		prometheus.MustRegister(topicsSubscribed)
		prometheus.MustRegister(messagesRecv)
		prometheus.MustRegister(pendingCommands)
		prometheus.MustRegister(messagesDropped)
		prometheus.MustRegister(stateChanges)
	})

	refreshPeriod := opts.RefreshPeriod
	if refreshPeriod <= 0 {
		refreshPeriod = 10 * time.Second
	}
	return &Collector{
		broker:        opts.Broker,
		busDropped:    opts.BusDropped,
		stateApplied:  opts.StateApplied,
		refreshPeriod: refreshPeriod,
	}
}

// Run refreshes collectors every refresh period until ctx is cancelled.
func (c *Collector) Run(ctx context.Context) error {
	log.Printf("starting prometheus worker")
	ticker := time.NewTicker(c.refreshPeriod)
	defer ticker.Stop()

	for {
		c.collect()
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

// collect will refresh Prometheus collectors.
func (c *Collector) collect() {
	stats := c.broker.Stats()
	if c.broker.IsConnected() {
		mqttConnected.Set(1)
	} else {
		mqttConnected.Set(0)
	}
	messagesPublished.Set(float64(stats.Published))
	topicsSubscribed.Set(float64(stats.Subscribed))
	messagesRecv.Set(float64(stats.Received))
	pendingCommands.Set(float64(stats.PendingCommands))
	if c.busDropped != nil {
		messagesDropped.Set(float64(c.busDropped()))
	}
	if c.stateApplied != nil {
		stateChanges.Set(float64(c.stateApplied()))
	}
}
