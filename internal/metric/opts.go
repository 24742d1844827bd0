package metric

import (
	"time"

	"desktop2mqtt/internal/broker"
)

// BrokerStats is implemented by broker.Broker.
type BrokerStats interface {
	Stats() broker.Stats
	IsConnected() bool
}

// Counter returns monotonic count, e.g. bus.Bus.Dropped or state.Aggregator.Applied.
type Counter func() uint64

// Options contains configurable options for the metric.
type Options struct {
	Broker        BrokerStats
	BusDropped    Counter
	StateApplied  Counter
	RefreshPeriod time.Duration
}
