package broker

import (
	"desktop2mqtt/internal/bus"
	"desktop2mqtt/internal/queue"
	"desktop2mqtt/internal/types"
)

// Options contains configurable options for the broker.
type Options struct {
	// URL of mqtt broker, e.g. mqtt://localhost:1883.
	// User info from URL is used when Username is empty.
	URL      string
	ClientID string
	Username string
	Password string
	// QoS used for publishing. Subscriptions always use QoS 1.
	QoS      byte
	Topics   types.Topics
	Commands *queue.Queue[types.MQTTCommand]
	Bus      *bus.Bus
}
