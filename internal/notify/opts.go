package notify

import (
	"desktop2mqtt/internal/bus"
	"desktop2mqtt/internal/queue"
	"desktop2mqtt/internal/types"
)

// Options contains configurable options for desktop notifications.
type Options struct {
	Topics   types.Topics
	Commands *queue.Queue[types.MQTTCommand]
	Bus      *bus.Bus
	// Notifier defaults to DBus.
	Notifier Notifier
}
