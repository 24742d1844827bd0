package state

import (
	"desktop2mqtt/internal/bus"
	"desktop2mqtt/internal/queue"
	"desktop2mqtt/internal/types"
)

// Options contains configurable options for the state aggregator.
type Options struct {
	Topics   types.Topics
	Changes  *queue.Queue[types.StateChange]
	Commands *queue.Queue[types.MQTTCommand]
	// Bus is optional, when set every published snapshot is also sent to SnapshotChannel.
	Bus *bus.Bus
}
