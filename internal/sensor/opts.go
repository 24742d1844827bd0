package sensor

import (
	"time"

	"desktop2mqtt/internal/queue"
	"desktop2mqtt/internal/types"
)

// Options contains configurable options for the sensor poller.
type Options struct {
	Types    []Type
	PollRate time.Duration
	Changes  *queue.Queue[types.StateChange]
	// Reader defaults to system reader backed by gopsutil.
	Reader Reader
}
