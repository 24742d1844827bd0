package backlight

import (
	"desktop2mqtt/internal/bus"
	"desktop2mqtt/internal/queue"
	"desktop2mqtt/internal/types"
)

// Options contains configurable options for the backlight controller.
type Options struct {
	Backlight Backlight
	Topics    types.Topics
	Changes   *queue.Queue[types.StateChange]
	Bus       *bus.Bus
}
