package command

import (
	"desktop2mqtt/internal/bus"
	"desktop2mqtt/internal/queue"
	"desktop2mqtt/internal/types"
)

// Options contains configurable options for custom commands.
type Options struct {
	Definitions []Definition
	Topics      types.Topics
	Commands    *queue.Queue[types.MQTTCommand]
	Bus         *bus.Bus
	// Runner defaults to ExecRunner.
	Runner Runner
}
