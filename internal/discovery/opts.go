package discovery

import (
	"time"

	"desktop2mqtt/internal/command"
	"desktop2mqtt/internal/queue"
	"desktop2mqtt/internal/sensor"
	"desktop2mqtt/internal/types"
)

// Options contains configurable options for the discovery.
type Options struct {
	Topics types.Topics
	// Device is shared by every registration, its name prefixes entity names.
	Device Device
	// IdlePollRate is zero when idle module is disabled.
	IdlePollRate time.Duration
	Backlight    bool
	Sensors      []sensor.Descriptor
	Buttons      []command.Definition
	Commands     *queue.Queue[types.MQTTCommand]
}
