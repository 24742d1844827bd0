package api

import (
	"desktop2mqtt/internal/bus"
	"desktop2mqtt/internal/discovery"
)

// Broker is connection state of broker gateway.
type Broker interface {
	IsConnected() bool
}

// Options contains configurable options for the API.
type Options struct {
	Broker        Broker
	Snapshots     *Snapshots
	Registrations []discovery.Registration
	Bus           *bus.Bus
	AuthUsers     map[string]string
}
