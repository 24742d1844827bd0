package state

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"desktop2mqtt/internal/bus"
	"desktop2mqtt/internal/queue"
	"desktop2mqtt/internal/types"
)

// SnapshotChannel is bus channel with every published snapshot.
// Event data is encoded DesktopState ([]byte).
const SnapshotChannel = "state:snapshot"

// Aggregator owns the only DesktopState instance. It should be created by New().
type Aggregator struct {
	topic    string
	changes  *queue.Queue[types.StateChange]
	commands *queue.Queue[types.MQTTCommand]
	bus      *bus.Bus
	state    types.DesktopState
	applied  atomic.Uint64
}

// New creates Aggregator with default state.
func New(opts *Options) *Aggregator {
	return &Aggregator{
		topic:    opts.Topics.State(),
		changes:  opts.Changes,
		commands: opts.Commands,
		bus:      opts.Bus,
		state:    types.NewDesktopState(),
	}
}

// Applied returns number of processed state changes.
func (a *Aggregator) Applied() uint64 {
	return a.applied.Load()
}

// Run publishes default state, then folds every state change into state and
// publishes full snapshot after each one.
// Returns nil when changes queue is closed or ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context) error {
	if err := a.publish(); err != nil {
		return err
	}

	log.Printf("starting state eventloop")
	for {
		select {
		case change, ok := <-a.changes.C():
			if !ok {
				log.Printf("state changes queue closed")
				return nil
			}
			Apply(&a.state, change)
			a.applied.Add(1)
			if err := a.publish(); err != nil {
				return err
			}
		case <-ctx.Done():
			log.Printf("stopping state eventloop")
			return nil
		}
	}
}

// Apply folds single change into state.
// Every change kind owns disjoint fields of DesktopState.
func Apply(state *types.DesktopState, change types.StateChange) {
	switch c := change.(type) {
	case types.Idle:
		occupancy := !c.IsIdle
		state.Occupancy = &occupancy
	case types.Backlight:
		state.BacklightPower = types.PowerState(c.Power)
		state.BacklightBrightness = c.Brightness
	case types.Sensor:
		if state.Sensors == nil {
			state.Sensors = make(map[string]float32)
		}
		state.Sensors[c.Name] = c.Value
	default:
		log.Printf("unknown state change %T", change)
	}
}

// publish queues full snapshot for broker.
func (a *Aggregator) publish() error {
	cmd, err := types.NewJSONCommand(a.topic, a.state)
	if err != nil {
		return err
	}
	if err := a.commands.Send(cmd); err != nil {
		return fmt.Errorf("unable to publish state: %w", err)
	}
	if a.bus != nil {
		snapshot := []byte(cmd.Message.Payload)
		if err := a.bus.Publish(SnapshotChannel, snapshot); err != nil && !errors.Is(err, bus.ErrUnknownChannel) {
			log.Printf("unable to publish snapshot to bus: %s", err)
		}
	}
	return nil
}
