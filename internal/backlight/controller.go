package backlight

import (
	"context"
	"fmt"
	"log"

	"desktop2mqtt/internal/broker"
	"desktop2mqtt/internal/bus"
	"desktop2mqtt/internal/queue"
	"desktop2mqtt/internal/types"
)

// Update is payload received on backlight set topic.
type Update struct {
	State      *types.PowerState `json:"state"`
	Brightness *uint32           `json:"brightness"`
}

// Controller applies backlight commands and reports backlight state.
// It should be created by New().
type Controller struct {
	backlight Backlight
	topic     string
	changes   *queue.Queue[types.StateChange]
	inbound   chan bus.Event
}

// New creates Controller and subscribes to inbound mqtt messages.
func New(opts *Options) (*Controller, error) {
	ch, err := opts.Bus.Subscribe(broker.InboundChannel, "backlight", broker.InboundChannelSize)
	if err != nil {
		return nil, err
	}
	return &Controller{
		backlight: opts.Backlight,
		topic:     opts.Topics.BacklightSet(),
		changes:   opts.Changes,
		inbound:   ch,
	}, nil
}

// Run emits initial backlight state and then handles updates until inbound channel is closed.
func (c *Controller) Run(ctx context.Context) error {
	power, err := c.backlight.Power()
	if err != nil {
		return fmt.Errorf("unable to read backlight power: %w", err)
	}
	brightness, err := c.backlight.Brightness()
	if err != nil {
		return fmt.Errorf("unable to read backlight brightness: %w", err)
	}
	if err := c.emit(power, brightness); err != nil {
		return err
	}

	for {
		select {
		case event, ok := <-c.inbound:
			if !ok {
				return nil
			}
			msg := event.Data.(types.MQTTMessage)
			if msg.Topic != c.topic {
				continue
			}
			var update Update
			if err := msg.Decode(&update); err != nil {
				log.Printf("ignoring backlight update: %s", err)
				continue
			}
			// Whatever was applied is reported, even if the other half failed.
			applied := false
			if update.State != nil {
				if err := c.backlight.SetPower(bool(*update.State)); err != nil {
					log.Printf("unable to set backlight power: %s", err)
				} else {
					power = bool(*update.State)
					applied = true
				}
			}
			if update.Brightness != nil {
				if err := c.backlight.SetBrightness(*update.Brightness); err != nil {
					log.Printf("unable to set backlight brightness: %s", err)
				} else {
					brightness = *update.Brightness
					if actual, err := c.backlight.Brightness(); err == nil {
						brightness = actual
					}
					applied = true
				}
			}
			if !applied {
				continue
			}
			if err := c.emit(power, brightness); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Controller) emit(power bool, brightness uint32) error {
	if err := c.changes.Send(types.Backlight{Power: power, Brightness: brightness}); err != nil {
		return fmt.Errorf("unable to send backlight state: %w", err)
	}
	return nil
}
