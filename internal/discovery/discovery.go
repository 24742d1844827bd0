package discovery

import (
	"context"
	"fmt"
	"log"
	"strings"

	"desktop2mqtt/internal/queue"
	"desktop2mqtt/internal/types"
)

// Registration is single Home Assistant config message.
type Registration struct {
	Topic  string      `json:"topic"`
	Config interface{} `json:"config"`
	// Subscribe is topic which should be subscribed before config is published.
	Subscribe string `json:"-"`
}

// Discovery announces enabled modules to Home Assistant.
// It should be created by New().
type Discovery struct {
	registrations []Registration
	commands      *queue.Queue[types.MQTTCommand]
}

// New creates Discovery and computes all registrations.
func New(opts *Options) *Discovery {
	return &Discovery{
		registrations: registrations(opts),
		commands:      opts.Commands,
	}
}

// Registrations returns all registrations in publish order.
func (d *Discovery) Registrations() []Registration {
	return d.registrations
}

// Run publishes every registration once and returns.
func (d *Discovery) Run(ctx context.Context) error {
	for _, r := range d.registrations {
		if ctx.Err() != nil {
			return nil
		}
		if r.Subscribe != "" {
			if err := d.commands.Send(types.Subscribe(r.Subscribe)); err != nil {
				return fmt.Errorf("unable to subscribe %s: %w", r.Subscribe, err)
			}
		}
		cmd, err := types.NewJSONCommand(r.Topic, r.Config)
		if err != nil {
			return err
		}
		if err := d.commands.Send(cmd); err != nil {
			return fmt.Errorf("unable to publish %s: %w", r.Topic, err)
		}
	}
	log.Printf("published %d discovery configs", len(d.registrations))
	return nil
}

func registrations(opts *Options) []Registration {
	t := opts.Topics
	entityID := t.EntityID()
	device := opts.Device
	name := device.Name
	entity := func(entityName, id string) Entity {
		return Entity{
			AvailabilityTopic:   t.Availability(),
			Name:                entityName,
			UniqueID:            fmt.Sprintf("%s_%s_desktop2mqtt", entityID, id),
			StateTopic:          t.State(),
			Device:              device,
			JSONAttributesTopic: t.State(),
		}
	}

	occupancy := BinarySensorConfig{
		Entity:        entity(name+" Occupancy", "occupancy"),
		DeviceClass:   "occupancy",
		ValueTemplate: "{{ value_json.occupancy }}",
		PayloadOn:     true,
		PayloadOff:    false,
	}
	if opts.IdlePollRate > 0 {
		occupancy.ExpireAfter = uint64(2 * opts.IdlePollRate.Seconds())
	}
	result := []Registration{{Topic: t.Discovery("binary_sensor", "occupancy"), Config: occupancy}}

	if opts.Backlight {
		result = append(result, Registration{
			Topic: t.Discovery("light", "backlight"),
			Config: LightConfig{
				Entity:       entity(name+" Backlight", "backlight"),
				CommandTopic: t.BacklightSet(),
				Brightness:   true,
				Schema:       "json",
			},
			Subscribe: t.BacklightSet(),
		})
	}

	for _, s := range opts.Sensors {
		result = append(result, Registration{
			Topic: t.Discovery("sensor", s.ID),
			Config: SensorConfig{
				Entity:            entity(strings.TrimSpace(name+" "+s.Name), s.ID),
				DeviceClass:       s.Class.DeviceClass(),
				ValueTemplate:     fmt.Sprintf("{{ value_json.sensors.%s }}", s.ID),
				UnitOfMeasurement: s.Class.Unit(),
				Icon:              s.Icon,
			},
		})
	}

	for _, b := range opts.Buttons {
		slug := b.Slug()
		e := entity(name+" "+b.Name, slug)
		e.StateTopic = ""
		result = append(result, Registration{
			Topic: t.Discovery("button", slug),
			Config: ButtonConfig{
				Entity:       e,
				CommandTopic: t.Command(slug),
				DeviceClass:  b.Button,
				Icon:         b.Icon,
			},
		})
	}

	return result
}
