package types

import (
	"encoding/json"
	"fmt"
)

// StateChange is produced by producer workers and consumed only by
// desktop2mqtt/internal/state. Implemented by Idle, Backlight and Sensor.
type StateChange interface {
	stateChange()
}

// Idle reports whether the user is idle.
type Idle struct {
	IsIdle bool
}

// Backlight reports display power and brightness.
type Backlight struct {
	Power      bool
	Brightness uint32
}

// Sensor reports single sensor value. Value is already rounded by producer.
type Sensor struct {
	Name  string
	Value float32
}

func (Idle) stateChange()      {}
func (Backlight) stateChange() {}
func (Sensor) stateChange()    {}

// PowerState is encoded as "ON" or "OFF", as expected by Home Assistant json light schema.
type PowerState bool

const (
	PowerOn  PowerState = true
	PowerOff PowerState = false
)

// String implements fmt.Stringer.
func (p PowerState) String() string {
	if p {
		return "ON"
	}
	return "OFF"
}

// MarshalJSON implements json.Marshaler.
func (p PowerState) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *PowerState) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "ON":
		*p = PowerOn
	case "OFF":
		*p = PowerOff
	default:
		return fmt.Errorf("unknown power state %q", s)
	}
	return nil
}

// DesktopState is the snapshot published to the state topic.
// Backlight power and brightness are encoded as "state" and "brightness":
// the backlight light entity uses schema json with this topic as state_topic,
// and Home Assistant json light schema reads only those two keys.
type DesktopState struct {
	Occupancy           *bool              `json:"occupancy"`
	BacklightPower      PowerState         `json:"state"`
	BacklightBrightness uint32             `json:"brightness"`
	Sensors             map[string]float32 `json:"sensors"`
}

// NewDesktopState returns snapshot with default values.
func NewDesktopState() DesktopState {
	return DesktopState{
		BacklightPower: PowerOn,
		Sensors:        make(map[string]float32),
	}
}

// Copy returns deep copy of the snapshot.
func (s DesktopState) Copy() DesktopState {
	c := s
	if s.Occupancy != nil {
		occupancy := *s.Occupancy
		c.Occupancy = &occupancy
	}
	c.Sensors = make(map[string]float32, len(s.Sensors))
	for name, value := range s.Sensors {
		c.Sensors[name] = value
	}
	return c
}
