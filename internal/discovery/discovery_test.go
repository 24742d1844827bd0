package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"desktop2mqtt/internal/command"
	"desktop2mqtt/internal/queue"
	"desktop2mqtt/internal/sensor"
	"desktop2mqtt/internal/types"
)

func newTestOptions(t *testing.T) *Options {
	descriptors, err := sensor.Describe([]sensor.Type{
		{Kind: sensor.KindLoad},
		{Kind: sensor.KindDiskUsage, Disks: []string{"/", "/home", "/mnt/data"}},
	})
	require.Nil(t, err)

	return &Options{
		Topics:       types.NewTopics("desk"),
		Device:       NewDevice("desk", "Desk", "1.2.3"),
		IdlePollRate: 5 * time.Second,
		Backlight:    true,
		Sensors:      descriptors,
		Commands:     queue.New[types.MQTTCommand](),
	}
}

// drain runs discovery and returns every queued command.
func drain(t *testing.T, opts *Options) []types.MQTTCommand {
	log.SetOutput(io.Discard)
	require.Nil(t, New(opts).Run(context.Background()))
	opts.Commands.Close()

	var commands []types.MQTTCommand
	for cmd := range opts.Commands.C() {
		commands = append(commands, cmd)
	}
	return commands
}

func decode(t *testing.T, payload string) map[string]interface{} {
	var config map[string]interface{}
	require.Nil(t, json.Unmarshal([]byte(payload), &config))
	return config
}

func TestRunCompleteness(t *testing.T) {
	commands := drain(t, newTestOptions(t))

	var emitted []types.MQTTMessage
	var subscribed []string
	for _, cmd := range commands {
		switch cmd.Kind {
		case types.CommandEmit:
			emitted = append(emitted, cmd.Message)
		case types.CommandSubscribe:
			subscribed = append(subscribed, cmd.Topic)
		}
	}

	require.Equal(t, []string{"desktop2mqtt/desk/set"}, subscribed)
	require.Equal(t, 6, len(emitted))
	require.Equal(t, []string{
		"homeassistant/binary_sensor/desk/occupancy/config",
		"homeassistant/light/desk/backlight/config",
		"homeassistant/sensor/desk/cpu_load/config",
		"homeassistant/sensor/desk/disk_usage__/config",
		"homeassistant/sensor/desk/disk_usage__home/config",
		"homeassistant/sensor/desk/disk_usage__mnt_data/config",
	}, []string{emitted[0].Topic, emitted[1].Topic, emitted[2].Topic, emitted[3].Topic, emitted[4].Topic, emitted[5].Topic})

	uniqueIDs := make(map[string]struct{})
	for _, msg := range emitted {
		config := decode(t, msg.Payload)
		uniqueIDs[config["unique_id"].(string)] = struct{}{}
		require.Equal(t, []interface{}{"desktop2mqtt_desk"}, config["device"].(map[string]interface{})["identifiers"])
		require.Equal(t, "desktop2mqtt/desk", config["state_topic"])
		require.Equal(t, "desktop2mqtt/desk", config["json_attributes_topic"])
		require.Equal(t, "desktop2mqtt/desk/availability", config["availability_topic"])
	}
	require.Equal(t, 6, len(uniqueIDs))
}

func TestRunSubscribeBeforeBacklightConfig(t *testing.T) {
	commands := drain(t, newTestOptions(t))

	require.Equal(t, types.CommandEmit, commands[0].Kind)
	require.Equal(t, types.Subscribe("desktop2mqtt/desk/set"), commands[1])
	require.Equal(t, "homeassistant/light/desk/backlight/config", commands[2].Message.Topic)
}

func TestOccupancy(t *testing.T) {
	tests := []struct {
		inputPollRate       time.Duration
		expectedExpireAfter interface{}
	}{
		{inputPollRate: 5 * time.Second, expectedExpireAfter: float64(10)},
		{inputPollRate: 30 * time.Second, expectedExpireAfter: float64(60)},
		{inputPollRate: 0, expectedExpireAfter: nil},
	}

	for _, test := range tests {
		opts := &Options{
			Topics:       types.NewTopics("desk"),
			Device:       NewDevice("desk", "Desk", "1.2.3"),
			IdlePollRate: test.inputPollRate,
			Commands:     queue.New[types.MQTTCommand](),
		}
		commands := drain(t, opts)
		require.Equal(t, 1, len(commands))

		config := decode(t, commands[0].Message.Payload)
		require.Equal(t, "Desk Occupancy", config["name"])
		require.Equal(t, "desk_occupancy_desktop2mqtt", config["unique_id"])
		require.Equal(t, "occupancy", config["device_class"])
		require.Equal(t, "{{ value_json.occupancy }}", config["value_template"])
		require.Equal(t, true, config["payload_on"])
		require.Equal(t, false, config["payload_off"])
		require.Equal(t, test.expectedExpireAfter, config["expire_after"])
	}
}

func TestLight(t *testing.T) {
	regs := New(newTestOptions(t)).Registrations()
	light := regs[1].Config.(LightConfig)

	require.Equal(t, "Desk Backlight", light.Name)
	require.Equal(t, "desk_backlight_desktop2mqtt", light.UniqueID)
	require.Equal(t, "desktop2mqtt/desk/set", light.CommandTopic)
	require.True(t, light.Brightness)
	require.Equal(t, "json", light.Schema)
}

func TestSensors(t *testing.T) {
	descriptors, err := sensor.Describe([]sensor.Type{
		{Kind: sensor.KindCoreTemperature},
		{Kind: sensor.KindBattery},
		{Kind: sensor.KindDiskUsage, Disks: []string{"/"}},
	})
	require.Nil(t, err)

	opts := &Options{Topics: types.NewTopics("desk"), Device: NewDevice("desk", "Desk", ""), Sensors: descriptors}
	regs := New(opts).Registrations()
	require.Equal(t, 4, len(regs))

	tests := []struct {
		inputRegistration Registration
		expectedConfig    SensorConfig
	}{
		{
			inputRegistration: regs[1],
			expectedConfig: SensorConfig{
				DeviceClass:       "temperature",
				ValueTemplate:     "{{ value_json.sensors.core_temp }}",
				UnitOfMeasurement: "°C",
			},
		},
		{
			inputRegistration: regs[2],
			expectedConfig: SensorConfig{
				DeviceClass:       "battery",
				ValueTemplate:     "{{ value_json.sensors.battery_usage }}",
				UnitOfMeasurement: "%",
			},
		},
		{
			inputRegistration: regs[3],
			expectedConfig: SensorConfig{
				ValueTemplate:     "{{ value_json.sensors.disk_usage__ }}",
				UnitOfMeasurement: "%",
				Icon:              "mdi:harddisk",
			},
		},
	}

	for _, test := range tests {
		config := test.inputRegistration.Config.(SensorConfig)
		require.Equal(t, test.expectedConfig.DeviceClass, config.DeviceClass)
		require.Equal(t, test.expectedConfig.ValueTemplate, config.ValueTemplate)
		require.Equal(t, test.expectedConfig.UnitOfMeasurement, config.UnitOfMeasurement)
		require.Equal(t, test.expectedConfig.Icon, config.Icon)
	}

	require.Equal(t, "Desk Core Temperature", regs[1].Config.(SensorConfig).Name)
	require.Equal(t, "Desk", regs[2].Config.(SensorConfig).Name)
	require.Equal(t, "Desk Disk Usage /", regs[3].Config.(SensorConfig).Name)
	require.Equal(t, "homeassistant/sensor/desk/battery_usage/config", regs[2].Topic)
}

func TestButtons(t *testing.T) {
	opts := &Options{
		Topics: types.NewTopics("desk"),
		Device: NewDevice("desk", "Desk", ""),
		Buttons: []command.Definition{
			{Name: "Lock Screen", Command: "loginctl lock-session", Icon: "mdi:lock"},
			{Name: "Reboot", Command: "systemctl reboot", Button: command.ButtonRestart},
		},
		Commands: queue.New[types.MQTTCommand](),
	}
	commands := drain(t, opts)
	require.Equal(t, 3, len(commands))

	require.Equal(t, "homeassistant/button/desk/lock-screen/config", commands[1].Message.Topic)
	lock := decode(t, commands[1].Message.Payload)
	require.Equal(t, "Desk Lock Screen", lock["name"])
	require.Equal(t, "desk_lock-screen_desktop2mqtt", lock["unique_id"])
	require.Equal(t, "desktop2mqtt/desk/lock-screen", lock["command_topic"])
	require.Equal(t, "mdi:lock", lock["icon"])
	require.NotContains(t, lock, "device_class")
	require.NotContains(t, lock, "state_topic")

	reboot := decode(t, commands[2].Message.Payload)
	require.Equal(t, "restart", reboot["device_class"])
	require.NotContains(t, reboot, "icon")
}

func TestNewDevice(t *testing.T) {
	device := NewDevice("desk", "Desk", "1.2.3")
	require.Equal(t, Device{
		Identifiers:  []string{"desktop2mqtt_desk"},
		Name:         "Desk",
		Manufacturer: "desktop2mqtt",
		Model:        "desktop2mqtt",
		SWVersion:    "1.2.3",
	}, device)
}

func TestRunPublishError(t *testing.T) {
	opts := newTestOptions(t)
	opts.Commands.Close()

	err := New(opts).Run(context.Background())
	require.True(t, errors.Is(err, queue.ErrClosed))
}
