package backlight

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"desktop2mqtt/internal/broker"
	"desktop2mqtt/internal/bus"
	"desktop2mqtt/internal/queue"
	"desktop2mqtt/internal/types"
)

type failingBacklight struct {
	*Stub
	powerErr      error
	brightnessErr error
}

func (f *failingBacklight) SetPower(on bool) error {
	if f.powerErr != nil {
		return f.powerErr
	}
	return f.Stub.SetPower(on)
}

func (f *failingBacklight) SetBrightness(value uint32) error {
	if f.brightnessErr != nil {
		return f.brightnessErr
	}
	return f.Stub.SetBrightness(value)
}

func receive(t *testing.T, changes *queue.Queue[types.StateChange]) types.StateChange {
	select {
	case change := <-changes.C():
		return change
	case <-time.After(time.Second):
		t.Fatalf("backlight change not received")
	}
	return nil
}

func TestControllerRun(t *testing.T) {
	log.SetOutput(io.Discard)

	evBus := bus.New()
	changes := queue.New[types.StateChange]()
	c, err := New(&Options{
		Backlight: NewStub(),
		Topics:    types.NewTopics("desk"),
		Changes:   changes,
		Bus:       evBus,
	})
	require.Nil(t, err)

	done := make(chan error, 1)
	go func() {
		done <- c.Run(context.Background())
	}()

	require.Equal(t, types.Backlight{Power: true, Brightness: 255}, receive(t, changes))

	messages := []types.MQTTMessage{
		{Topic: "desktop2mqtt/desk/notify", Payload: `{"title":"x"}`},
		{Topic: "desktop2mqtt/desk/set", Payload: `not json`},
		{Topic: "desktop2mqtt/desk/set", Payload: `{"state":"DIM"}`},
		{Topic: "desktop2mqtt/desk/set", Payload: `{"state":"OFF"}`},
		{Topic: "desktop2mqtt/desk/set", Payload: `{"brightness":128}`},
		{Topic: "desktop2mqtt/desk/set", Payload: `{"state":"ON","brightness":10}`},
	}
	for _, msg := range messages {
		require.Nil(t, evBus.Publish(broker.InboundChannel, msg))
	}

	require.Equal(t, types.Backlight{Power: false, Brightness: 255}, receive(t, changes))
	require.Equal(t, types.Backlight{Power: false, Brightness: 128}, receive(t, changes))
	require.Equal(t, types.Backlight{Power: true, Brightness: 10}, receive(t, changes))

	evBus.Close(broker.InboundChannel)
	require.Nil(t, <-done)
	require.Equal(t, 0, changes.Len())
}

func TestControllerSetError(t *testing.T) {
	log.SetOutput(io.Discard)

	evBus := bus.New()
	changes := queue.New[types.StateChange]()
	c, err := New(&Options{
		Backlight: &failingBacklight{Stub: NewStub(), powerErr: errors.New("permission denied")},
		Topics:    types.NewTopics("desk"),
		Changes:   changes,
		Bus:       evBus,
	})
	require.Nil(t, err)

	done := make(chan error, 1)
	go func() {
		done <- c.Run(context.Background())
	}()
	receive(t, changes)

	require.Nil(t, evBus.Publish(broker.InboundChannel, types.MQTTMessage{Topic: "desktop2mqtt/desk/set", Payload: `{"state":"OFF"}`}))
	require.Nil(t, evBus.Publish(broker.InboundChannel, types.MQTTMessage{Topic: "desktop2mqtt/desk/set", Payload: `{"brightness":1}`}))
	require.Equal(t, types.Backlight{Power: true, Brightness: 1}, receive(t, changes))

	evBus.Close(broker.InboundChannel)
	require.Nil(t, <-done)
}

func TestControllerPartialUpdate(t *testing.T) {
	log.SetOutput(io.Discard)

	evBus := bus.New()
	changes := queue.New[types.StateChange]()
	c, err := New(&Options{
		Backlight: &failingBacklight{Stub: NewStub(), brightnessErr: errors.New("invalid argument")},
		Topics:    types.NewTopics("desk"),
		Changes:   changes,
		Bus:       evBus,
	})
	require.Nil(t, err)

	done := make(chan error, 1)
	go func() {
		done <- c.Run(context.Background())
	}()
	receive(t, changes)

	require.Nil(t, evBus.Publish(broker.InboundChannel, types.MQTTMessage{Topic: "desktop2mqtt/desk/set", Payload: `{"state":"OFF","brightness":5}`}))
	require.Equal(t, types.Backlight{Power: false, Brightness: 255}, receive(t, changes))

	require.Nil(t, evBus.Publish(broker.InboundChannel, types.MQTTMessage{Topic: "desktop2mqtt/desk/set", Payload: `{"brightness":5}`}))
	evBus.Close(broker.InboundChannel)
	require.Nil(t, <-done)
	require.Equal(t, 0, changes.Len())
}

func TestControllerReadError(t *testing.T) {
	evBus := bus.New()
	c, err := New(&Options{
		Backlight: &Sysfs{Path: t.TempDir()},
		Topics:    types.NewTopics("desk"),
		Changes:   queue.New[types.StateChange](),
		Bus:       evBus,
	})
	require.Nil(t, err)

	err = c.Run(context.Background())
	require.Contains(t, err.Error(), "unable to read backlight power")

	_, err = New(&Options{Backlight: NewStub(), Bus: evBus})
	require.NotNil(t, err)
}
