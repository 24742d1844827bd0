package notify

import (
	"context"
	"fmt"
	"log"
	"os/exec"

	dbusnotify "github.com/esiqveland/notify"
	"github.com/godbus/dbus/v5"

	"desktop2mqtt/internal/broker"
	"desktop2mqtt/internal/bus"
	"desktop2mqtt/internal/queue"
	"desktop2mqtt/internal/types"
)

const appName = "desktop2mqtt"

// Supported notification backends.
const (
	BackendDBus       = "dbus"
	BackendNotifySend = "notify-send"
)

// Mocks for tests.
var (
	execRun = func(ctx context.Context, name string, args ...string) error {
		return exec.CommandContext(ctx, name, args...).Run()
	}
	sessionBus       = dbus.SessionBus
	sendNotification = dbusnotify.SendNotification
)

// Notification is payload received on notify topic.
type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message,omitempty"`
}

// Notifier shows notification on desktop.
type Notifier interface {
	Show(ctx context.Context, n Notification) error
}

// NewNotifier returns notifier by backend name, empty name selects dbus.
func NewNotifier(backend string) (Notifier, error) {
	switch backend {
	case "", BackendDBus:
		return DBus{}, nil
	case BackendNotifySend:
		return NotifySend{}, nil
	}
	return nil, fmt.Errorf("unknown notification backend %s", backend)
}

// DBus shows notifications through org.freedesktop.Notifications on session bus.
type DBus struct{}

// Show sends notification to notification server.
func (DBus) Show(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	conn, err := sessionBus()
	if err != nil {
		return fmt.Errorf("unable to connect to session bus: %w", err)
	}
	_, err = sendNotification(conn, dbusnotify.Notification{
		AppName:       appName,
		Summary:       n.Title,
		Body:          n.Message,
		ExpireTimeout: dbusnotify.ExpireTimeoutSetByNotificationServer,
	})
	return err
}

// NotifySend shows notifications with libnotify notify-send binary.
type NotifySend struct{}

// Show runs notify-send.
func (NotifySend) Show(ctx context.Context, n Notification) error {
	args := []string{"--app-name", appName, n.Title}
	if n.Message != "" {
		args = append(args, n.Message)
	}
	return execRun(ctx, "notify-send", args...)
}

// Listener shows notifications received over mqtt.
// It should be created by New().
type Listener struct {
	topic    string
	commands *queue.Queue[types.MQTTCommand]
	inbound  chan bus.Event
	notifier Notifier
}

// New creates Listener and subscribes to inbound mqtt messages.
func New(opts *Options) (*Listener, error) {
	ch, err := opts.Bus.Subscribe(broker.InboundChannel, "notify", broker.InboundChannelSize)
	if err != nil {
		return nil, err
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = DBus{}
	}
	return &Listener{
		topic:    opts.Topics.Notify(),
		commands: opts.Commands,
		inbound:  ch,
		notifier: notifier,
	}, nil
}

// Run subscribes notify topic and shows every notification until inbound channel is closed.
func (l *Listener) Run(ctx context.Context) error {
	if err := l.commands.Send(types.Subscribe(l.topic)); err != nil {
		return fmt.Errorf("unable to subscribe %s: %w", l.topic, err)
	}

	for {
		select {
		case event, ok := <-l.inbound:
			if !ok {
				return nil
			}
			msg := event.Data.(types.MQTTMessage)
			if msg.Topic != l.topic {
				continue
			}
			var n Notification
			if err := msg.Decode(&n); err != nil {
				log.Printf("ignoring notification: %s", err)
				continue
			}
			if n.Title == "" {
				log.Printf("ignoring notification without title")
				continue
			}
			if err := l.notifier.Show(ctx, n); err != nil {
				log.Printf("unable to show notification %s: %s", n.Title, err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}
