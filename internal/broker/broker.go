package broker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"unicode/utf8"

	paho "github.com/eclipse/paho.mqtt.golang"

	"desktop2mqtt/internal/bus"
	"desktop2mqtt/internal/queue"
	"desktop2mqtt/internal/types"
)

const (
	// InboundChannel is bus channel with messages received from mqtt broker.
	InboundChannel = "mqtt:inbound"
	// InboundChannelSize is backlog for every InboundChannel subscriber.
	InboundChannelSize = 10
	// Subscriptions are always at least once.
	subscribeQoS = 1

	onlinePayload  = "online"
	offlinePayload = "offline"
)

var (
	// Mocks for tests.
	pahoNewClient = paho.NewClient
)

// Stats describes broker traffic.
type Stats struct {
	Published       uint64
	Subscribed      uint64
	Received        uint64
	PendingCommands int
}

// Broker is the only owner of mqtt connection. It should be created by New().
type Broker struct {
	client   paho.Client
	topics   types.Topics
	qos      byte
	commands *queue.Queue[types.MQTTCommand]
	inbound  *queue.Queue[types.MQTTMessage]
	bus      *bus.Bus
	connLost chan error

	published  atomic.Uint64
	subscribed atomic.Uint64
	received   atomic.Uint64
}

// New creates Broker instance. It will not connect, Connect() should be used.
func New(opts *Options) (*Broker, error) {
	if opts.Commands == nil || opts.Bus == nil {
		return nil, errors.New("commands queue and bus are required")
	}
	clientOpts, err := buildClientOptions(opts)
	if err != nil {
		return nil, err
	}

	b := &Broker{
		topics:   opts.Topics,
		qos:      opts.QoS,
		commands: opts.Commands,
		inbound:  queue.New[types.MQTTMessage](),
		bus:      opts.Bus,
		connLost: make(chan error, 1),
	}

	clientOpts.SetDefaultPublishHandler(b.onMessage)
	clientOpts.SetConnectionLostHandler(b.onConnectionLost)

	b.client = pahoNewClient(clientOpts)
	return b, nil
}

// Connect establishes connection to mqtt broker.
func (b *Broker) Connect() error {
	token := b.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	log.Printf("connected to mqtt broker")
	return nil
}

// IsConnected returns current connection state.
func (b *Broker) IsConnected() bool {
	return b.client.IsConnected()
}

// Stats returns traffic counters.
func (b *Broker) Stats() Stats {
	return Stats{
		Published:       b.published.Load(),
		Subscribed:      b.subscribed.Load(),
		Received:        b.received.Load(),
		PendingCommands: b.commands.Len(),
	}
}

// Run announces availability and processes commands and inbound messages
// until both sources are exhausted, ctx is cancelled or an error occurs.
// There is no priority between commands and inbound messages.
// InboundChannel is closed on return.
func (b *Broker) Run(ctx context.Context) error {
	defer b.bus.Close(InboundChannel)

	if err := b.publish(types.MQTTMessage{Topic: b.topics.Availability(), Payload: onlinePayload}); err != nil {
		return err
	}

	log.Printf("starting eventloop")
	commands := b.commands.C()
	inbound := b.inbound.C()

	for commands != nil || inbound != nil {
		select {
		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			if err := b.handleCommand(cmd); err != nil {
				return err
			}
		case message, ok := <-inbound:
			if !ok {
				inbound = nil
				continue
			}
			b.received.Add(1)
			if err := b.bus.Publish(InboundChannel, message); err != nil && !errors.Is(err, bus.ErrUnknownChannel) {
				return err
			}
		case err := <-b.connLost:
			return fmt.Errorf("%w: %w", ErrConnectionLost, err)
		case <-ctx.Done():
			log.Printf("stopping eventloop")
			return nil
		}
	}
	log.Printf("eventloop sources exhausted")
	return nil
}

// Shutdown announces offline and releases connection.
// It should be called once, after Run returned.
func (b *Broker) Shutdown() error {
	defer b.inbound.Close()

	var err error
	if b.client.IsConnected() {
		err = b.publish(types.MQTTMessage{Topic: b.topics.Availability(), Payload: offlinePayload})
	} else {
		err = fmt.Errorf("%w: unable to announce %s", ErrNotConnected, offlinePayload)
	}
	b.client.Disconnect(disconnectQuiesce)
	log.Printf("disconnected from mqtt broker")
	return err
}

// handleCommand executes single MQTTCommand.
func (b *Broker) handleCommand(cmd types.MQTTCommand) error {
	switch cmd.Kind {
	case types.CommandEmit:
		return b.publish(cmd.Message)
	case types.CommandSubscribe:
		return b.subscribe(cmd.Topic)
	}
	return fmt.Errorf("unknown command kind %s", cmd.Kind)
}

// publish sends retained message.
func (b *Broker) publish(message types.MQTTMessage) error {
	token := b.client.Publish(message.Topic, b.qos, true, message.Payload)
	if !token.WaitTimeout(operationTimeout) {
		return fmt.Errorf("%w: %s: timeout after %v", ErrPublishFailed, message.Topic, operationTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, message.Topic, err)
	}
	b.published.Add(1)
	return nil
}

// subscribe issues at least once subscription for topic.
func (b *Broker) subscribe(topic string) error {
	log.Printf("subscribing to %s", topic)
	token := b.client.Subscribe(topic, subscribeQoS, b.onMessage)
	if !token.WaitTimeout(operationTimeout) {
		return fmt.Errorf("%w: %s: timeout after %v", ErrSubscribeFailed, topic, operationTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
	}
	b.subscribed.Add(1)
	return nil
}

// onMessage is called by paho in order messages were received.
// It only queues message, it never blocks paho router.
func (b *Broker) onMessage(_ paho.Client, msg paho.Message) {
	if !utf8.Valid(msg.Payload()) {
		log.Printf("dropping message on %s: payload is not valid utf-8", msg.Topic())
		return
	}
	message := types.MQTTMessage{Topic: msg.Topic(), Payload: string(msg.Payload())}
	if err := b.inbound.Send(message); err != nil {
		log.Printf("dropping message on %s: %s", msg.Topic(), err)
	}
}

// onConnectionLost is called by paho when connection drops.
func (b *Broker) onConnectionLost(_ paho.Client, err error) {
	log.Printf("connection to mqtt broker lost: %s", err)
	select {
	case b.connLost <- err:
	default:
	}
}
