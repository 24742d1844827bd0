package types

import (
	"encoding/json"
	"fmt"
)

// MQTTMessage is a single MQTT publish, used both for outbound commands
// and for inbound packets fanned out by desktop2mqtt/internal/broker.
type MQTTMessage struct {
	Topic   string
	Payload string
}

// Decode unmarshals JSON payload into v.
func (m MQTTMessage) Decode(v interface{}) error {
	if err := json.Unmarshal([]byte(m.Payload), v); err != nil {
		return fmt.Errorf("unable to decode payload from %s: %w", m.Topic, err)
	}
	return nil
}

// CommandKind tells broker what to do with MQTTCommand.
type CommandKind int

const (
	// CommandEmit publishes Message (always retained).
	CommandEmit CommandKind = iota
	// CommandSubscribe subscribes to Topic.
	CommandSubscribe
)

// String implements fmt.Stringer.
func (k CommandKind) String() string {
	switch k {
	case CommandEmit:
		return "emit"
	case CommandSubscribe:
		return "subscribe"
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// MQTTCommand is consumed by desktop2mqtt/internal/broker.
// Message is used by CommandEmit, Topic by CommandSubscribe.
type MQTTCommand struct {
	Kind    CommandKind
	Message MQTTMessage
	Topic   string
}

// Emit creates publish command.
func Emit(message MQTTMessage) MQTTCommand {
	return MQTTCommand{Kind: CommandEmit, Message: message}
}

// Subscribe creates subscribe command.
func Subscribe(topic string) MQTTCommand {
	return MQTTCommand{Kind: CommandSubscribe, Topic: topic}
}

// NewJSONCommand marshals payload and wraps it into publish command.
func NewJSONCommand(topic string, payload interface{}) (MQTTCommand, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return MQTTCommand{}, fmt.Errorf("unable to marshal payload for %s: %w", topic, err)
	}
	return Emit(MQTTMessage{Topic: topic, Payload: string(data)}), nil
}
