package bus

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// ErrUnknownChannel is returned by Publish when channel has no subscribers.
var ErrUnknownChannel = errors.New("unknown channel")

// Event is used to transport user data over bus.
type Event struct {
	Data        interface{}
	ChannelName string
}

// eventChannel stores subscriptions for channels.
type eventChannel struct {
	subscribers map[string]chan Event
}

// newEventChannel creates new eventChannel.
func newEventChannel() *eventChannel {
	return &eventChannel{
		subscribers: make(map[string]chan Event),
	}
}

// addSubscriber adds new subscriber.
func (ch *eventChannel) addSubscriber(subName string, size int) error {
	if _, ok := ch.subscribers[subName]; ok {
		return fmt.Errorf("subscriber %s already exists", subName)
	}
	ch.subscribers[subName] = make(chan Event, size)
	return nil
}

// delSubscriber removes subscriber.
func (ch *eventChannel) delSubscriber(subName string) {
	delete(ch.subscribers, subName)
}

// Bus is multicast fan-out between workers. Every subscriber gets own buffer,
// when buffer is full oldest event is dropped to make room for new one.
// Bus should be created by New().
type Bus struct {
	mu       sync.RWMutex
	channels map[string]*eventChannel
	dropped  atomic.Uint64
}

// New creates new Bus instance.
func New() *Bus {
	b := &Bus{
		channels: make(map[string]*eventChannel),
	}
	return b
}

// Subscribe adds new subscriber to channel.
func (b *Bus) Subscribe(channelName, subName string, size int) (chan Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.channels[channelName]; !ok {
		b.channels[channelName] = newEventChannel()
	}

	ch := b.channels[channelName]

	if err := ch.addSubscriber(subName, size); err != nil {
		return nil, err
	}

	return ch.subscribers[subName], nil
}

// Unsubscribe removes subscriber from channel.
// If this is last subscriber channel will be removed.
func (b *Bus) Unsubscribe(channelName, subName string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	channel, ok := b.channels[channelName]
	if !ok {
		return
	}

	channel.delSubscriber(subName)

	if len(channel.subscribers) == 0 {
		delete(b.channels, channelName)
	}
}

// Close removes channel and closes all its subscriptions.
// Subscribers will see closed chan after draining buffered events.
func (b *Bus) Close(channelName string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	channel, ok := b.channels[channelName]
	if !ok {
		return
	}
	for _, subscriber := range channel.subscribers {
		close(subscriber)
	}
	delete(b.channels, channelName)
}

// Publish data to channel.
// Subscribers with unbuffered chan will block publisher.
func (b *Bus) Publish(channelName string, data interface{}) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	channel, ok := b.channels[channelName]
	if !ok {
		return fmt.Errorf("%w %s", ErrUnknownChannel, channelName)
	}

	e := Event{
		ChannelName: channelName,
		Data:        data,
	}

	for subName, subscriber := range channel.subscribers {
		if cap(subscriber) == 0 {
			subscriber <- e
			continue
		}
		select {
		case subscriber <- e:
			continue
		default:
		}
		log.Printf("channel %s for subscriber %s is full, dropping oldest event", channelName, subName)
		select {
		case <-subscriber:
			b.dropped.Add(1)
		default:
		}
		select {
		case subscriber <- e:
		default:
			b.dropped.Add(1)
		}
	}
	return nil
}

// Dropped returns number of events dropped because subscribers were too slow.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}
