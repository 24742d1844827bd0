package api

import (
	"context"
	"sync"

	"desktop2mqtt/internal/bus"
	"desktop2mqtt/internal/state"
)

// Snapshots keeps last state snapshot published by aggregator.
// It should be created by NewSnapshots().
type Snapshots struct {
	mu   sync.RWMutex
	last []byte
	ch   chan bus.Event
}

// NewSnapshots subscribes to state snapshots.
func NewSnapshots(evBus *bus.Bus) (*Snapshots, error) {
	// Size 1, bus drops oldest so newest snapshot is always kept.
	ch, err := evBus.Subscribe(state.SnapshotChannel, "api", 1)
	if err != nil {
		return nil, err
	}
	return &Snapshots{ch: ch}, nil
}

// Run stores every received snapshot until ctx is cancelled.
func (s *Snapshots) Run(ctx context.Context) error {
	for {
		select {
		case e, ok := <-s.ch:
			if !ok {
				return nil
			}
			s.mu.Lock()
			s.last = e.Data.([]byte)
			s.mu.Unlock()
		case <-ctx.Done():
			return nil
		}
	}
}

// Last returns last snapshot, nil when nothing was published yet.
func (s *Snapshots) Last() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}
