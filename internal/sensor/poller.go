package sensor

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"desktop2mqtt/internal/queue"
	"desktop2mqtt/internal/types"
)

// Poller reads all sensors every poll rate and emits Sensor changes.
// It should be created by New().
type Poller struct {
	descriptors []Descriptor
	pollRate    time.Duration
	changes     *queue.Queue[types.StateChange]
	reader      Reader
}

// New creates Poller, unknown sensor types are returned as error.
func New(opts *Options) (*Poller, error) {
	descriptors, err := Describe(opts.Types)
	if err != nil {
		return nil, err
	}
	if len(descriptors) > 0 && opts.PollRate <= 0 {
		return nil, fmt.Errorf("sensor poll rate must be positive, got %s", opts.PollRate)
	}
	reader := opts.Reader
	if reader == nil {
		reader = SystemReader{}
	}
	return &Poller{
		descriptors: descriptors,
		pollRate:    opts.PollRate,
		changes:     opts.Changes,
		reader:      reader,
	}, nil
}

// Descriptors returns expanded sensor descriptors.
func (p *Poller) Descriptors() []Descriptor {
	return p.descriptors
}

// Run polls sensors until ctx is cancelled.
// Failed readings are logged and skipped, closed changes queue stops poller.
func (p *Poller) Run(ctx context.Context) error {
	if len(p.descriptors) == 0 {
		return nil
	}

	ticker := time.NewTicker(p.pollRate)
	defer ticker.Stop()

	log.Printf("starting sensor poller for %d sensors every %s", len(p.descriptors), p.pollRate)
	for {
		if err := p.poll(ctx); err != nil {
			return err
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

func (p *Poller) poll(ctx context.Context) error {
	for _, d := range p.descriptors {
		value, err := p.reader.Read(ctx, d)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("unable to read sensor %s: %s", d.ID, err)
			continue
		}
		if err := p.changes.Send(types.Sensor{Name: d.ID, Value: Round(value)}); err != nil {
			return fmt.Errorf("unable to send sensor %s: %w", d.ID, err)
		}
	}
	return nil
}

// Round rounds value to two decimal places.
func Round(value float64) float32 {
	return float32(math.Round(value*100) / 100)
}
