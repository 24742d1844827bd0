package metric

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"desktop2mqtt/internal/broker"
)

type fakeBroker struct {
	stats     broker.Stats
	connected bool
}

func (f *fakeBroker) Stats() broker.Stats {
	return f.stats
}

func (f *fakeBroker) IsConnected() bool {
	return f.connected
}

func TestCollect(t *testing.T) {
	tests := []struct {
		inputBroker       *fakeBroker
		inputDropped      Counter
		inputApplied      Counter
		expectedConnected float64
		expectedDropped   float64
		expectedApplied   float64
	}{
		{
			inputBroker: &fakeBroker{
				stats:     broker.Stats{Published: 12, Subscribed: 3, Received: 7, PendingCommands: 1},
				connected: true,
			},
			inputDropped:      func() uint64 { return 2 },
			inputApplied:      func() uint64 { return 11 },
			expectedConnected: 1,
			expectedDropped:   2,
			expectedApplied:   11,
		},
		{
			inputBroker:       &fakeBroker{stats: broker.Stats{Published: 12, Subscribed: 3, Received: 7, PendingCommands: 1}},
			expectedConnected: 0,
			expectedDropped:   2,
			expectedApplied:   11,
		},
	}

	for _, test := range tests {
		c := New(&Options{Broker: test.inputBroker, BusDropped: test.inputDropped, StateApplied: test.inputApplied})
		c.collect()

		require.Equal(t, test.expectedConnected, testutil.ToFloat64(mqttConnected))
		require.Equal(t, float64(12), testutil.ToFloat64(messagesPublished))
		require.Equal(t, float64(3), testutil.ToFloat64(topicsSubscribed))
		require.Equal(t, float64(7), testutil.ToFloat64(messagesRecv))
		require.Equal(t, float64(1), testutil.ToFloat64(pendingCommands))
		require.Equal(t, test.expectedDropped, testutil.ToFloat64(messagesDropped))
		require.Equal(t, test.expectedApplied, testutil.ToFloat64(stateChanges))
	}
}

func TestRun(t *testing.T) {
	log.SetOutput(io.Discard)

	c := New(&Options{Broker: &fakeBroker{stats: broker.Stats{Published: 5}}, RefreshPeriod: time.Millisecond})
	require.Equal(t, time.Millisecond, c.refreshPeriod)
	require.Equal(t, 10*time.Second, New(&Options{Broker: &fakeBroker{}}).refreshPeriod)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx)
	}()
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(messagesPublished) == 5
	}, time.Second, time.Millisecond)
	cancel()
	require.Nil(t, <-done)
}
