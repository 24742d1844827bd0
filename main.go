package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	multierror "github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"desktop2mqtt/internal/api"
	"desktop2mqtt/internal/backlight"
	"desktop2mqtt/internal/broker"
	"desktop2mqtt/internal/bus"
	"desktop2mqtt/internal/command"
	"desktop2mqtt/internal/discovery"
	"desktop2mqtt/internal/idle"
	"desktop2mqtt/internal/metric"
	"desktop2mqtt/internal/notify"
	"desktop2mqtt/internal/queue"
	"desktop2mqtt/internal/sensor"
	"desktop2mqtt/internal/state"
	"desktop2mqtt/internal/types"
)

// Version is set during build with -ldflags "-X main.Version=...".
var Version = "dev"

// How long http server waits for open connections on shutdown.
var httpShutdownTimeout = 5 * time.Second

// worker is single long running task supervised by errgroup.
type worker struct {
	name string
	run  func(context.Context) error
}

// main will load config, connect to broker and start all workers.
func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	config, err := getConfig()
	if err != nil {
		log.Fatal(err)
	}

	s, err := loadSettings(config)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, s); err != nil {
		log.Fatal(err)
	}
	log.Printf("desktop2mqtt stopped")
}

// run wires all workers and blocks until ctx is cancelled or any worker fails.
// Broker is always shut down (offline published) before return.
func run(ctx context.Context, s *settings) error {
	evBus := bus.New()
	commands := queue.New[types.MQTTCommand]()
	changes := queue.New[types.StateChange]()
	topics := types.NewTopics(s.EntityID)

	b, err := broker.New(&broker.Options{
		URL:      s.MQTTURL,
		ClientID: s.MQTTClientID,
		Username: s.MQTTUsername,
		Password: s.MQTTPassword,
		QoS:      s.MQTTQoS,
		Topics:   topics,
		Commands: commands,
		Bus:      evBus,
	})
	if err != nil {
		return err
	}

	workers, registrations, err := newWorkers(s, topics, evBus, commands, changes)
	if err != nil {
		return err
	}

	aggregator := state.New(&state.Options{
		Topics:   topics,
		Changes:  changes,
		Commands: commands,
		Bus:      evBus,
	})
	workers = append(workers, worker{name: "state", run: aggregator.Run})

	if s.HTTPPort > 0 {
		snapshots, err := api.NewSnapshots(evBus)
		if err != nil {
			return err
		}
		collector := metric.New(&metric.Options{
			Broker:       b,
			BusDropped:   evBus.Dropped,
			StateApplied: aggregator.Applied,
		})
		router := api.NewRouter(&api.Options{
			Broker:        b,
			Snapshots:     snapshots,
			Registrations: registrations,
			Bus:           evBus,
			AuthUsers:     s.HTTPAuth,
		})
		httpServer := &http.Server{Addr: fmt.Sprintf(":%d", s.HTTPPort), Handler: router}
		workers = append(workers,
			worker{name: "snapshots", run: snapshots.Run},
			worker{name: "metrics", run: collector.Run},
			worker{name: "http", run: func(ctx context.Context) error { return serveHTTP(ctx, httpServer) }},
		)
	}

	log.Printf("connecting to %s as %s", s.MQTTURL, s.MQTTClientID)
	if err := b.Connect(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Run(gctx)
	})
	for _, w := range workers {
		g.Go(func() error {
			if err := w.run(gctx); err != nil {
				return fmt.Errorf("%s worker failed: %w", w.name, err)
			}
			return nil
		})
	}

	var result *multierror.Error
	if err := g.Wait(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := b.Shutdown(); err != nil && !errors.Is(err, broker.ErrNotConnected) {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// newWorkers creates enabled producer and consumer workers.
// Consumers subscribe to bus here, before broker starts delivering inbound messages.
func newWorkers(s *settings, topics types.Topics, evBus *bus.Bus, commands *queue.Queue[types.MQTTCommand], changes *queue.Queue[types.StateChange]) ([]worker, []discovery.Registration, error) {
	var workers []worker

	var idlePollRate time.Duration
	if s.IdleEnabled {
		idlePollRate = s.IdlePollRate
		source, err := idle.NewSource(s.IdleSource)
		if err != nil {
			return nil, nil, err
		}
		detector, err := idle.New(&idle.Options{
			Timeout:  s.IdleTimeout,
			PollRate: s.IdlePollRate,
			Changes:  changes,
			Source:   source,
		})
		if err != nil {
			return nil, nil, err
		}
		workers = append(workers, worker{name: "idle", run: detector.Run})
	}

	if s.BacklightProvider != "" {
		provider, err := backlight.NewProvider(s.BacklightProvider, s.BacklightPath)
		if err != nil {
			return nil, nil, err
		}
		controller, err := backlight.New(&backlight.Options{
			Backlight: provider,
			Topics:    topics,
			Changes:   changes,
			Bus:       evBus,
		})
		if err != nil {
			return nil, nil, err
		}
		workers = append(workers, worker{name: "backlight", run: controller.Run})
	}

	poller, err := sensor.New(&sensor.Options{
		Types:    s.SensorTypes,
		PollRate: s.SensorPollRate,
		Changes:  changes,
	})
	if err != nil {
		return nil, nil, err
	}
	workers = append(workers, worker{name: "sensors", run: poller.Run})

	if s.Notifications {
		notifier, err := notify.NewNotifier(s.NotificationsBackend)
		if err != nil {
			return nil, nil, err
		}
		listener, err := notify.New(&notify.Options{
			Topics:   topics,
			Commands: commands,
			Bus:      evBus,
			Notifier: notifier,
		})
		if err != nil {
			return nil, nil, err
		}
		workers = append(workers, worker{name: "notifications", run: listener.Run})
	}

	executor, err := command.New(&command.Options{
		Definitions: s.CustomCommands,
		Topics:      topics,
		Commands:    commands,
		Bus:         evBus,
	})
	if err != nil {
		return nil, nil, err
	}
	workers = append(workers, worker{name: "custom commands", run: executor.Run})

	disco := discovery.New(&discovery.Options{
		Topics:       topics,
		Device:       discovery.NewDevice(s.EntityID, s.Name, Version),
		IdlePollRate: idlePollRate,
		Backlight:    s.BacklightProvider != "",
		Sensors:      poller.Descriptors(),
		Buttons:      s.CustomCommands,
		Commands:     commands,
	})
	workers = append(workers, worker{name: "discovery", run: disco.Run})

	return workers, disco.Registrations(), nil
}

// serveHTTP runs server until ctx is cancelled.
func serveHTTP(ctx context.Context, server *http.Server) error {
	server.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		log.Printf("starting http server on %s", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
