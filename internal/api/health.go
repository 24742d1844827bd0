package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/alexliesenfeld/health"
)

// brokerCheck fails when broker gateway is not connected.
func brokerCheck(name string, b Broker) health.Check {
	return health.Check{
		Name:    name,
		Timeout: 1 * time.Second,
		Check: func(ctx context.Context) error {
			if !b.IsConnected() {
				return errors.New("not connected to mqtt broker")
			}
			return nil
		},
	}
}

// readyHandler returns handler with health.Checker used by /ready endpoint.
// It checks broker connection.
func readyHandler(b Broker) http.Handler {
	readinessProbe := health.NewChecker(
		health.WithCacheDuration(1*time.Second),
		health.WithTimeout(10*time.Second),
		health.WithCheck(brokerCheck("readiness_mqtt_connected", b)),
	)
	return health.NewHandler(readinessProbe)
}

// healthzHandler returns handler with health.Checker used by /healthz endpoint.
// It checks broker connection.
// It checks if state snapshot was published.
func healthzHandler(b Broker, s *Snapshots) http.Handler {
	livenessProbe := health.NewChecker(
		health.WithCacheDuration(1*time.Second),
		health.WithTimeout(10*time.Second),
		health.WithCheck(brokerCheck("liveness_mqtt_connected", b)),
		health.WithCheck(health.Check{
			Name:    "liveness_state_published",
			Timeout: 1 * time.Second,
			Check: func(ctx context.Context) error {
				if s.Last() == nil {
					return errors.New("state not published yet")
				}
				return nil
			},
		}),
	)
	return health.NewHandler(livenessProbe)
}
