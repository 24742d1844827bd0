package broker

import "errors"

// Use errors.Is() to check for these errors.
var (
	// ErrConnectionFailed is returned when the initial connection attempt fails.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrConnectionLost is returned by Run when broker connection drops.
	ErrConnectionLost = errors.New("mqtt: connection lost")

	// ErrNotConnected is returned when client is not connected.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrPublishFailed is returned when a publish operation fails.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed is returned when a subscribe operation fails.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrInvalidURL is returned when broker URL can't be used.
	ErrInvalidURL = errors.New("mqtt: invalid broker url")
)
