package idle

import (
	"time"

	"desktop2mqtt/internal/queue"
	"desktop2mqtt/internal/types"
)

// Options contains configurable options for the idle detector.
type Options struct {
	// Timeout after which user is considered idle.
	Timeout  time.Duration
	PollRate time.Duration
	Changes  *queue.Queue[types.StateChange]
	// Source defaults to X11.
	Source Source
}
