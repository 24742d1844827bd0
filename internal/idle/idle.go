package idle

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/screensaver"
	"github.com/jezek/xgb/xproto"

	"desktop2mqtt/internal/queue"
	"desktop2mqtt/internal/types"
)

// Supported idle sources.
const (
	SourceX11        = "x11"
	SourceXPrintIdle = "xprintidle"
)

// Mocks for tests.
var (
	execOutput = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return exec.CommandContext(ctx, name, args...).Output()
	}
	xConnect = xgb.NewConn
)

// Source reports how long user has been inactive.
type Source interface {
	IdleTime(ctx context.Context) (time.Duration, error)
}

// NewSource returns idle source by name, empty name selects x11.
func NewSource(name string) (Source, error) {
	switch name {
	case "", SourceX11:
		return &X11{}, nil
	case SourceXPrintIdle:
		return XPrintIdle{}, nil
	}
	return nil, fmt.Errorf("unknown idle source %s", name)
}

// X11 reads idle time from X server MIT-SCREEN-SAVER extension.
// Connection is opened on first use and reopened after a failed query.
type X11 struct {
	mu   sync.Mutex
	conn *xgb.Conn
	root xproto.Window
}

func (x *X11) connect() error {
	if x.conn != nil {
		return nil
	}
	conn, err := xConnect()
	if err != nil {
		return fmt.Errorf("unable to connect to X server: %w", err)
	}
	if err := screensaver.Init(conn); err != nil {
		conn.Close()
		return fmt.Errorf("screensaver extension not available: %w", err)
	}
	x.conn = conn
	x.root = xproto.Setup(conn).DefaultScreen(conn).Root
	return nil
}

// IdleTime returns time since last user input.
func (x *X11) IdleTime(ctx context.Context) (time.Duration, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.connect(); err != nil {
		return 0, err
	}
	reply, err := screensaver.QueryInfo(x.conn, xproto.Drawable(x.root)).Reply()
	if err != nil {
		x.conn.Close()
		x.conn = nil
		return 0, fmt.Errorf("unable to query screensaver info: %w", err)
	}
	return time.Duration(reply.MsSinceUserInput) * time.Millisecond, nil
}

// Close releases X server connection.
func (x *X11) Close() {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.conn != nil {
		x.conn.Close()
		x.conn = nil
	}
}

// XPrintIdle reads X11 idle time using xprintidle binary.
type XPrintIdle struct{}

// IdleTime returns idle time reported by xprintidle (milliseconds).
func (XPrintIdle) IdleTime(ctx context.Context) (time.Duration, error) {
	out, err := execOutput(ctx, "xprintidle")
	if err != nil {
		return 0, fmt.Errorf("unable to run xprintidle: %w", err)
	}
	ms, err := strconv.ParseUint(strings.TrimSpace(string(out)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unable to parse xprintidle output: %w", err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// Detector emits Idle changes. It should be created by New().
type Detector struct {
	timeout  time.Duration
	pollRate time.Duration
	changes  *queue.Queue[types.StateChange]
	source   Source
}

// New creates Detector.
func New(opts *Options) (*Detector, error) {
	if opts.PollRate <= 0 {
		return nil, fmt.Errorf("idle poll rate must be positive, got %s", opts.PollRate)
	}
	if opts.Timeout <= 0 {
		return nil, fmt.Errorf("idle timeout must be positive, got %s", opts.Timeout)
	}
	source := opts.Source
	if source == nil {
		source = &X11{}
	}
	return &Detector{
		timeout:  opts.Timeout,
		pollRate: opts.PollRate,
		changes:  opts.Changes,
		source:   source,
	}, nil
}

// Run emits Idle(false) and then current idleness every poll until ctx is cancelled.
// Idleness is refreshed every poll so Home Assistant expire_after does not trigger.
func (d *Detector) Run(ctx context.Context) error {
	if closer, ok := d.source.(interface{ Close() }); ok {
		defer closer.Close()
	}
	if err := d.changes.Send(types.Idle{IsIdle: false}); err != nil {
		return fmt.Errorf("unable to send idle state: %w", err)
	}

	ticker := time.NewTicker(d.pollRate)
	defer ticker.Stop()

	log.Printf("starting idle detector with timeout %s", d.timeout)
	last := false
	for {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}

		idleTime, err := d.source.IdleTime(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("unable to read idle time: %s", err)
			continue
		}

		isIdle := idleTime >= d.timeout
		if isIdle != last {
			log.Printf("user idle changed to %t", isIdle)
			last = isIdle
		}
		if err := d.changes.Send(types.Idle{IsIdle: isIdle}); err != nil {
			return fmt.Errorf("unable to send idle state: %w", err)
		}
	}
}
