package visit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultHeartbeatInterval is how often the dashboard refreshes time-derived state.
const DefaultHeartbeatInterval = 60 * time.Second

// ErrHeartbeatRunning is returned by Start when the heartbeat is already running.
var ErrHeartbeatRunning = errors.New("heartbeat already running")

// Heartbeat calls a tick function on a fixed interval until stopped.
type Heartbeat struct {
	interval time.Duration
	tick     func()

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHeartbeat creates a stopped heartbeat. A non-positive interval uses
// DefaultHeartbeatInterval.
func NewHeartbeat(interval time.Duration, tick func()) *Heartbeat {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &Heartbeat{interval: interval, tick: tick}
}

// Start begins ticking in a background goroutine. It stops when ctx is
// cancelled or Stop is called.
func (h *Heartbeat) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.done != nil {
		select {
		case <-h.done:
		default:
			return ErrHeartbeatRunning
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	h.cancel = cancel
	h.done = done

	go h.run(ctx, done)
	return nil
}

func (h *Heartbeat) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A cancel that races the tick wins.
			if ctx.Err() != nil {
				return
			}
			h.tick()
		}
	}
}

// Stop cancels the heartbeat and waits for an in-flight tick to finish.
// It is safe to call more than once. It must not be called from tick.
func (h *Heartbeat) Stop() {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the heartbeat goroutine is alive.
func (h *Heartbeat) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.done == nil {
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}
