package visit

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestHeartbeatTicks(t *testing.T) {
	ticks := make(chan struct{}, 10)
	h := NewHeartbeat(5*time.Millisecond, func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	})

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer h.Stop()

	for i := 0; i < 3; i++ {
		select {
		case <-ticks:
		case <-time.After(2 * time.Second):
			t.Fatalf("tick %d never arrived", i)
		}
	}
}

func TestHeartbeatStartTwice(t *testing.T) {
	h := NewHeartbeat(time.Hour, func() {})
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer h.Stop()

	if err := h.Start(context.Background()); !errors.Is(err, ErrHeartbeatRunning) {
		t.Errorf("second start err = %v, want ErrHeartbeatRunning", err)
	}
}

func TestHeartbeatStopIsFinal(t *testing.T) {
	var count atomic.Int64
	h := NewHeartbeat(2*time.Millisecond, func() { count.Add(1) })

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	h.Stop()

	if h.Running() {
		t.Fatal("heartbeat still running after Stop")
	}
	after := count.Load()
	time.Sleep(20 * time.Millisecond)
	if got := count.Load(); got != after {
		t.Errorf("ticks after stop: %d -> %d", after, got)
	}

	// Stop is idempotent.
	h.Stop()
}

func TestHeartbeatStopWaitsForInFlightTick(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	h := NewHeartbeat(time.Millisecond, func() {
		select {
		case entered <- struct{}{}:
		default:
			return
		}
		<-release
		finished.Store(true)
	})
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("tick never started")
	}

	stopped := make(chan struct{})
	go func() {
		h.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a tick was still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop never returned")
	}
	if !finished.Load() {
		t.Error("in-flight tick did not complete")
	}
	if h.Running() {
		t.Error("heartbeat still running")
	}
}

func TestHeartbeatContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHeartbeat(time.Hour, func() {})
	if err := h.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for h.Running() {
		if time.Now().After(deadline) {
			t.Fatal("heartbeat did not stop on context cancel")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHeartbeatRestart(t *testing.T) {
	h := NewHeartbeat(time.Hour, func() {})
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.Stop()

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if !h.Running() {
		t.Error("expected running after restart")
	}
	h.Stop()
}

func TestHeartbeatStopBeforeStart(t *testing.T) {
	h := NewHeartbeat(0, func() {})
	h.Stop()
	if h.Running() {
		t.Error("expected not running")
	}
	if h.interval != DefaultHeartbeatInterval {
		t.Errorf("interval = %v, want %v", h.interval, DefaultHeartbeatInterval)
	}
}

func TestHeartbeatDrivesStoreTick(t *testing.T) {
	clock := newTestClock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	beats := make(chan Event, 10)
	s := NewStore(WithClock(clock.Now), WithNotifier(NotifierFunc(func(e Event) {
		if e.Kind == EventHeartbeat {
			select {
			case beats <- e:
			default:
			}
		}
	})))
	mustAdd(t, s, NewVisit{CustomerName: "Dana", VisitType: Ask})

	// Time passes with no writes; the next beat must report the overdue visit.
	clock.Advance(45 * time.Minute)

	h := NewHeartbeat(2*time.Millisecond, func() { s.Tick() })
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer h.Stop()

	select {
	case e := <-beats:
		if len(e.Snapshot.Overdue) != 1 {
			t.Errorf("overdue = %d, want 1", len(e.Snapshot.Overdue))
		}
		if len(e.Snapshot.Alerts) != 1 || e.Snapshot.Alerts[0].Severity != Danger {
			t.Errorf("alerts = %+v, want one danger", e.Snapshot.Alerts)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no heartbeat event")
	}
}
