package control

import (
	"context"
	"testing"
	"time"

	"github.com/cjeanneret/SolGo/internal/telemetry"
)

// signalSink reports each published state on a channel.
type signalSink struct {
	ticks chan struct{}
}

func (s *signalSink) PublishState(context.Context, telemetry.Status) error {
	select {
	case s.ticks <- struct{}{}:
	default:
	}
	return nil
}

func (s *signalSink) Log(context.Context, string) error { return nil }

func TestRunner_TicksAndStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	sink := &signalSink{ticks: make(chan struct{})}
	h.m.d.Sink = sink
	r := NewRunner(h.m, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	for i := 0; i < 3; i++ {
		select {
		case <-sink.ticks:
		case <-time.After(2 * time.Second):
			t.Fatalf("runner stalled after %d ticks", i)
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil on cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
	if last := h.hw.calls[len(h.hw.calls)-1]; last != "stop" {
		t.Errorf("last hardware call = %q, want final stop", last)
	}
}

func TestRunner_FirstTickIsImmediate(t *testing.T) {
	h := newHarness(t)
	sink := &signalSink{ticks: make(chan struct{}, 1)}
	h.m.d.Sink = sink
	r := NewRunner(h.m, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case <-sink.ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("no tick before the first interval elapsed")
	}
	cancel()
	<-done
}
