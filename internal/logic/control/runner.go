package control

import (
	"context"
	"time"

	"github.com/cjeanneret/SolGo/internal/debug"
)

// Runner drives a Machine on a fixed interval.
type Runner struct {
	m        *Machine
	interval time.Duration
}

// NewRunner returns a runner ticking m every interval.
func NewRunner(m *Machine, interval time.Duration) *Runner {
	return &Runner{m: m, interval: interval}
}

// Run ticks until ctx is cancelled, then stops the actuators once.
// Ticks run in this goroutine so they never overlap; a tick in progress
// when ctx is cancelled still completes. A tick slower than the interval
// drops the ticks it overran.
func (r *Runner) Run(ctx context.Context) error {
	debug.Info("Control loop started (every %v)", r.interval)
	tickCtx := context.WithoutCancel(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.m.Tick(tickCtx)
	for {
		select {
		case <-ctx.Done():
			debug.Info("Control loop stopping")
			r.m.Halt()
			return nil
		case <-ticker.C:
			r.m.Tick(tickCtx)
		}
	}
}
