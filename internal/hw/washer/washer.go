package washer

import (
	"context"
	"errors"
	"time"

	"github.com/cjeanneret/SolGo/internal/debug"
)

// Washer is the cleaning hardware: a water pump and a vibration motor,
// each switched independently. It says nothing about how they are
// wired (relays on GPIO, a smart plug, nothing at all in simulation).
type Washer interface {
	SetPump(on bool) error
	SetVibration(on bool) error
}

// Cycle runs one water-cleaning pass: pump and vibration on, hold for
// d, then both off. Both outputs are released even if switching on
// failed or ctx is cancelled while waiting.
func Cycle(ctx context.Context, w Washer, d time.Duration) error {
	debug.Live("Washer: starting cycle (%v)", d)

	if err := w.SetPump(true); err != nil {
		return errors.Join(err, release(w))
	}
	if err := w.SetVibration(true); err != nil {
		return errors.Join(err, release(w))
	}

	t := time.NewTimer(d)
	defer t.Stop()
	var waitErr error
	select {
	case <-t.C:
	case <-ctx.Done():
		waitErr = ctx.Err()
	}

	if err := release(w); err != nil {
		return errors.Join(waitErr, err)
	}
	debug.Live("Washer: cycle complete")
	return waitErr
}

func release(w Washer) error {
	return errors.Join(w.SetPump(false), w.SetVibration(false))
}

// LogWasher is the simulated washer: it only logs.
type LogWasher struct{}

func (LogWasher) SetPump(on bool) error {
	debug.Info("[Simulated] Water pump %s", onOff(on))
	return nil
}

func (LogWasher) SetVibration(on bool) error {
	debug.Info("[Simulated] Vibration %s", onOff(on))
	return nil
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
