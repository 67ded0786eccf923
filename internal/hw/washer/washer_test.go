package washer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/cjeanneret/SolGo/internal/hw/gpio"
)

// recordingWasher records relay switching for verification.
type recordingWasher struct {
	calls    []string
	pumpFail bool
}

func (r *recordingWasher) SetPump(on bool) error {
	r.calls = append(r.calls, "pump "+onOff(on))
	if on && r.pumpFail {
		return errors.New("pump relay stuck")
	}
	return nil
}

func (r *recordingWasher) SetVibration(on bool) error {
	r.calls = append(r.calls, "vibration "+onOff(on))
	return nil
}

func TestCycle_Sequence(t *testing.T) {
	w := &recordingWasher{}

	if err := Cycle(context.Background(), w, time.Microsecond); err != nil {
		t.Fatalf("Cycle: %v", err)
	}

	want := []string{"pump ON", "vibration ON", "pump OFF", "vibration OFF"}
	if diff := cmp.Diff(want, w.calls); diff != "" {
		t.Errorf("relay sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestCycle_PumpFailureReleasesBoth(t *testing.T) {
	w := &recordingWasher{pumpFail: true}

	if err := Cycle(context.Background(), w, time.Microsecond); err == nil {
		t.Fatal("expected error when pump relay fails")
	}

	want := []string{"pump ON", "pump OFF", "vibration OFF"}
	if diff := cmp.Diff(want, w.calls); diff != "" {
		t.Errorf("relay sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestCycle_CancelledStillReleases(t *testing.T) {
	w := &recordingWasher{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Cycle(ctx, w, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Cycle error = %v, want context.Canceled", err)
	}
	if got := w.calls[len(w.calls)-2:]; got[0] != "pump OFF" || got[1] != "vibration OFF" {
		t.Errorf("last calls = %v, want relays released", got)
	}
}

func TestGPIOWasher_PinsStartReleased(t *testing.T) {
	drv := gpio.NewMockDriver()
	_ = drv.WritePin(22, gpio.High)
	NewGPIOWasher(drv, 22, 23)

	for _, pin := range []int{22, 23} {
		if lvl, _ := drv.ReadPin(pin); lvl != gpio.Low {
			t.Errorf("pin %d = %v after construction, want Low", pin, lvl)
		}
	}
}

func TestGPIOWasher_SwitchesRelays(t *testing.T) {
	drv := gpio.NewMockDriver()
	w := NewGPIOWasher(drv, 22, 23)

	if err := w.SetPump(true); err != nil {
		t.Fatalf("SetPump: %v", err)
	}
	if lvl, _ := drv.ReadPin(22); lvl != gpio.High {
		t.Error("pump pin should be HIGH when on")
	}
	if lvl, _ := drv.ReadPin(23); lvl != gpio.Low {
		t.Error("vibration pin should stay LOW while only the pump is on")
	}

	if err := w.SetVibration(true); err != nil {
		t.Fatalf("SetVibration: %v", err)
	}
	if err := w.SetPump(false); err != nil {
		t.Fatalf("SetPump(false): %v", err)
	}
	if lvl, _ := drv.ReadPin(22); lvl != gpio.Low {
		t.Error("pump pin should be LOW when off")
	}
	if lvl, _ := drv.ReadPin(23); lvl != gpio.High {
		t.Error("vibration pin should be HIGH when on")
	}
}

func TestLogWasher_ImplementsWasher(t *testing.T) {
	var _ Washer = LogWasher{}
	var _ Washer = &GPIOWasher{}
	if err := Cycle(context.Background(), LogWasher{}, time.Microsecond); err != nil {
		t.Errorf("LogWasher cycle: %v", err)
	}
}
