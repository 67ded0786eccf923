package cleaning

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cjeanneret/SolGo/internal/logic/geometry"
	"github.com/cjeanneret/SolGo/internal/logic/motion"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestReservoir_Consume(t *testing.T) {
	cases := []struct {
		name       string
		volume     float64
		wantErr    bool
		wantVolume float64
	}{
		{"short", 0.10, true, 0.10},
		{"empty", 0, true, 0},
		{"exact", 0.125, false, 0},
		{"enough", 0.20, false, 0.075},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewReservoir(tc.volume, 0.125)
			err := r.Consume()
			if tc.wantErr {
				if !errors.Is(err, ErrDepleted) {
					t.Fatalf("Consume() error = %v, want ErrDepleted", err)
				}
			} else if err != nil {
				t.Fatalf("Consume() unexpected error: %v", err)
			}
			if !approx(r.Volume(), tc.wantVolume) {
				t.Errorf("Volume() = %v, want %v", r.Volume(), tc.wantVolume)
			}
		})
	}
}

func TestReservoir_DrainsToDepletion(t *testing.T) {
	r := NewReservoir(2.0, 0.125)
	cycles := 0
	for r.Consume() == nil {
		cycles++
		if cycles > 100 {
			t.Fatal("reservoir never depleted")
		}
	}
	if cycles != 16 {
		t.Errorf("cycles = %d, want 16", cycles)
	}
	if r.Volume() < 0 {
		t.Errorf("volume went negative: %v", r.Volume())
	}
}

func TestReservoir_Restore(t *testing.T) {
	r := NewReservoir(-1, 0.125)
	if r.Volume() != 0 {
		t.Errorf("negative initial volume should become 0, got %v", r.Volume())
	}
	r.Restore(1.5)
	if r.Volume() != 1.5 {
		t.Errorf("Volume() = %v after Restore(1.5)", r.Volume())
	}
	r.Restore(-3)
	if r.Volume() != 0 {
		t.Errorf("Volume() = %v after Restore(-3), want 0", r.Volume())
	}
}

type recordingAligner struct {
	calls []geometry.Command
}

func (a *recordingAligner) SetBase(angle float64) motion.Move {
	a.calls = append(a.calls, geometry.Command{Axis: geometry.Base, Angle: angle})
	return motion.Move{Axis: geometry.Base, To: angle}
}

func (a *recordingAligner) SetTilt(angle float64) motion.Move {
	a.calls = append(a.calls, geometry.Command{Axis: geometry.Tilt, Angle: angle})
	return motion.Move{Axis: geometry.Tilt, To: angle}
}

func TestAlignForWind(t *testing.T) {
	a := &recordingAligner{}
	AlignForWind(a, 247.5)

	want := []geometry.Command{
		{Axis: geometry.Base, Angle: 247.5},
		{Axis: geometry.Tilt, Angle: 0},
	}
	if diff := cmp.Diff(want, a.calls); diff != "" {
		t.Errorf("alignment mismatch (-want +got):\n%s", diff)
	}
}

func TestAlignForWind_ThroughController(t *testing.T) {
	c := motion.NewController(motion.LogHardware{})
	c.SetTilt(60)

	AlignForWind(c, 400)

	if got := c.Position(); got != (geometry.Position{Base: 40, Tilt: 0}) {
		t.Errorf("Position() = %+v, want base 40 tilt 0", got)
	}
}

type recordingWasher struct {
	calls   []string
	pumpErr error
}

func (w *recordingWasher) SetPump(on bool) error {
	w.calls = append(w.calls, "pump "+onOff(on))
	if on {
		return w.pumpErr
	}
	return nil
}

func (w *recordingWasher) SetVibration(on bool) error {
	w.calls = append(w.calls, "vibration "+onOff(on))
	return nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func TestWash_RunsCycle(t *testing.T) {
	r := NewReservoir(0.5, 0.125)
	w := &recordingWasher{}

	if err := Wash(context.Background(), r, w, 0); err != nil {
		t.Fatalf("Wash: %v", err)
	}
	want := []string{"pump on", "vibration on", "pump off", "vibration off"}
	if diff := cmp.Diff(want, w.calls); diff != "" {
		t.Errorf("washer calls mismatch (-want +got):\n%s", diff)
	}
	if !approx(r.Volume(), 0.375) {
		t.Errorf("Volume() = %v, want 0.375", r.Volume())
	}
}

func TestWash_DepletedSkipsHardware(t *testing.T) {
	r := NewReservoir(0.1, 0.125)
	w := &recordingWasher{}

	err := Wash(context.Background(), r, w, 0)
	if !errors.Is(err, ErrDepleted) {
		t.Fatalf("Wash() error = %v, want ErrDepleted", err)
	}
	if len(w.calls) != 0 {
		t.Errorf("washer should not run when depleted, got %v", w.calls)
	}
}

func TestWash_PumpFaultIsLoggedAndReleased(t *testing.T) {
	r := NewReservoir(0.5, 0.125)
	w := &recordingWasher{pumpErr: errors.New("relay stuck")}

	if err := Wash(context.Background(), r, w, 0); err != nil {
		t.Fatalf("washer faults should not surface, got %v", err)
	}
	want := []string{"pump on", "pump off", "vibration off"}
	if diff := cmp.Diff(want, w.calls); diff != "" {
		t.Errorf("washer calls mismatch (-want +got):\n%s", diff)
	}
}
