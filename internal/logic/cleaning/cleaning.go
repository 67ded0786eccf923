package cleaning

import (
	"context"
	"fmt"
	"time"

	"github.com/cjeanneret/SolGo/internal/debug"
	"github.com/cjeanneret/SolGo/internal/hw/washer"
	"github.com/cjeanneret/SolGo/internal/logic/motion"
)

// Aligner is the part of the actuator model wind cleaning needs.
type Aligner interface {
	SetBase(angle float64) motion.Move
	SetTilt(angle float64) motion.Move
}

// AlignForWind turns the panel into the wind and lays it flat so the
// airflow sweeps across the whole face.
func AlignForWind(a Aligner, windDirection float64) {
	a.SetBase(windDirection)
	a.SetTilt(0)
}

// Wash pays for one cycle from r and runs the washer for d.
// It returns ErrDepleted (wrapped) when the reservoir is short; washer
// faults are logged only, since the water is already spent.
func Wash(ctx context.Context, r *Reservoir, w washer.Washer, d time.Duration) error {
	if err := r.Consume(); err != nil {
		return err
	}
	debug.Info("Water cleaning: %.3f L used, %.3f L left", r.UsagePerCycle(), r.Volume())
	if err := washer.Cycle(ctx, w, d); err != nil {
		debug.Error(fmt.Errorf("washer cycle: %w", err))
	}
	return nil
}
