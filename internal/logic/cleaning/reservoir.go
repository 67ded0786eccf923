package cleaning

import (
	"errors"
	"fmt"
)

// ErrDepleted is returned when the reservoir holds less than one cycle of water.
var ErrDepleted = errors.New("water reservoir depleted")

// Reservoir tracks the water available for cleaning. Volume never goes
// negative: a cycle is either fully paid for or refused.
type Reservoir struct {
	volume float64
	usage  float64
}

// NewReservoir returns a reservoir holding initial liters, spending usage
// liters per cleaning cycle. usage must be > 0 (enforced by config).
func NewReservoir(initial, usage float64) *Reservoir {
	if initial < 0 {
		initial = 0
	}
	return &Reservoir{volume: initial, usage: usage}
}

// Consume pays for one cleaning cycle.
func (r *Reservoir) Consume() error {
	if r.volume < r.usage {
		return fmt.Errorf("%w: %.3f L left, %.3f L needed", ErrDepleted, r.volume, r.usage)
	}
	r.volume -= r.usage
	return nil
}

// Volume returns the liters left.
func (r *Reservoir) Volume() float64 {
	return r.volume
}

// UsagePerCycle returns the liters spent per cycle.
func (r *Reservoir) UsagePerCycle() float64 {
	return r.usage
}

// Restore sets the volume, e.g. from a saved snapshot. Negative values become 0.
func (r *Reservoir) Restore(liters float64) {
	if liters < 0 {
		liters = 0
	}
	r.volume = liters
}
