package motion

import (
	"errors"

	"github.com/cjeanneret/SolGo/internal/debug"
	"github.com/cjeanneret/SolGo/internal/hw/stepper"
	"github.com/cjeanneret/SolGo/internal/logic/geometry"
)

// LogHardware is the simulated actuator: it only logs what it would do.
type LogHardware struct{}

func (LogHardware) SetBase(angle float64) error {
	debug.Info("[Simulated] Rotating base to %.2f°", angle)
	return nil
}

func (LogHardware) SetTilt(angle float64) error {
	debug.Info("[Simulated] Tilting top to %.2f°", angle)
	return nil
}

func (LogHardware) Stop() error {
	debug.Info("[Simulated] Stopping all actuators.")
	return nil
}

// StepperHardware drives the base and tilt axes with two steppers,
// converting angles to absolute step positions.
type StepperHardware struct {
	base  *stepper.Stepper
	tilt  *stepper.Stepper
	steps *geometry.StepsCalculator
}

func NewStepperHardware(base, tilt *stepper.Stepper, steps *geometry.StepsCalculator) *StepperHardware {
	return &StepperHardware{
		base:  base,
		tilt:  tilt,
		steps: steps,
	}
}

// SetBase re-energises the base driver if it was stopped and moves it.
func (h *StepperHardware) SetBase(angle float64) error {
	if err := h.base.Enable(); err != nil {
		return err
	}
	return h.base.MoveTo(h.steps.BaseSteps(angle))
}

// SetTilt re-energises the tilt driver if it was stopped and moves it.
func (h *StepperHardware) SetTilt(angle float64) error {
	if err := h.tilt.Enable(); err != nil {
		return err
	}
	return h.tilt.MoveTo(h.steps.TiltSteps(angle))
}

// Stop de-energises both drivers.
func (h *StepperHardware) Stop() error {
	return errors.Join(h.base.Disable(), h.tilt.Disable())
}
