package geometry

import (
	"math"

	"github.com/cjeanneret/SolGo/internal/config"
)

// StepsCalculator converts axis angles to absolute motor step positions.
type StepsCalculator struct {
	baseStepsPerDegree float64
	tiltStepsPerDegree float64
}

// NewStepsCalculator creates a step calculator from configuration.
func NewStepsCalculator(cfg *config.Config) *StepsCalculator {
	baseMicrostepsPerRev := float64(cfg.BaseStepper.StepsPerRev * cfg.BaseStepper.Microstepping)
	tiltMicrostepsPerRev := float64(cfg.TiltStepper.StepsPerRev * cfg.TiltStepper.Microstepping)

	return &StepsCalculator{
		baseStepsPerDegree: baseMicrostepsPerRev / FullTurnDeg,
		tiltStepsPerDegree: tiltMicrostepsPerRev / FullTurnDeg,
	}
}

// BaseSteps returns the absolute base position, in microsteps from
// north, for an azimuth. The base never crosses north: going from 350°
// to 10° unwinds through south, so cables cannot wrap around the mast.
func (s *StepsCalculator) BaseSteps(azimuthDeg float64) int {
	return int(math.Round(NormalizeAzimuth(azimuthDeg) * s.baseStepsPerDegree))
}

// TiltSteps returns the absolute tilt position, in microsteps from flat.
func (s *StepsCalculator) TiltSteps(tiltDeg float64) int {
	return int(math.Round(ClampTilt(tiltDeg) * s.tiltStepsPerDegree))
}
