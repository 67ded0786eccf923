package geometry

import "fmt"

// Axis identifies one of the two actuators.
type Axis int

const (
	Base Axis = iota // horizontal rotation (azimuth)
	Tilt             // panel face inclination (elevation)
)

func (a Axis) String() string {
	switch a {
	case Base:
		return "base"
	case Tilt:
		return "tilt"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// Command is one actuator instruction: move Axis to Angle degrees.
type Command struct {
	Axis  Axis
	Angle float64
}

func (c Command) String() string {
	return fmt.Sprintf("%s->%.2f°", c.Axis, c.Angle)
}

// Position is the current orientation of the panel.
type Position struct {
	Base float64 // [0,360)
	Tilt float64 // [0,90]
}

// DefaultHysteresisDeg is the azimuth drift tolerated before the base rotates.
const DefaultHysteresisDeg = 15.0

// Resolver turns a desired sun direction into actuator commands.
//
// The tilt axis does the fine work; the base only follows when the sun
// has drifted more than HysteresisDeg in azimuth, which keeps the big
// motor from chattering. Elevations past 90° cannot be reached by
// tilting, so the panel turns its back to the sun's azimuth and tilts to
// the complementary angle instead (fold-back).
type Resolver struct {
	HysteresisDeg float64

	// Circular measures the azimuth change the short way round. When
	// false the plain difference is used, so near north (5° vs 355°) a
	// 10° drift reads as 350° and the base rotates.
	Circular bool
}

// NewResolver returns a Resolver with the given hysteresis.
func NewResolver(hysteresisDeg float64, circular bool) Resolver {
	return Resolver{HysteresisDeg: hysteresisDeg, Circular: circular}
}

// Resolve returns, in issue order, the commands that point the panel at
// (azimuth, elevation) from the current position. Azimuth is wrapped into
// [0,360) and elevation clamped into [0,180] first; every returned angle
// is within the actuator ranges.
func (r Resolver) Resolve(azimuth, elevation float64, current Position) []Command {
	az := NormalizeAzimuth(azimuth)
	el := ClampElevation(elevation)

	if el <= TiltMaxDeg {
		cmds := []Command{{Axis: Tilt, Angle: ClampTilt(el)}}
		if r.distance(az, current.Base) > r.HysteresisDeg {
			cmds = append(cmds, Command{Axis: Base, Angle: az})
		}
		return cmds
	}

	opposite := NormalizeAzimuth(az + FullTurnDeg/2)
	return []Command{
		{Axis: Base, Angle: opposite},
		{Axis: Tilt, Angle: ClampTilt(ElevationMaxDeg - el)},
	}
}

func (r Resolver) distance(a, b float64) float64 {
	if r.Circular {
		return CircularDistance(a, b)
	}
	return LinearDistance(a, b)
}
