package geometry

import "math"

// Physical ranges of the two axes.
const (
	FullTurnDeg     = 360.0
	TiltMaxDeg      = 90.0  // tilt actuator: 0 = flat, 90 = vertical
	ElevationMaxDeg = 180.0 // sun elevation past zenith, "behind" the panel
)

// NormalizeAzimuth wraps any angle into [0,360). Non-finite input maps to 0.
func NormalizeAzimuth(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	a := math.Mod(deg, FullTurnDeg)
	if a < 0 {
		a += FullTurnDeg
	}
	// -1e-20 + 360 rounds to 360
	if a >= FullTurnDeg {
		a = 0
	}
	return a
}

// ClampTilt limits an angle to the tilt actuator range [0,90]. NaN maps to 0.
func ClampTilt(deg float64) float64 {
	return clamp(deg, 0, TiltMaxDeg)
}

// ClampElevation limits a desired sun elevation to [0,180]. NaN maps to 0.
func ClampElevation(deg float64) float64 {
	return clamp(deg, 0, ElevationMaxDeg)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(v, hi))
}

// LinearDistance is the plain absolute difference between two azimuths,
// without wrapping: 5° and 355° are 350° apart.
func LinearDistance(a, b float64) float64 {
	return math.Abs(a - b)
}

// CircularDistance is the shortest way round between two azimuths, in
// [0,180]: 5° and 355° are 10° apart.
func CircularDistance(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), FullTurnDeg)
	if d > FullTurnDeg/2 {
		d = FullTurnDeg - d
	}
	return d
}
