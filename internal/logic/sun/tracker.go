package sun

import (
	"time"

	"github.com/cjeanneret/SolGo/internal/debug"
)

// Tracker supplies the tracking target for a fixed site.
type Tracker struct {
	Latitude        float64
	Longitude       float64
	MinElevationDeg float64 // below this there is nothing worth tracking
}

// NewTracker returns a tracker for the given site.
func NewTracker(latitude, longitude, minElevationDeg float64) *Tracker {
	return &Tracker{
		Latitude:        latitude,
		Longitude:       longitude,
		MinElevationDeg: minElevationDeg,
	}
}

// Target returns the sun direction at now, and false when the sun is
// below the minimum elevation (night, or too low to be worth following).
func (t *Tracker) Target(now time.Time) (azimuth, elevation float64, ok bool) {
	p := Calculate(t.Latitude, t.Longitude, now)
	debug.Trace("Sun: az=%.2f° el=%.2f° at %s", p.Azimuth, p.Elevation, now.UTC().Format(time.RFC3339))
	if p.Elevation < t.MinElevationDeg {
		return p.Azimuth, p.Elevation, false
	}
	return p.Azimuth, p.Elevation, true
}
