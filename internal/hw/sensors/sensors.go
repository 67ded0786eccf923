package sensors

import (
	"math"
	"math/rand"
	"sync"

	"github.com/cjeanneret/SolGo/internal/debug"
)

// Sensors is the environment the controller reads once per tick.
// Reads never fail: an implementation that cannot reach its hardware
// returns its best estimate (usually the last known value).
type Sensors interface {
	WindSpeed() float64      // m/s, >= 0
	WindDirection() float64  // degrees, [0,360)
	DustPercentage() float64 // percent, nominally [0,100], not clamped
}

// Simulation ranges.
const (
	SimWindSpeedMax   = 25.0 // m/s
	SimDustMax        = 50.0 // percent
	SimDirectionDrift = 30.0 // max degrees the wind veers per read
)

// Simulated produces random readings for development without hardware.
// Wind direction drifts from its previous value instead of jumping, the
// way a real vane behaves.
type Simulated struct {
	mu        sync.Mutex
	rng       *rand.Rand
	direction float64
}

// NewSimulated returns simulated sensors seeded with seed.
func NewSimulated(seed int64) *Simulated {
	return &Simulated{rng: rand.New(rand.NewSource(seed))}
}

func (s *Simulated) WindSpeed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.rng.Float64() * SimWindSpeedMax
	debug.Trace("Sensors: simulated wind speed %.2f m/s", v)
	return v
}

func (s *Simulated) DustPercentage() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.rng.Float64() * SimDustMax
	debug.Trace("Sensors: simulated dust %.2f%%", v)
	return v
}

func (s *Simulated) WindDirection() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	delta := (s.rng.Float64()*2 - 1) * SimDirectionDrift
	d := math.Mod(s.direction+delta, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	s.direction = d
	debug.Trace("Sensors: simulated wind direction %.2f°", d)
	return d
}

// DustFromPower estimates dust cover from the panel's electrical output:
// the fraction of expected power that is missing, as a percentage.
// Returns 0 when no output is expected (night) and never goes negative.
func DustFromPower(actualW, expectedW float64) float64 {
	if expectedW <= 0 {
		return 0
	}
	return math.Max((1-actualW/expectedW)*100, 0)
}
