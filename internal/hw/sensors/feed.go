package sensors

import (
	"math"
	"sync"
	"time"
)

// Feed holds the latest readings pushed by an external source (MQTT
// weather station, power meter) and serves them to the controller.
// Until a value arrives, reads return zero: calm air and a clean panel.
type Feed struct {
	mu        sync.RWMutex
	speed     float64
	direction float64
	dust      float64
	updated   time.Time
}

// NewFeed returns an empty Feed.
func NewFeed() *Feed {
	return &Feed{}
}

// SetWindSpeed records a wind speed; negative and non-finite values are ignored.
func (f *Feed) SetWindSpeed(v float64) {
	if !finite(v) || v < 0 {
		return
	}
	f.mu.Lock()
	f.speed = v
	f.updated = time.Now()
	f.mu.Unlock()
}

// SetWindDirection records a wind direction, wrapped into [0,360).
func (f *Feed) SetWindDirection(v float64) {
	if !finite(v) {
		return
	}
	v = math.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	if v >= 360 {
		v = 0
	}
	f.mu.Lock()
	f.direction = v
	f.updated = time.Now()
	f.mu.Unlock()
}

// SetDustPercentage records a dust estimate.
func (f *Feed) SetDustPercentage(v float64) {
	if !finite(v) {
		return
	}
	f.mu.Lock()
	f.dust = v
	f.updated = time.Now()
	f.mu.Unlock()
}

// Updated returns when any reading last changed.
func (f *Feed) Updated() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.updated
}

func (f *Feed) WindSpeed() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.speed
}

func (f *Feed) WindDirection() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.direction
}

func (f *Feed) DustPercentage() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dust
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
