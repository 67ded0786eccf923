// Package telemetry reports what the controller is doing: the state
// snapshot after every tick and free-text warnings.
package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/cjeanneret/SolGo/internal/debug"
)

// Snapshot is the persisted and reported machine state.
type Snapshot struct {
	CurrentState       string     `json:"currentState" yaml:"currentState"`
	WindCleanStartTime *time.Time `json:"windCleanStartTime" yaml:"windCleanStartTime"`
}

// Equal reports whether two snapshots describe the same state.
func (s Snapshot) Equal(o Snapshot) bool {
	if s.CurrentState != o.CurrentState {
		return false
	}
	if s.WindCleanStartTime == nil || o.WindCleanStartTime == nil {
		return s.WindCleanStartTime == nil && o.WindCleanStartTime == nil
	}
	return s.WindCleanStartTime.Equal(*o.WindCleanStartTime)
}

// Status is the full per-tick report: the snapshot plus what the
// machine saw and did.
type Status struct {
	Snapshot
	Time          time.Time `json:"time"`
	BaseAngle     float64   `json:"baseAngle"`
	TiltAngle     float64   `json:"tiltAngle"`
	WaterLiters   float64   `json:"waterLiters"`
	WindSpeed     float64   `json:"windSpeed"`
	WindDirection float64   `json:"windDirection"`
	Dust          float64   `json:"dust"`
	Override      string    `json:"override,omitempty"`
}

// Sink receives state and log messages. Implementations must not block
// the tick for long: buffer or time out network writes.
type Sink interface {
	PublishState(ctx context.Context, st Status) error
	Log(ctx context.Context, msg string) error
}

// Fanout forwards to every sink and joins their errors.
type Fanout []Sink

func (f Fanout) PublishState(ctx context.Context, st Status) error {
	var errs []error
	for _, s := range f {
		if err := s.PublishState(ctx, st); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Log(ctx context.Context, msg string) error {
	var errs []error
	for _, s := range f {
		if err := s.Log(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink is the local sink: the process log.
type LogSink struct{}

func (LogSink) PublishState(_ context.Context, st Status) error {
	if st.WindCleanStartTime != nil {
		debug.Live("Published state %s (wind cleaning since %s)", st.CurrentState, st.WindCleanStartTime.Format(time.RFC3339))
		return nil
	}
	debug.Live("Published state %s", st.CurrentState)
	return nil
}

func (LogSink) Log(_ context.Context, msg string) error {
	debug.Warn("%s", msg)
	return nil
}
