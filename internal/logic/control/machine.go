package control

import (
	"context"
	"fmt"
	"time"

	"github.com/cjeanneret/SolGo/internal/debug"
	"github.com/cjeanneret/SolGo/internal/hw/sensors"
	"github.com/cjeanneret/SolGo/internal/hw/washer"
	"github.com/cjeanneret/SolGo/internal/logic/cleaning"
	"github.com/cjeanneret/SolGo/internal/logic/geometry"
	"github.com/cjeanneret/SolGo/internal/logic/motion"
	"github.com/cjeanneret/SolGo/internal/observability"
	"github.com/cjeanneret/SolGo/internal/override"
	"github.com/cjeanneret/SolGo/internal/telemetry"
)

// Log messages sent to the sink.
const (
	MsgForceClean = "User override: Forced water cleaning."
	MsgStopAll    = "User override: Stopped all actuators."
	MsgResume     = "User override: Resumed sun tracking."
	MsgDepleted   = "WARNING: Water reservoir empty or cleaning failed."
)

// unknownOverrideLabel counts every unrecognized command under one
// series; the raw text comes from the network.
const unknownOverrideLabel = "unknown"

// Thresholds are the decision parameters, fixed for a run.
type Thresholds struct {
	DustPct      float64       // dust above this needs cleaning
	WindSpeedMs  float64       // wind above this can do the cleaning
	WindCleanMax time.Duration // wind cleaning gives way to water after this
}

// TargetSource gives the direction to track. ok is false when there is
// nothing to track (sun below the horizon).
type TargetSource interface {
	Target(now time.Time) (azimuth, elevation float64, ok bool)
}

// Deps are the collaborators a Machine owns or calls. Overrides, Sink,
// Metrics, Target and Now are optional.
type Deps struct {
	Sensors   sensors.Sensors
	Actuator  *motion.Controller
	Resolver  geometry.Resolver
	Reservoir *cleaning.Reservoir
	Washer    washer.Washer
	WashCycle time.Duration
	Target    TargetSource
	Overrides override.Source
	Sink      telemetry.Sink
	Metrics   *observability.Metrics
	Now       func() time.Time
}

// Machine is the operational state machine. It owns the actuator model
// and the reservoir; all of its methods must be called from a single
// goroutine (the tick driver).
type Machine struct {
	th Thresholds
	d  Deps

	state     State
	windStart *time.Time
	windDir   float64
}

// NewMachine returns a machine in SunTracking.
func NewMachine(th Thresholds, d Deps) *Machine {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Washer == nil {
		d.Washer = washer.LogWasher{}
	}
	return &Machine{th: th, d: d, state: SunTracking}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Snapshot returns the persisted form of the current state.
func (m *Machine) Snapshot() telemetry.Snapshot {
	s := telemetry.Snapshot{CurrentState: m.state.String()}
	if m.windStart != nil {
		t := *m.windStart
		s.WindCleanStartTime = &t
	}
	return s
}

// Restore resumes from a saved snapshot. A CleaningWind snapshot
// without a start time gets one on the next tick; a start time saved
// with any other state is dropped.
func (m *Machine) Restore(s telemetry.Snapshot) error {
	st, err := ParseState(s.CurrentState)
	if err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	m.state = st
	m.windStart = nil
	if st == CleaningWind && s.WindCleanStartTime != nil {
		t := *s.WindCleanStartTime
		m.windStart = &t
	}
	debug.Info("Restored state %s", m.state)
	return nil
}

// Halt stops the actuators without changing state.
func (m *Machine) Halt() {
	m.d.Actuator.Stop()
}

// Tick runs one logic step to completion and returns what it published.
func (m *Machine) Tick(ctx context.Context) telemetry.Status {
	started := time.Now()
	now := m.d.Now()

	dust := m.d.Sensors.DustPercentage()
	wind := m.d.Sensors.WindSpeed()
	m.windDir = m.d.Sensors.WindDirection()
	debug.Live("Tick: state=%s dust=%.1f%% wind=%.1f m/s from %.0f°", m.state, dust, wind, m.windDir)

	cmd := override.None
	if m.d.Overrides != nil {
		cmd = m.d.Overrides.Fetch()
	}
	if !m.applyOverride(ctx, cmd) {
		m.evaluate(ctx, now, dust, wind)
	}

	st := m.status(now, dust, wind, cmd)
	m.publish(ctx, st)
	m.d.Metrics.Tick(time.Since(started))
	return st
}

// applyOverride handles cmd and reports whether it decided this tick.
func (m *Machine) applyOverride(ctx context.Context, cmd override.Command) bool {
	if cmd == override.None {
		return false
	}
	if cmd.Known() {
		m.d.Metrics.Override(string(cmd))
	} else {
		m.d.Metrics.Override(unknownOverrideLabel)
	}
	switch cmd {
	case override.StopAll:
		m.d.Actuator.Stop()
		m.switchState(Idle)
		m.log(ctx, MsgStopAll)
		return true
	case override.ForceClean:
		m.switchState(CleaningWater)
		m.log(ctx, MsgForceClean)
		return true
	case override.Resume:
		if m.state != Idle {
			debug.Info("Resume ignored: not idle (state %s)", m.state)
			return false
		}
		m.switchState(SunTracking)
		m.log(ctx, MsgResume)
		return true
	default:
		m.warn(ctx, fmt.Sprintf("Ignoring unrecognized override %q.", string(cmd)))
		return false
	}
}

// evaluate applies the threshold-driven transition table.
func (m *Machine) evaluate(ctx context.Context, now time.Time, dust, wind float64) {
	switch m.state {
	case SunTracking:
		switch {
		case dust > m.th.DustPct && wind > m.th.WindSpeedMs:
			m.switchState(CleaningWind)
			m.startWindCleaning(now)
		case dust > m.th.DustPct:
			m.switchState(CleaningWater)
		default:
			m.track(now)
		}

	case CleaningWind:
		if m.windStart == nil {
			m.startWindCleaning(now)
		}
		switch {
		case dust <= m.th.DustPct:
			m.switchState(SunTracking)
		case now.Sub(*m.windStart) >= m.th.WindCleanMax:
			debug.Info("Wind cleaning gave up after %v", now.Sub(*m.windStart).Round(time.Second))
			m.switchState(CleaningWater)
		}

	case CleaningWater:
		if err := cleaning.Wash(ctx, m.d.Reservoir, m.d.Washer, m.d.WashCycle); err != nil {
			debug.Verbose("Wash refused: %v", err)
			m.warn(ctx, MsgDepleted)
		} else {
			m.d.Metrics.WashCycle()
		}
		m.switchState(SunTracking)

	case Idle:
		// Waits for a resume override.
	}
}

func (m *Machine) track(now time.Time) {
	if m.d.Target == nil {
		m.d.Actuator.Stop()
		return
	}
	az, el, ok := m.d.Target.Target(now)
	if !ok {
		debug.Live("No tracking target (sun elevation %.1f°)", el)
		m.d.Actuator.Stop()
		return
	}
	m.d.Actuator.Track(m.d.Resolver, az, el)
}

func (m *Machine) startWindCleaning(now time.Time) {
	t := now
	m.windStart = &t
	debug.Info("Wind cleaning: facing the wind at %.1f°", m.windDir)
	cleaning.AlignForWind(m.d.Actuator, m.windDir)
}

// switchState moves to the given state. The wind cleaning timer only
// survives while staying in CleaningWind.
func (m *Machine) switchState(to State) {
	if to != CleaningWind {
		m.windStart = nil
	}
	if to == m.state {
		return
	}
	debug.Transition(m.state.String(), to.String())
	m.d.Metrics.Transition(m.state.String(), to.String())
	m.state = to
}

func (m *Machine) status(now time.Time, dust, wind float64, cmd override.Command) telemetry.Status {
	pos := m.d.Actuator.Position()
	st := telemetry.Status{
		Snapshot:      m.Snapshot(),
		Time:          now,
		BaseAngle:     pos.Base,
		TiltAngle:     pos.Tilt,
		WaterLiters:   m.d.Reservoir.Volume(),
		WindSpeed:     wind,
		WindDirection: m.windDir,
		Dust:          dust,
	}
	if cmd != override.None {
		st.Override = string(cmd)
	}
	return st
}

func (m *Machine) publish(ctx context.Context, st telemetry.Status) {
	m.d.Metrics.SetState(st.CurrentState)
	m.d.Metrics.Position(st.BaseAngle, st.TiltAngle)
	m.d.Metrics.Water(st.WaterLiters)
	m.d.Metrics.Sensors(st.WindSpeed, st.WindDirection, st.Dust)
	if m.d.Sink == nil {
		return
	}
	if err := m.d.Sink.PublishState(ctx, st); err != nil {
		debug.Error(fmt.Errorf("publish state: %w", err))
	}
}

// log routes msg to the sink, or to the local log without one. A sink
// failure is reported once; msg itself is not printed again.
func (m *Machine) log(ctx context.Context, msg string) {
	if m.d.Sink == nil {
		debug.Warn("%s", msg)
		return
	}
	if err := m.d.Sink.Log(ctx, msg); err != nil {
		debug.Error(fmt.Errorf("log sink: %w", err))
	}
}

func (m *Machine) warn(ctx context.Context, msg string) {
	m.d.Metrics.Warning()
	m.log(ctx, msg)
}
