package motion

import (
	"fmt"

	"github.com/cjeanneret/SolGo/internal/debug"
	"github.com/cjeanneret/SolGo/internal/logic/geometry"
)

// Hardware is the actuator capability the controller drives. Angles are
// already sanitised: base in [0,360), tilt in [0,90]. Calls are fire and
// forget; errors are only logged.
type Hardware interface {
	SetBase(angle float64) error
	SetTilt(angle float64) error
	Stop() error
}

// Move reports one axis change, for logging and telemetry.
type Move struct {
	Axis     geometry.Axis
	From, To float64
}

// Controller is the single owner of the panel's logical orientation.
// It sits between the decision logic (tracking, cleaning alignment) and
// the hardware: inputs are wrapped or clamped into range instead of being
// rejected, the position is updated, then the hardware is commanded.
// Not safe for concurrent use; the state machine tick owns it.
type Controller struct {
	hw  Hardware
	pos geometry.Position
}

// NewController returns a controller at the home position (north, flat).
func NewController(hw Hardware) *Controller {
	return &Controller{hw: hw}
}

// Position returns the current logical orientation.
func (c *Controller) Position() geometry.Position {
	return c.pos
}

// SetBase rotates the base to angle modulo 360.
func (c *Controller) SetBase(angle float64) Move {
	m := Move{Axis: geometry.Base, From: c.pos.Base, To: geometry.NormalizeAzimuth(angle)}
	c.pos.Base = m.To
	debug.Move("base", m.From, m.To)
	if err := c.hw.SetBase(m.To); err != nil {
		debug.Error(fmt.Errorf("base actuator: %w", err))
	}
	return m
}

// SetTilt tilts the panel to angle clamped into [0,90].
func (c *Controller) SetTilt(angle float64) Move {
	m := Move{Axis: geometry.Tilt, From: c.pos.Tilt, To: geometry.ClampTilt(angle)}
	c.pos.Tilt = m.To
	debug.Move("tilt", m.From, m.To)
	if err := c.hw.SetTilt(m.To); err != nil {
		debug.Error(fmt.Errorf("tilt actuator: %w", err))
	}
	return m
}

// Stop halts both actuators without changing the logical position.
func (c *Controller) Stop() {
	debug.Live("Stopping all actuators")
	if err := c.hw.Stop(); err != nil {
		debug.Error(fmt.Errorf("stop actuators: %w", err))
	}
}

// Apply issues resolver commands in order.
func (c *Controller) Apply(cmds []geometry.Command) []Move {
	moves := make([]Move, 0, len(cmds))
	for _, cmd := range cmds {
		switch cmd.Axis {
		case geometry.Base:
			moves = append(moves, c.SetBase(cmd.Angle))
		case geometry.Tilt:
			moves = append(moves, c.SetTilt(cmd.Angle))
		}
	}
	return moves
}

// Track points the panel at a sun direction through r.
func (c *Controller) Track(r geometry.Resolver, azimuth, elevation float64) []Move {
	return c.Apply(r.Resolve(azimuth, elevation, c.pos))
}
