package stepper

import (
	"time"

	"github.com/cjeanneret/SolGo/internal/debug"
	"github.com/cjeanneret/SolGo/internal/hw/gpio"
)

// Config holds the hardware configuration for a stepper motor.
type Config struct {
	Name          string // axis name used in logs ("base", "tilt")
	StepPin       int
	DirPin        int
	EnablePin     int // A4988 ENABLE pin (BCM). 0 = not used. Active LOW (LOW=enabled).
	StepsPerRev   int
	Microstepping int
	StepDelay     time.Duration // delay per half-cycle of STEP pulse. Total step = 2*StepDelay.
}

// Stepper drives one A4988-controlled axis and keeps track of its absolute
// position in microsteps, counted from where it was powered on (the home
// position: base facing north, panel flat).
type Stepper struct {
	gpio     gpio.Driver
	cfg      Config
	delay    time.Duration // delay between STEP pulse half-cycles
	position int
}

// NewStepper creates a new stepper motor controller.
// cfg.StepDelay: if 0, defaults to 1ms.
func NewStepper(g gpio.Driver, cfg Config) *Stepper {
	_ = g.SetupPin(cfg.StepPin, gpio.Output)
	_ = g.SetupPin(cfg.DirPin, gpio.Output)

	delay := cfg.StepDelay
	if delay <= 0 {
		delay = 1 * time.Millisecond
	}
	if cfg.Name == "" {
		cfg.Name = "stepper"
	}

	s := &Stepper{
		gpio:  g,
		cfg:   cfg,
		delay: delay,
	}

	// A4988 ENABLE: active LOW. LOW = enabled, HIGH = disabled.
	if cfg.EnablePin > 0 {
		_ = g.SetupPin(cfg.EnablePin, gpio.Output)
		_ = g.WritePin(cfg.EnablePin, gpio.Low)
	}

	return s
}

// Position returns the absolute position in microsteps.
func (s *Stepper) Position() int {
	return s.position
}

// MicrostepsPerRev returns the number of microsteps in a full output revolution.
func (s *Stepper) MicrostepsPerRev() int {
	return s.cfg.StepsPerRev * s.cfg.Microstepping
}

// MoveTo moves the motor to an absolute microstep position.
func (s *Stepper) MoveTo(target int) error {
	return s.MoveSteps(target - s.position)
}

// MoveSteps moves the motor by a number of steps (positive or negative).
// The tracked position advances only by pulses actually issued.
func (s *Stepper) MoveSteps(steps int) error {
	if steps == 0 {
		return nil
	}

	var dirLevel gpio.Level
	var direction string
	sign := 1
	if steps > 0 {
		dirLevel = gpio.High
		direction = "forward"
	} else {
		dirLevel = gpio.Low
		direction = "backward"
		steps = -steps
		sign = -1
	}

	debug.Printf("Stepper %s: moving %d steps (%s) on pin %d", s.cfg.Name, steps, direction, s.cfg.StepPin)

	if err := s.gpio.WritePin(s.cfg.DirPin, dirLevel); err != nil {
		return err
	}

	for i := 0; i < steps; i++ {
		if err := s.stepPulse(); err != nil {
			return err
		}
		s.position += sign
	}
	return nil
}

func (s *Stepper) stepPulse() error {
	if err := s.gpio.WritePin(s.cfg.StepPin, gpio.High); err != nil {
		return err
	}
	time.Sleep(s.delay)
	if err := s.gpio.WritePin(s.cfg.StepPin, gpio.Low); err != nil {
		return err
	}
	time.Sleep(s.delay)
	return nil
}

// Enable turns on the motor driver (A4988 ENABLE=LOW). Motors hold position.
func (s *Stepper) Enable() error {
	if s.cfg.EnablePin <= 0 {
		return nil
	}
	return s.gpio.WritePin(s.cfg.EnablePin, gpio.Low)
}

// Disable turns off the motor driver (A4988 ENABLE=HIGH). Motors freewheel, no holding torque.
// Used as the hardware halt for idle and emergency stop.
func (s *Stepper) Disable() error {
	if s.cfg.EnablePin <= 0 {
		return nil
	}
	return s.gpio.WritePin(s.cfg.EnablePin, gpio.High)
}
