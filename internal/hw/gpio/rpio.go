package gpio

import (
	"fmt"
	"sync"

	"github.com/cjeanneret/SolGo/internal/debug"
	"github.com/stianeikeland/go-rpio/v4"
)

// RPiDriver is the real implementation for Raspberry Pi using go-rpio.
type RPiDriver struct {
	mu      sync.Mutex
	pins    map[int]rpio.Pin
	outputs map[int]bool
}

// NewRPiRealDriver creates a real GPIO driver for Raspberry Pi.
// Requires running on a Raspberry Pi with access to /dev/gpiomem or as root.
func NewRPiRealDriver() (*RPiDriver, error) {
	debug.Info("Initializing real GPIO driver (go-rpio)")

	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open GPIO: %w (are you running on a Raspberry Pi?)", err)
	}

	debug.Verbose("GPIO memory mapped successfully")

	return &RPiDriver{
		pins:    make(map[int]rpio.Pin),
		outputs: make(map[int]bool),
	}, nil
}

func (r *RPiDriver) SetupPin(pin int, mode PinMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.setup(pin, mode)
	return err
}

// setup configures pin; r.mu must be held.
func (r *RPiDriver) setup(pin int, mode PinMode) (rpio.Pin, error) {
	debug.GPIO("SetupPin", pin, mode)

	p := rpio.Pin(pin)
	switch mode {
	case Input:
		p.Input()
		r.outputs[pin] = false
	case Output:
		p.Output()
		r.outputs[pin] = true
	default:
		return p, fmt.Errorf("unknown pin mode: %d", mode)
	}
	r.pins[pin] = p
	return p, nil
}

// lookup returns a configured pin, configuring it with mode on first use.
func (r *RPiDriver) lookup(pin int, mode PinMode) (rpio.Pin, error) {
	if p, ok := r.pins[pin]; ok {
		return p, nil
	}
	return r.setup(pin, mode)
}

func (r *RPiDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)

	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.lookup(pin, Output)
	if err != nil {
		return err
	}
	if level == High {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

func (r *RPiDriver) ReadPin(pin int) (Level, error) {
	debug.GPIO("ReadPin", pin, nil)

	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.lookup(pin, Input)
	if err != nil {
		return Low, err
	}
	if p.Read() == rpio.High {
		return High, nil
	}
	return Low, nil
}

// Close drives every output low (pump and vibration relays off), returns
// all pins to input and unmaps GPIO memory.
func (r *RPiDriver) Close() error {
	debug.Trace("GPIO Close (real driver)")

	r.mu.Lock()
	defer r.mu.Unlock()
	for pin, p := range r.pins {
		if r.outputs[pin] {
			p.Low()
		}
		debug.Verbose("Resetting pin %d to input", pin)
		p.Input()
	}
	return rpio.Close()
}
