package washer

import (
	"github.com/cjeanneret/SolGo/internal/debug"
	"github.com/cjeanneret/SolGo/internal/hw/gpio"
)

// GPIOWasher switches pump and vibration through relay boards on two
// GPIO lines. Relays are active HIGH: HIGH energises the coil.
type GPIOWasher struct {
	gpio         gpio.Driver
	pumpPin      int
	vibrationPin int
}

// NewGPIOWasher configures both pins as outputs and makes sure the
// relays start released.
func NewGPIOWasher(g gpio.Driver, pumpPin, vibrationPin int) *GPIOWasher {
	_ = g.SetupPin(pumpPin, gpio.Output)
	_ = g.SetupPin(vibrationPin, gpio.Output)

	_ = g.WritePin(pumpPin, gpio.Low)
	_ = g.WritePin(vibrationPin, gpio.Low)

	return &GPIOWasher{
		gpio:         g,
		pumpPin:      pumpPin,
		vibrationPin: vibrationPin,
	}
}

// SetPump energises or releases the pump relay.
func (w *GPIOWasher) SetPump(on bool) error {
	debug.Verbose("Washer: pump %s (pin %d)", onOff(on), w.pumpPin)
	return w.gpio.WritePin(w.pumpPin, gpio.Level(on))
}

// SetVibration energises or releases the vibration motor relay.
func (w *GPIOWasher) SetVibration(on bool) error {
	debug.Verbose("Washer: vibration %s (pin %d)", onOff(on), w.vibrationPin)
	return w.gpio.WritePin(w.vibrationPin, gpio.Level(on))
}
