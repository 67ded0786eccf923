package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cjeanneret/SolGo/internal/config"
	"github.com/cjeanneret/SolGo/internal/debug"
	"github.com/cjeanneret/SolGo/internal/hw/gpio"
	"github.com/cjeanneret/SolGo/internal/hw/sensors"
	"github.com/cjeanneret/SolGo/internal/hw/stepper"
	"github.com/cjeanneret/SolGo/internal/hw/washer"
	"github.com/cjeanneret/SolGo/internal/logic/cleaning"
	"github.com/cjeanneret/SolGo/internal/logic/control"
	"github.com/cjeanneret/SolGo/internal/logic/geometry"
	"github.com/cjeanneret/SolGo/internal/logic/motion"
	"github.com/cjeanneret/SolGo/internal/logic/sun"
	"github.com/cjeanneret/SolGo/internal/mqttlink"
	"github.com/cjeanneret/SolGo/internal/observability"
	"github.com/cjeanneret/SolGo/internal/telemetry"
	"github.com/cjeanneret/SolGo/internal/web"
)

// hardware is the actuator and washer pair chosen for this run.
type hardware struct {
	actuator motion.Hardware
	washer   washer.Washer
	gpio     gpio.Driver // nil when simulated
}

func (h *hardware) Close() error {
	if h.gpio == nil {
		return nil
	}
	return h.gpio.Close()
}

// newHardware returns logging hardware when GPIO is mocked, and
// steppers plus relays on the Raspberry Pi otherwise.
func newHardware(cfg *config.Config) (*hardware, error) {
	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
	if cfg.Defaults.MockGPIO {
		return &hardware{actuator: motion.LogHardware{}, washer: washer.LogWasher{}}, nil
	}

	drv, err := gpio.NewDriver(false)
	if err != nil {
		return nil, fmt.Errorf("init GPIO: %w", err)
	}
	stepDelay := cfg.MoveSpeed() / 2
	base := stepper.NewStepper(drv, stepperConfig("base", cfg.BaseStepper, stepDelay))
	debug.PrintStruct("Base stepper config", cfg.BaseStepper)
	tilt := stepper.NewStepper(drv, stepperConfig("tilt", cfg.TiltStepper, stepDelay))
	debug.PrintStruct("Tilt stepper config", cfg.TiltStepper)
	debug.Value("Pump pin", cfg.Washer.PumpPin)
	debug.Value("Vibration pin", cfg.Washer.VibrationPin)

	return &hardware{
		actuator: motion.NewStepperHardware(base, tilt, geometry.NewStepsCalculator(cfg)),
		washer:   washer.NewGPIOWasher(drv, cfg.Washer.PumpPin, cfg.Washer.VibrationPin),
		gpio:     drv,
	}, nil
}

func stepperConfig(name string, c config.StepperConfig, delay time.Duration) stepper.Config {
	return stepper.Config{
		Name:          name,
		StepPin:       c.StepPin,
		DirPin:        c.DirPin,
		EnablePin:     c.EnablePin,
		StepsPerRev:   c.StepsPerRev,
		Microstepping: c.Microstepping,
		StepDelay:     delay,
	}
}

// newSensors returns the sensor source and, when readings come from
// MQTT, the feed the link writes into.
func newSensors(cfg *config.Config) (sensors.Sensors, *sensors.Feed) {
	if cfg.Defaults.SimulateSensors {
		debug.Info("Using simulated sensors")
		return sensors.NewSimulated(time.Now().UnixNano()), nil
	}
	feed := sensors.NewFeed()
	return feed, feed
}

// sinkSet is the telemetry fan-out plus the sinks that need closing.
type sinkSet struct {
	telemetry.Fanout
	closers []func() error
}

func (s *sinkSet) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// newSinks assembles every configured telemetry destination. The local
// log is always part of it; link and hub may be nil.
func newSinks(cfg *config.Config, runID string, link *mqttlink.Link, hub *web.StateHub) (*sinkSet, error) {
	s := &sinkSet{Fanout: telemetry.Fanout{telemetry.LogSink{}}}
	if cfg.Defaults.SnapshotPath != "" {
		s.Fanout = append(s.Fanout, telemetry.NewFileSink(cfg.Defaults.SnapshotPath))
	}
	if link != nil {
		s.Fanout = append(s.Fanout, link)
	}
	if hub != nil {
		s.Fanout = append(s.Fanout, hub)
	}
	if cfg.Kafka.Enabled {
		k := telemetry.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, runID)
		s.Fanout = append(s.Fanout, k)
		s.closers = append(s.closers, k.Close)
	}
	if cfg.Influx.Enabled {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("hostname for influx tag: %w", err)
		}
		in := telemetry.NewInfluxSink(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket, host)
		s.Fanout = append(s.Fanout, in)
		s.closers = append(s.closers, in.Close)
	}
	debug.Value("Telemetry sinks", len(s.Fanout))
	return s, nil
}

func thresholds(cfg *config.Config) control.Thresholds {
	return control.Thresholds{
		DustPct:      cfg.Thresholds.DustPct,
		WindSpeedMs:  cfg.Thresholds.WindSpeedMs,
		WindCleanMax: cfg.WindCleanMax(),
	}
}

func newDeps(cfg *config.Config, hw *hardware, sens sensors.Sensors, sink telemetry.Sink, metrics *observability.Metrics) control.Deps {
	return control.Deps{
		Sensors:   sens,
		Actuator:  motion.NewController(hw.actuator),
		Resolver:  geometry.NewResolver(cfg.Thresholds.BaseHysteresisDeg, cfg.Thresholds.CircularAzimuthDiff),
		Reservoir: cleaning.NewReservoir(cfg.Reservoir.InitialLiters, cfg.Reservoir.UsagePerCycleLiters),
		Washer:    hw.washer,
		WashCycle: cfg.WashCycle(),
		Target:    sun.NewTracker(cfg.Site.Latitude, cfg.Site.Longitude, cfg.Site.MinElevationDeg),
		Sink:      sink,
		Metrics:   metrics,
	}
}

// restoreSnapshot resumes the machine from path when a snapshot exists.
func restoreSnapshot(m *control.Machine, path string) error {
	if path == "" {
		return nil
	}
	snap, ok, err := telemetry.LoadSnapshot(path)
	if err != nil || !ok {
		return err
	}
	return m.Restore(snap)
}
