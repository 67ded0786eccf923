package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// StepperConfig holds the configuration for a stepper motor.
type StepperConfig struct {
	StepPin       int `yaml:"step_pin"`
	DirPin        int `yaml:"dir_pin"`
	EnablePin     int `yaml:"enable_pin"` // A4988 ENABLE pin (BCM). 0 = not used. Active LOW.
	StepsPerRev   int `yaml:"steps_per_rev"`
	Microstepping int `yaml:"microstepping"`
}

// WasherConfig describes the cleaning relays.
type WasherConfig struct {
	PumpPin      int `yaml:"pump_pin"`      // relay for the water pump (BCM)
	VibrationPin int `yaml:"vibration_pin"` // relay for the vibration motor (BCM)
	CycleMs      int `yaml:"cycle_ms"`      // how long pump and vibration run per cleaning
}

// ReservoirConfig describes the water tank.
type ReservoirConfig struct {
	InitialLiters       float64 `yaml:"initial_liters"`
	UsagePerCycleLiters float64 `yaml:"usage_per_cycle_liters"`
}

// ThresholdsConfig holds the decision thresholds of the state machine.
type ThresholdsConfig struct {
	DustPct             float64 `yaml:"dust_pct"`              // dust above this triggers cleaning
	WindSpeedMs         float64 `yaml:"wind_speed_ms"`         // wind above this is enough to blow dust off
	WindCleanMaxS       int     `yaml:"wind_clean_max_s"`      // give up on wind cleaning after this long
	BaseHysteresisDeg   float64 `yaml:"base_hysteresis_deg"`   // minimum azimuth change before the base rotates
	CircularAzimuthDiff bool    `yaml:"circular_azimuth_diff"` // measure azimuth change the short way round 0°/360°
}

// SiteConfig locates the panel for sun position calculation.
type SiteConfig struct {
	Latitude        float64 `yaml:"latitude"`          // decimal degrees, north positive
	Longitude       float64 `yaml:"longitude"`         // decimal degrees, east positive
	MinElevationDeg float64 `yaml:"min_elevation_deg"` // below this the sun is not tracked
}

// MQTTConfig configures the remote override/telemetry link.
type MQTTConfig struct {
	Enabled            bool   `yaml:"enabled"`
	Broker             string `yaml:"broker"` // e.g. "tcp://localhost:1883"
	ClientID           string `yaml:"client_id"`
	OverrideTopic      string `yaml:"override_topic"`
	StateTopic         string `yaml:"state_topic"`
	LogTopic           string `yaml:"log_topic"`
	WindSpeedTopic     string `yaml:"wind_speed_topic"`     // optional sensor feed
	WindDirectionTopic string `yaml:"wind_direction_topic"` // optional sensor feed
	DustTopic          string `yaml:"dust_topic"`           // optional sensor feed
}

// KafkaConfig configures the event stream sink.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// InfluxConfig configures the time-series history sink.
type InfluxConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`
}

// DefaultsConfig contains generic runtime parameters.
type DefaultsConfig struct {
	TickMs             int    `yaml:"tick_ms"`               // delay between two logic steps
	MoveSpeedMs        int    `yaml:"move_speed_ms"`         // delay between motor steps
	DebugLevel         int    `yaml:"debug_level"`           // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO           bool   `yaml:"mock_gpio"`             // use mock GPIO (true=dev/test, false=real Raspberry Pi)
	SimulateSensors    bool   `yaml:"simulate_sensors"`      // random sensor readings instead of the MQTT feed
	SnapshotPath       string `yaml:"snapshot_path"`         // state snapshot file; empty disables persistence
	OverrideRatePerMin int    `yaml:"override_rate_per_min"` // accepted POST /override per minute
}

// Config aggregates all application configuration.
type Config struct {
	BaseStepper StepperConfig    `yaml:"base_stepper"`
	TiltStepper StepperConfig    `yaml:"tilt_stepper"`
	Washer      WasherConfig     `yaml:"washer"`
	Reservoir   ReservoirConfig  `yaml:"reservoir"`
	Thresholds  ThresholdsConfig `yaml:"thresholds"`
	Site        SiteConfig       `yaml:"site"`
	MQTT        MQTTConfig       `yaml:"mqtt"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	Influx      InfluxConfig     `yaml:"influx"`
	Defaults    DefaultsConfig   `yaml:"defaults"`
}

// ValidateConfigPath accepts only *.yaml files directly inside a
// directory named "configs", after cleaning the path.
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	clean := filepath.Clean(path)
	for _, part := range strings.Split(filepath.ToSlash(clean), "/") {
		if part == ".." {
			return fmt.Errorf("config path %q must not traverse parent directories", path)
		}
	}
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path %q must have .yaml extension", path)
	}
	if filepath.Base(filepath.Dir(clean)) != "configs" {
		return fmt.Errorf("config path %q must be inside a configs/ directory", path)
	}
	return nil
}

// MaxConfigFileBytes bounds the size of a configuration file.
const MaxConfigFileBytes = 1 << 20

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file %s is %d bytes, limit is %d", path, info.Size(), MaxConfigFileBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, fills defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := newConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// newConfig returns the defaults for values where zero is a legitimate
// setting (an empty reservoir, a zero threshold). Decoding over it keeps
// them only for keys the file leaves out.
func newConfig() Config {
	return Config{
		Reservoir: ReservoirConfig{
			InitialLiters:       2.0,
			UsagePerCycleLiters: 0.125,
		},
		Thresholds: ThresholdsConfig{
			DustPct:           20,
			WindSpeedMs:       15,
			BaseHysteresisDeg: 15,
		},
	}
}

// applyDefaults fills values for which zero means "not set".
func (c *Config) applyDefaults() {
	if c.Defaults.TickMs <= 0 {
		c.Defaults.TickMs = 2000 // 2s between logic steps
	}
	if c.Defaults.MoveSpeedMs <= 0 {
		c.Defaults.MoveSpeedMs = 2
	}
	if c.Defaults.OverrideRatePerMin <= 0 {
		c.Defaults.OverrideRatePerMin = 30
	}
	if c.Washer.CycleMs <= 0 {
		c.Washer.CycleMs = 3000 // let the water flow for 3s
	}
	if c.Thresholds.WindCleanMaxS <= 0 {
		c.Thresholds.WindCleanMaxS = 15 * 60
	}
	for _, s := range []*StepperConfig{&c.BaseStepper, &c.TiltStepper} {
		if s.StepsPerRev <= 0 {
			s.StepsPerRev = 200
		}
		if s.Microstepping <= 0 {
			s.Microstepping = 1
		}
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "solgo"
	}
	if c.MQTT.OverrideTopic == "" {
		c.MQTT.OverrideTopic = "solgo/override"
	}
	if c.MQTT.StateTopic == "" {
		c.MQTT.StateTopic = "solgo/systemState"
	}
	if c.MQTT.LogTopic == "" {
		c.MQTT.LogTopic = "solgo/logs"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "solgo.events"
	}
}

func (c *Config) validate() error {
	if c.Reservoir.InitialLiters < 0 {
		return fmt.Errorf("reservoir.initial_liters must be >= 0, got %.3f", c.Reservoir.InitialLiters)
	}
	if c.Reservoir.UsagePerCycleLiters <= 0 {
		return fmt.Errorf("reservoir.usage_per_cycle_liters must be > 0, got %.3f", c.Reservoir.UsagePerCycleLiters)
	}
	if c.Thresholds.WindSpeedMs < 0 {
		return fmt.Errorf("thresholds.wind_speed_ms must be >= 0, got %.2f", c.Thresholds.WindSpeedMs)
	}
	if c.Thresholds.BaseHysteresisDeg < 0 || c.Thresholds.BaseHysteresisDeg >= 180 {
		return fmt.Errorf("thresholds.base_hysteresis_deg must be in [0,180), got %.2f", c.Thresholds.BaseHysteresisDeg)
	}
	if math.Abs(c.Site.Latitude) > 90 {
		return fmt.Errorf("site.latitude must be between -90 and 90, got %.4f", c.Site.Latitude)
	}
	if math.Abs(c.Site.Longitude) > 180 {
		return fmt.Errorf("site.longitude must be between -180 and 180, got %.4f", c.Site.Longitude)
	}
	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	if !c.Defaults.MockGPIO {
		if c.BaseStepper.StepPin <= 0 || c.BaseStepper.DirPin <= 0 {
			return fmt.Errorf("base_stepper.step_pin and dir_pin are required with real GPIO")
		}
		if c.TiltStepper.StepPin <= 0 || c.TiltStepper.DirPin <= 0 {
			return fmt.Errorf("tilt_stepper.step_pin and dir_pin are required with real GPIO")
		}
		if c.Washer.PumpPin <= 0 || c.Washer.VibrationPin <= 0 {
			return fmt.Errorf("washer.pump_pin and vibration_pin are required with real GPIO")
		}
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if !c.Defaults.SimulateSensors && !c.MQTT.Enabled {
		return fmt.Errorf("sensor readings need either defaults.simulate_sensors or an enabled mqtt feed")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	if c.Influx.Enabled && (c.Influx.URL == "" || c.Influx.Bucket == "") {
		return fmt.Errorf("influx.url and influx.bucket are required when influx is enabled")
	}
	return nil
}

// Tick returns the delay between two logic steps.
func (c *Config) Tick() time.Duration {
	return time.Duration(c.Defaults.TickMs) * time.Millisecond
}

// MoveSpeed returns the duration between two motor steps.
func (c *Config) MoveSpeed() time.Duration {
	return time.Duration(c.Defaults.MoveSpeedMs) * time.Millisecond
}

// WashCycle returns how long pump and vibration run per cleaning.
func (c *Config) WashCycle() time.Duration {
	return time.Duration(c.Washer.CycleMs) * time.Millisecond
}

// WindCleanMax returns the longest wind cleaning attempt before falling back to water.
func (c *Config) WindCleanMax() time.Duration {
	return time.Duration(c.Thresholds.WindCleanMaxS) * time.Second
}
