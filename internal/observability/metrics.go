package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes controller and HTTP metrics. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	state        *prometheus.GaugeVec
	angle        *prometheus.GaugeVec
	waterLiters  prometheus.Gauge
	sensor       *prometheus.GaugeVec
	transitions  *prometheus.CounterVec
	overrides    *prometheus.CounterVec
	warnings     prometheus.Counter
	washCycles   prometheus.Counter
	tickDuration prometheus.Histogram

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "solgo_state",
			Help: "Current operational state (1 for the active state).",
		}, []string{"state"}),
		angle: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "solgo_actuator_angle_degrees",
			Help: "Logical actuator angle by axis.",
		}, []string{"axis"}),
		waterLiters: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "solgo_water_liters",
			Help: "Water left in the cleaning reservoir.",
		}),
		sensor: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "solgo_sensor_value",
			Help: "Last sensor reading by kind (wind_speed m/s, wind_direction degrees, dust percent).",
		}, []string{"kind"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solgo_state_transitions_total",
			Help: "State transitions by origin and destination.",
		}, []string{"from", "to"}),
		overrides: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solgo_overrides_total",
			Help: "Override commands consumed by the state machine.",
		}, []string{"command"}),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "solgo_warnings_total",
			Help: "Warnings emitted to the log sink.",
		}),
		washCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "solgo_wash_cycles_total",
			Help: "Water cleaning cycles run.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "solgo_tick_duration_seconds",
			Help:    "Histogram of logic tick durations.",
			Buckets: prometheus.DefBuckets,
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.state,
		m.angle,
		m.waterLiters,
		m.sensor,
		m.transitions,
		m.overrides,
		m.warnings,
		m.washCycles,
		m.tickDuration,
		m.httpRequestsTotal,
		m.httpDuration,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SetState marks name as the only active state.
func (m *Metrics) SetState(name string) {
	if m == nil {
		return
	}
	m.state.Reset()
	m.state.WithLabelValues(name).Set(1)
}

// Transition counts a state change.
func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// Position records the actuator angles.
func (m *Metrics) Position(base, tilt float64) {
	if m == nil {
		return
	}
	m.angle.WithLabelValues("base").Set(base)
	m.angle.WithLabelValues("tilt").Set(tilt)
}

// Water records the reservoir volume.
func (m *Metrics) Water(liters float64) {
	if m == nil {
		return
	}
	m.waterLiters.Set(liters)
}

// Sensors records a tick's readings.
func (m *Metrics) Sensors(windSpeed, windDirection, dust float64) {
	if m == nil {
		return
	}
	m.sensor.WithLabelValues("wind_speed").Set(windSpeed)
	m.sensor.WithLabelValues("wind_direction").Set(windDirection)
	m.sensor.WithLabelValues("dust").Set(dust)
}

// Override counts a consumed override command.
func (m *Metrics) Override(command string) {
	if m == nil {
		return
	}
	m.overrides.WithLabelValues(command).Inc()
}

func (m *Metrics) Warning() {
	if m == nil {
		return
	}
	m.warnings.Inc()
}

func (m *Metrics) WashCycle() {
	if m == nil {
		return
	}
	m.washCycles.Inc()
}

// Tick records how long one logic step took.
func (m *Metrics) Tick(d time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(d.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Flush keeps streaming handlers working behind the recorder.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// WrapHandler counts requests and their duration under route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}
