package telemetry

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"

	"github.com/cjeanneret/SolGo/internal/debug"
)

// Influx measurements.
const (
	MeasurementStatus = "solgo.status"
	MeasurementLog    = "solgo.log"
)

type pointFunc func(measurement string, tags map[string]string, fields map[string]interface{}, ts time.Time)

// InfluxSink records one point per tick, for history dashboards.
// Writes are asynchronous; failures surface on the client's error
// channel and are logged from there.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteApi
	point    pointFunc
	host     string
}

// NewInfluxSink connects a non-blocking writer to org/bucket at url.
func NewInfluxSink(url, token, org, bucket, host string) *InfluxSink {
	client := influxdb2.NewClient(url, token)
	writeAPI := client.WriteApi(org, bucket)
	go func() {
		for err := range writeAPI.Errors() {
			debug.Error(err)
		}
	}()
	s := &InfluxSink{client: client, writeAPI: writeAPI, host: host}
	s.point = func(m string, tags map[string]string, fields map[string]interface{}, ts time.Time) {
		writeAPI.WritePoint(influxdb2.NewPoint(m, tags, fields, ts))
	}
	return s
}

func (s *InfluxSink) PublishState(_ context.Context, st Status) error {
	fields := map[string]interface{}{
		"base_angle":     st.BaseAngle,
		"tilt_angle":     st.TiltAngle,
		"water_liters":   st.WaterLiters,
		"wind_speed":     st.WindSpeed,
		"wind_direction": st.WindDirection,
		"dust":           st.Dust,
	}
	if st.WindCleanStartTime != nil {
		fields["wind_clean_s"] = st.Time.Sub(*st.WindCleanStartTime).Seconds()
	}
	s.point(MeasurementStatus, map[string]string{"host": s.host, "state": st.CurrentState}, fields, st.Time)
	return nil
}

func (s *InfluxSink) Log(_ context.Context, msg string) error {
	s.point(MeasurementLog, map[string]string{"host": s.host}, map[string]interface{}{"message": msg}, time.Now())
	return nil
}

// Close flushes pending points and closes the client.
func (s *InfluxSink) Close() error {
	if s.writeAPI != nil {
		s.writeAPI.Flush()
		s.writeAPI.Close()
	}
	if s.client != nil {
		s.client.Close()
	}
	return nil
}
