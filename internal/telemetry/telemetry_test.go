package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/segmentio/kafka-go"
)

type recordingSink struct {
	states []string
	logs   []string
	err    error
}

func (r *recordingSink) PublishState(_ context.Context, st Status) error {
	r.states = append(r.states, st.CurrentState)
	return r.err
}

func (r *recordingSink) Log(_ context.Context, msg string) error {
	r.logs = append(r.logs, msg)
	return r.err
}

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestFanout_DeliversToAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	a := &recordingSink{}
	b := &recordingSink{err: boom}
	c := &recordingSink{}
	f := Fanout{a, b, c}

	err := f.PublishState(context.Background(), Status{Snapshot: Snapshot{CurrentState: "IDLE"}})
	if !errors.Is(err, boom) {
		t.Errorf("PublishState error = %v, want boom", err)
	}
	if err := f.Log(context.Background(), "hello"); !errors.Is(err, boom) {
		t.Errorf("Log error = %v, want boom", err)
	}
	for i, s := range []*recordingSink{a, b, c} {
		if len(s.states) != 1 || len(s.logs) != 1 {
			t.Errorf("sink %d got states=%v logs=%v", i, s.states, s.logs)
		}
	}
}

func TestSnapshot_Equal(t *testing.T) {
	cases := []struct {
		name string
		a, b Snapshot
		want bool
	}{
		{"same_no_timer", Snapshot{CurrentState: "SUN_TRACKING"}, Snapshot{CurrentState: "SUN_TRACKING"}, true},
		{"different_state", Snapshot{CurrentState: "SUN_TRACKING"}, Snapshot{CurrentState: "IDLE"}, false},
		{"timer_vs_none", Snapshot{CurrentState: "CLEANING_WIND", WindCleanStartTime: ts("2025-01-01T10:00:00Z")}, Snapshot{CurrentState: "CLEANING_WIND"}, false},
		{"same_instant_other_zone", Snapshot{CurrentState: "CLEANING_WIND", WindCleanStartTime: ts("2025-01-01T10:00:00Z")}, Snapshot{CurrentState: "CLEANING_WIND", WindCleanStartTime: ts("2025-01-01T11:00:00+01:00")}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Equal(tc.b); got != tc.want {
				t.Errorf("Equal() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSnapshot_JSONFieldNames(t *testing.T) {
	b, err := json.Marshal(Snapshot{CurrentState: "IDLE"})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"currentState":"IDLE","windCleanStartTime":null}` {
		t.Errorf("json = %s", b)
	}
}

func TestFileSink_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	sink := NewFileSink(path)

	want := Snapshot{CurrentState: "CLEANING_WIND", WindCleanStartTime: ts("2025-03-01T12:30:00Z")}
	if err := sink.PublishState(context.Background(), Status{Snapshot: want}); err != nil {
		t.Fatalf("PublishState: %v", err)
	}

	got, ok, err := LoadSnapshot(path)
	if err != nil || !ok {
		t.Fatalf("LoadSnapshot: ok=%v err=%v", ok, err)
	}
	if !got.Equal(want) {
		t.Errorf("loaded %+v, want %+v", got, want)
	}
}

func TestFileSink_WritesOnlyOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	sink := NewFileSink(path)
	ctx := context.Background()

	if err := sink.PublishState(ctx, Status{Snapshot: Snapshot{CurrentState: "SUN_TRACKING"}}); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := sink.PublishState(ctx, Status{Snapshot: Snapshot{CurrentState: "SUN_TRACKING"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Error("unchanged snapshot should not be rewritten")
	}
	if err := sink.PublishState(ctx, Status{Snapshot: Snapshot{CurrentState: "IDLE"}}); err != nil {
		t.Fatal(err)
	}
	got, ok, err := LoadSnapshot(path)
	if err != nil || !ok || got.CurrentState != "IDLE" {
		t.Errorf("LoadSnapshot = %+v ok=%v err=%v", got, ok, err)
	}
}

func TestLoadSnapshot_Missing(t *testing.T) {
	_, ok, err := LoadSnapshot(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil || ok {
		t.Errorf("LoadSnapshot(missing) ok=%v err=%v, want false nil", ok, err)
	}
}

func TestLoadSnapshot_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	if err := os.WriteFile(path, []byte("currentState: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadSnapshot(path); err == nil {
		t.Error("expected error for corrupt snapshot")
	}
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaSink_StateChangesAndLogs(t *testing.T) {
	w := &fakeWriter{}
	k := newKafkaSink(w, "run-1")
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	tracking := Status{Snapshot: Snapshot{CurrentState: "SUN_TRACKING"}, Time: now, WaterLiters: 2}
	for i := 0; i < 3; i++ {
		if err := k.PublishState(ctx, tracking); err != nil {
			t.Fatal(err)
		}
	}
	if err := k.PublishState(ctx, Status{Snapshot: Snapshot{CurrentState: "IDLE"}, Time: now}); err != nil {
		t.Fatal(err)
	}
	if err := k.Log(ctx, "User override: Stopped all actuators."); err != nil {
		t.Fatal(err)
	}

	if len(w.msgs) != 3 {
		t.Fatalf("messages = %d, want 3 (2 state changes + 1 log)", len(w.msgs))
	}
	var got []string
	for _, m := range w.msgs {
		if string(m.Key) != "run-1" {
			t.Errorf("key = %q, want run-1", m.Key)
		}
		var ev Event
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.ID == "" || ev.RunID != "run-1" {
			t.Errorf("event ids = %q/%q", ev.ID, ev.RunID)
		}
		got = append(got, ev.Type+":"+ev.CurrentState+ev.Message)
	}
	want := []string{"state:SUN_TRACKING", "state:IDLE", "log:User override: Stopped all actuators."}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestKafkaSink_FailedStateIsRetried(t *testing.T) {
	w := &fakeWriter{err: errors.New("no leader")}
	k := newKafkaSink(w, "run-1")
	ctx := context.Background()
	st := Status{Snapshot: Snapshot{CurrentState: "IDLE"}}

	if err := k.PublishState(ctx, st); err == nil {
		t.Fatal("expected error")
	}
	w.err = nil
	if err := k.PublishState(ctx, st); err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 1 {
		t.Errorf("messages = %d, want the failed state resent", len(w.msgs))
	}
}

func TestNewKafkaWriter_FlushesPromptly(t *testing.T) {
	w := newKafkaWriter([]string{"localhost:9092"}, "solgo.events")
	if w.BatchTimeout <= 0 || w.BatchTimeout > 10*time.Millisecond {
		t.Errorf("BatchTimeout = %v, want a few milliseconds", w.BatchTimeout)
	}
	if w.Topic != "solgo.events" {
		t.Errorf("Topic = %q", w.Topic)
	}
	if k := newKafkaSink(w, "run-1"); k.timeout > time.Second {
		t.Errorf("write timeout = %v, want under a second", k.timeout)
	}
}

type recordedPoint struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]interface{}
}

func TestInfluxSink_Points(t *testing.T) {
	var points []recordedPoint
	s := &InfluxSink{host: "panel-1"}
	s.point = func(m string, tags map[string]string, fields map[string]interface{}, _ time.Time) {
		points = append(points, recordedPoint{m, tags, fields})
	}
	start := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	err := s.PublishState(context.Background(), Status{
		Snapshot:    Snapshot{CurrentState: "CLEANING_WIND", WindCleanStartTime: &start},
		Time:        start.Add(90 * time.Second),
		BaseAngle:   270,
		WaterLiters: 1.5,
		WindSpeed:   18,
		Dust:        30,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Log(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}

	want := []recordedPoint{
		{
			Measurement: MeasurementStatus,
			Tags:        map[string]string{"host": "panel-1", "state": "CLEANING_WIND"},
			Fields: map[string]interface{}{
				"base_angle": 270.0, "tilt_angle": 0.0, "water_liters": 1.5,
				"wind_speed": 18.0, "wind_direction": 0.0, "dust": 30.0, "wind_clean_s": 90.0,
			},
		},
		{
			Measurement: MeasurementLog,
			Tags:        map[string]string{"host": "panel-1"},
			Fields:      map[string]interface{}{"message": "hello"},
		},
	}
	if diff := cmp.Diff(want, points); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close without client: %v", err)
	}
}
