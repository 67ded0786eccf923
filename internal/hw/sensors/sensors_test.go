package sensors

import (
	"math"
	"testing"
)

func TestSimulated_Ranges(t *testing.T) {
	s := NewSimulated(42)
	prev := 0.0
	for i := 0; i < 1000; i++ {
		if v := s.WindSpeed(); v < 0 || v > SimWindSpeedMax {
			t.Fatalf("wind speed %v out of [0,%v]", v, SimWindSpeedMax)
		}
		if v := s.DustPercentage(); v < 0 || v > SimDustMax {
			t.Fatalf("dust %v out of [0,%v]", v, SimDustMax)
		}
		d := s.WindDirection()
		if d < 0 || d >= 360 {
			t.Fatalf("direction %v out of [0,360)", d)
		}
		step := math.Abs(d - prev)
		if step > 180 {
			step = 360 - step
		}
		if step > SimDirectionDrift+1e-9 {
			t.Fatalf("direction jumped %v° (from %v to %v), max drift %v", step, prev, d, SimDirectionDrift)
		}
		prev = d
	}
}

func TestSimulated_Deterministic(t *testing.T) {
	a, b := NewSimulated(7), NewSimulated(7)
	for i := 0; i < 10; i++ {
		if a.WindSpeed() != b.WindSpeed() {
			t.Fatal("same seed should produce same readings")
		}
	}
}

func TestDustFromPower(t *testing.T) {
	cases := []struct {
		name             string
		actual, expected float64
		want             float64
	}{
		{"sixth_missing", 250, 300, 100.0 / 6},
		{"clean", 300, 300, 0},
		{"over_expected", 320, 300, 0},
		{"no_output", 0, 300, 100},
		{"night", 0, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DustFromPower(tc.actual, tc.expected)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("DustFromPower(%v, %v) = %v, want %v", tc.actual, tc.expected, got, tc.want)
			}
		})
	}
}

func TestFeed_LatestValues(t *testing.T) {
	f := NewFeed()
	if f.WindSpeed() != 0 || f.DustPercentage() != 0 || !f.Updated().IsZero() {
		t.Fatal("new feed should read zero and never-updated")
	}

	f.SetWindSpeed(12.5)
	f.SetWindDirection(-90)
	f.SetDustPercentage(33)

	if f.WindSpeed() != 12.5 {
		t.Errorf("WindSpeed() = %v, want 12.5", f.WindSpeed())
	}
	if f.WindDirection() != 270 {
		t.Errorf("WindDirection() = %v, want 270", f.WindDirection())
	}
	if f.DustPercentage() != 33 {
		t.Errorf("DustPercentage() = %v, want 33", f.DustPercentage())
	}
	if f.Updated().IsZero() {
		t.Error("Updated() should be set")
	}
}

func TestFeed_IgnoresInvalid(t *testing.T) {
	f := NewFeed()
	f.SetWindSpeed(5)
	f.SetWindSpeed(-1)
	f.SetWindSpeed(math.NaN())
	f.SetDustPercentage(math.Inf(1))

	if f.WindSpeed() != 5 {
		t.Errorf("WindSpeed() = %v, want 5 (invalid updates ignored)", f.WindSpeed())
	}
	if f.DustPercentage() != 0 {
		t.Errorf("DustPercentage() = %v, want 0", f.DustPercentage())
	}
}

func TestImplementations(t *testing.T) {
	var _ Sensors = NewSimulated(1)
	var _ Sensors = NewFeed()
}
