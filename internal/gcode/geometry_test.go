package gcode

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestArcHalfCircle(t *testing.T) {
	res := ParseLines([]string{"G0 X0 Y0", "G2 X10 Y0 I5 J0 F300"})
	want := math.Pi * 5
	if d := res.TotalDistance(); math.Abs(d-want) > 1e-6 {
		t.Errorf("half-circle length = %v, want %v", d, want)
	}

	// Consumed by the estimator as distance/F.
	wantMinutes := want / 300
	got := res.EstimatedRunTime()
	if diff := math.Abs(got.Minutes() - wantMinutes); diff > 1e-6 {
		t.Errorf("run time = %v min, want %v min", got.Minutes(), wantMinutes)
	}
}

func TestArcCounterClockwiseSweep(t *testing.T) {
	// Same half circle traversed counter-clockwise below the X axis.
	res := ParseLines([]string{"G0 X0 Y0", "G3 X10 Y0 I5 J0"})
	want := math.Pi * 5
	if d := res.TotalDistance(); math.Abs(d-want) > 1e-6 {
		t.Errorf("ccw half-circle length = %v, want %v", d, want)
	}
}

func TestArcHelical(t *testing.T) {
	res := ParseLines([]string{"G0 X0 Y0 Z0", "G2 X10 Y0 Z4 I5 J0"})
	arc2d := math.Pi * 5
	want := math.Hypot(arc2d, 4)
	if d := res.TotalDistance(); math.Abs(d-want) > 1e-6 {
		t.Errorf("helical length = %v, want %v", d, want)
	}
}

func TestArcDegenerateRadius(t *testing.T) {
	res := ParseLines([]string{"G0 X0 Y0", "G2 X0 Y1 I0.0001 J0"})
	if d := res.TotalDistance(); d != 0 {
		t.Errorf("sub-millimeter radius should yield zero length, got %v", d)
	}
}

func TestKOnlyArcFallsBackToLinear(t *testing.T) {
	res := ParseLines([]string{"G0 X0 Y0 Z0", "G2 X3 Y4 K2"})
	if d := res.TotalDistance(); math.Abs(d-5) > 1e-9 {
		t.Errorf("K-only arc should use linear distance 5, got %v", d)
	}
}

func TestEstimateModalFeedAndRapid(t *testing.T) {
	res := ParseLines([]string{
		"G0 X0 Y0",
		"G1 X100 Y0",      // no F yet: default 1000
		"G1 X100 Y100 F50", // modal update applies to this segment
		"G0 X0 Y0",        // rapid rate regardless of modal F
	})
	wantMinutes := 100.0/1000 + 100.0/50 + math.Hypot(100, 100)/RapidFeedRate
	got := res.EstimatedRunTime().Minutes()
	if math.Abs(got-wantMinutes) > 1e-9 {
		t.Errorf("run time = %v min, want %v min", got, wantMinutes)
	}
}

func TestEstimateRatesOverride(t *testing.T) {
	res := ParseLines([]string{"G0 X0 Y0", "G0 X100 Y0"})
	got := res.EstimateRunTime(Rates{Rapid: 10000}).Minutes()
	if math.Abs(got-0.01) > 1e-9 {
		t.Errorf("run time with overridden rapid rate = %v min, want 0.01", got)
	}
}

func TestDistanceBreakdown(t *testing.T) {
	res := ParseLines([]string{
		"G0 X0 Y0",
		"G0 X10 Y0",
		"G1 X10 Y5",
	})
	if d := res.RapidDistance(); math.Abs(d-10) > 1e-9 {
		t.Errorf("rapid distance = %v, want 10", d)
	}
	if d := res.CuttingDistance(); math.Abs(d-5) > 1e-9 {
		t.Errorf("cutting distance = %v, want 5", d)
	}
	if d := res.TotalDistance(); math.Abs(d-15) > 1e-9 {
		t.Errorf("total distance = %v, want 15", d)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{42500 * time.Millisecond, "42.5s"},
		{2*time.Minute + 34*time.Second, "2m 34s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h 2m 3s"},
		{500 * time.Millisecond, "0.5s"},
	}
	for _, c := range cases {
		if got := FormatDuration(c.d); got != c.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}

func TestSummary(t *testing.T) {
	res := ParseLines([]string{"G0 X0 Y0 Z5", "G1 X10 Y0 F500", "G1 X10 Y0"})
	s := res.Summary()
	for _, want := range []string{
		"Motion commands: 2",
		"Rapid (G0):    1",
		"Linear (G1):   1",
		"X: 0.000 to 10.000 (width 10.000)",
		"Errors: 1",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("summary missing %q:\n%s", want, s)
		}
	}
}

func TestSummaryNoMotion(t *testing.T) {
	res := ParseLines([]string{"G21"})
	if !strings.Contains(res.Summary(), "no motion commands") {
		t.Errorf("summary should flag missing motion:\n%s", res.Summary())
	}
}
