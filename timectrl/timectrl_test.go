package timectrl

import (
	"math"
	"testing"
	"time"
)

func TestTimeControllerSetTime(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, 1, RealTime)

	newNow := start.Add(42 * time.Second)
	tc.SetTime(newNow)

	if got := tc.Now(); !got.Equal(newNow) {
		t.Fatalf("Now() = %v, want %v", got, newNow)
	}
}

func TestTimeControllerAdvanceAccumulates(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, 1, Manual)

	tc.Advance(2.5)
	got := tc.Advance(0.5)

	want := start.Add(3 * time.Second)
	if !got.Equal(want) {
		t.Fatalf("Advance returned %v, want %v", got, want)
	}
	if now := tc.Now(); !now.Equal(want) {
		t.Fatalf("Now() = %v, want %v", now, want)
	}
}

func TestTimeControllerNotifiesListeners(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, 1, Manual)

	var heard []time.Time
	tc.AddListener(func(now time.Time) { heard = append(heard, now) })

	tc.Advance(1)
	tc.SetTime(start.Add(time.Minute))

	if len(heard) != 2 {
		t.Fatalf("listener heard %d movements, want 2", len(heard))
	}
	if !heard[0].Equal(start.Add(time.Second)) {
		t.Errorf("first notification = %v, want %v", heard[0], start.Add(time.Second))
	}
	if !heard[1].Equal(start.Add(time.Minute)) {
		t.Errorf("jump notification = %v, want %v", heard[1], start.Add(time.Minute))
	}
}

func TestTimeControllerSimDelta(t *testing.T) {
	start := time.Now()
	cases := []struct {
		name string
		tc   *TimeController
		wall time.Duration
		want float64
	}{
		{"real time", NewTimeController(start, 1, RealTime), 16 * time.Millisecond, 0.016},
		{"accelerated", NewTimeController(start, 60, Accelerated), time.Second, 60},
		{"manual", NewTimeController(start, 60, Manual), time.Second, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.tc.SimDelta(tc.wall); got != tc.want {
				t.Fatalf("SimDelta(%v) = %v, want %v", tc.wall, got, tc.want)
			}
		})
	}
}

func TestTimeControllerScaleFactor(t *testing.T) {
	start := time.Now()
	if got := NewTimeController(start, 60, RealTime).ScaleFactor(); got != 1 {
		t.Errorf("RealTime ScaleFactor = %v, want 1", got)
	}
	if got := NewTimeController(start, 60, Accelerated).ScaleFactor(); got != 60 {
		t.Errorf("Accelerated ScaleFactor = %v, want 60", got)
	}
	if got := NewTimeController(start, 60, Manual).ScaleFactor(); got != 0 {
		t.Errorf("Manual ScaleFactor = %v, want 0", got)
	}
}

func TestTimeControllerScaleFallback(t *testing.T) {
	start := time.Now()
	for _, bad := range []float64{0, -3, math.NaN()} {
		if tc := NewTimeController(start, bad, Accelerated); tc.Scale != 1 {
			t.Errorf("scale %v accepted as %v, want fallback 1", bad, tc.Scale)
		}
	}
}
