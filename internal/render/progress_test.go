package render

import (
	"math"
	"strings"
	"testing"
)

func collectSnapshots(t *testing.T, input string, duration float64) []Snapshot {
	t.Helper()
	var got []Snapshot
	err := readProgressStream(strings.NewReader(input), "job-1", duration, func(s Snapshot) {
		got = append(got, s)
	})
	if err != nil {
		t.Fatalf("readProgressStream: %v", err)
	}
	return got
}

func TestProgressStreamEmitsOnSentinel(t *testing.T) {
	input := strings.Join([]string{
		"frame=10",
		"fps=25.0",
		"bitrate=1200.5kbits/s",
		"total_size=4096",
		"out_time_ms=2000000",
		"speed=2x",
		"progress=continue",
		"frame=20",
		"out_time_ms=4000000",
		"progress=end",
	}, "\n") + "\n"

	got := collectSnapshots(t, input, 8)
	if len(got) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(got))
	}

	first := got[0]
	if first.JobID != "job-1" || first.Frame != 10 || first.FPS != 25 {
		t.Errorf("first snapshot = %+v", first)
	}
	if first.Bitrate != "1200.5kbits/s" || first.TotalSize != "4096" {
		t.Errorf("raw strings mangled: %+v", first)
	}
	if first.TimeSeconds != 2 {
		t.Errorf("TimeSeconds = %v, want 2 (out_time_ms is microseconds)", first.TimeSeconds)
	}
	if first.Speed != 2 {
		t.Errorf("Speed = %v, want 2 (trailing x stripped)", first.Speed)
	}
	if first.Percent != 25 {
		t.Errorf("Percent = %v, want 25", first.Percent)
	}
	if first.ETASeconds != 3 {
		t.Errorf("ETASeconds = %v, want (8-2)/2 = 3", first.ETASeconds)
	}

	// Values persist across blocks; only the changed keys move.
	second := got[1]
	if second.Frame != 20 || second.FPS != 25 || second.Speed != 2 {
		t.Errorf("second snapshot lost carried values: %+v", second)
	}
	if second.TimeSeconds != 4 || second.Percent != 50 || second.ETASeconds != 2 {
		t.Errorf("second snapshot math: %+v", second)
	}
}

func TestProgressStreamMalformedValuesRetainLastGood(t *testing.T) {
	input := strings.Join([]string{
		"frame=10",
		"speed=1.5x",
		"progress=continue",
		"frame=banana",
		"speed=N/A",
		"not a key value line",
		"progress=continue",
	}, "\n") + "\n"

	got := collectSnapshots(t, input, 0)
	if len(got) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(got))
	}
	if got[1].Frame != 10 || got[1].Speed != 1.5 {
		t.Errorf("malformed values overwrote last good: %+v", got[1])
	}
}

func TestProgressStreamUnknownDuration(t *testing.T) {
	input := "out_time_ms=5000000\nspeed=2x\nprogress=end\n"
	got := collectSnapshots(t, input, 0)
	if len(got) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(got))
	}
	if got[0].Percent != 0 {
		t.Errorf("Percent = %v, want 0 for unknown duration", got[0].Percent)
	}
	if got[0].ETASeconds != 0 {
		t.Errorf("ETASeconds = %v, want 0 for unknown duration", got[0].ETASeconds)
	}
}

func TestProgressPercentClampsAtHundred(t *testing.T) {
	if got := progressPercent(12, 10); got != 100 {
		t.Errorf("progressPercent(12, 10) = %v, want 100", got)
	}
	if got := progressPercent(2.5, 10); got != 25 {
		t.Errorf("progressPercent(2.5, 10) = %v, want 25", got)
	}
	if got := progressPercent(5, 0); got != 0 {
		t.Errorf("progressPercent(5, 0) = %v, want 0", got)
	}
}

func TestProgressETAFollowsSourceFormula(t *testing.T) {
	if got := progressETA(2, 10, 2); got != 4 {
		t.Errorf("progressETA(2, 10, 2) = %v, want 4", got)
	}
	if got := progressETA(2, 10, 0); got != 0 {
		t.Errorf("progressETA with stalled speed = %v, want 0", got)
	}
	if got := progressETA(2, 0, 2); got != 0 {
		t.Errorf("progressETA with unknown duration = %v, want 0", got)
	}
	// Past the estimate the value goes negative; no clamp.
	if got := progressETA(12, 10, 2); math.Abs(got-(-1)) > 1e-9 {
		t.Errorf("progressETA(12, 10, 2) = %v, want -1", got)
	}
}
