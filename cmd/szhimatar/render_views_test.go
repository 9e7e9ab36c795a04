package main

import (
	"strings"
	"testing"
	"time"

	"github.com/sharkye1/Szhimatar2/internal/ipc"
	"github.com/sharkye1/Szhimatar2/internal/logging"
	"github.com/sharkye1/Szhimatar2/internal/stats"
)

func TestShortJobID(t *testing.T) {
	if got := shortJobID("0f4c2a1d-9b7e-4c8a-8f21-aaaaaaaaaaaa"); got != "0f4c2a1d" {
		t.Fatalf("shortJobID = %q", got)
	}
	if got := shortJobID("  abc  "); got != "abc" {
		t.Fatalf("shortJobID trim = %q", got)
	}
}

func TestFormatSeconds(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "-"},
		{-5, "-"},
		{42, "42s"},
		{120, "2m00s"},
		{125.4, "2m05s"},
		{3720, "1h02m00s"},
	}
	for _, tc := range cases {
		if got := formatSeconds(tc.in); got != tc.want {
			t.Fatalf("formatSeconds(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatSpeedAndFPS(t *testing.T) {
	if got := formatSpeed(2.5); got != "2.50x" {
		t.Fatalf("formatSpeed = %q", got)
	}
	if got := formatSpeed(0); got != "-" {
		t.Fatalf("formatSpeed zero = %q", got)
	}
	if got := formatFPS(23.976); got != "24.0" {
		t.Fatalf("formatFPS = %q", got)
	}
	if got := formatFPS(-1); got != "-" {
		t.Fatalf("formatFPS negative = %q", got)
	}
}

func TestFormatByteSize(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{2097152, "2.0 MiB"},
	}
	for _, tc := range cases {
		if got := formatByteSize(tc.in); got != tc.want {
			t.Fatalf("formatByteSize(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildStatsRows(t *testing.T) {
	if rows := buildStatsRows(nil); rows != nil {
		t.Fatalf("expected nil rows for nil summary")
	}
	if rows := buildStatsRows(&stats.Summary{}); rows != nil {
		t.Fatalf("expected nil rows for empty summary")
	}
	rows := buildStatsRows(&stats.Summary{Renders: 3, Succeeded: 2, Failed: 1})
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	if rows[0][0] != "Completed" || rows[0][1] != "2" {
		t.Fatalf("unexpected completed row: %v", rows[0])
	}
	if rows[3][0] != "Total" || rows[3][1] != "3" {
		t.Fatalf("unexpected total row: %v", rows[3])
	}
}

func TestFormatLogEvent(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	evt := ipc.LogEvent{
		Timestamp: ts,
		Level:     "warn",
		Component: "render",
		JobID:     "0f4c2a1d-9b7e-4c8a-8f21-aaaaaaaaaaaa",
		Message:   "duration probe failed",
		Details: []logging.DetailField{
			{Label: "Input", Value: "/media/movie.mkv"},
			{Label: "", Value: "ignored"},
		},
	}
	got := formatLogEvent(evt)
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), got)
	}
	if !strings.Contains(lines[0], "WARN [render] job 0f4c2a1d - duration probe failed") {
		t.Fatalf("unexpected first line: %q", lines[0])
	}
	if lines[1] != "    - Input: /media/movie.mkv" {
		t.Fatalf("unexpected detail line: %q", lines[1])
	}

	plain := formatLogEvent(ipc.LogEvent{Timestamp: ts, Message: "hello"})
	if !strings.Contains(plain, "INFO") || !strings.Contains(plain, "hello") {
		t.Fatalf("unexpected plain event: %q", plain)
	}
}
