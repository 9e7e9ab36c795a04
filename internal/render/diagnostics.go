package render

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Classic stderr stats line, e.g.
// frame=  150 fps=30 q=28.0 size=    1024kB time=00:00:05.00 bitrate=1677.7kbits/s speed=2.5x
// The frame count anchors the parse; every other field is optional and
// defaults to its zero value.
var (
	diagFramePattern   = regexp.MustCompile(`frame=\s*(\d+)`)
	diagFPSPattern     = regexp.MustCompile(`fps=\s*([\d.]+)`)
	diagSizePattern    = regexp.MustCompile(`size=\s*(\S+)`)
	diagTimePattern    = regexp.MustCompile(`time=(\d+):(\d+):(\d+\.?\d*)`)
	diagBitratePattern = regexp.MustCompile(`bitrate=\s*(\S+)`)
	diagSpeedPattern   = regexp.MustCompile(`speed=\s*([\d.]+)x`)
)

type statsFields struct {
	frame   int64
	fps     float64
	size    string
	bitrate string
	elapsed float64
	speed   float64
}

func (f statsFields) snapshot(jobID string, duration float64) Snapshot {
	return Snapshot{
		JobID:       jobID,
		Frame:       f.frame,
		FPS:         f.fps,
		Bitrate:     f.bitrate,
		TotalSize:   f.size,
		TimeSeconds: f.elapsed,
		Speed:       f.speed,
		Percent:     progressPercent(f.elapsed, duration),
		ETASeconds:  progressETA(f.elapsed, duration, f.speed),
	}
}

// parseStatsLine extracts progress fields from a classic stderr stats
// line. Returns false when the line carries no frame count.
func parseStatsLine(line string) (statsFields, bool) {
	frameMatch := diagFramePattern.FindStringSubmatch(line)
	if frameMatch == nil {
		return statsFields{}, false
	}
	frame, err := strconv.ParseInt(frameMatch[1], 10, 64)
	if err != nil {
		return statsFields{}, false
	}
	fields := statsFields{frame: frame}
	if m := diagFPSPattern.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			fields.fps = v
		}
	}
	if m := diagSizePattern.FindStringSubmatch(line); m != nil {
		fields.size = m[1]
	}
	if m := diagTimePattern.FindStringSubmatch(line); m != nil {
		hours, _ := strconv.ParseFloat(m[1], 64)
		minutes, _ := strconv.ParseFloat(m[2], 64)
		seconds, _ := strconv.ParseFloat(m[3], 64)
		fields.elapsed = hours*3600 + minutes*60 + seconds
	}
	if m := diagBitratePattern.FindStringSubmatch(line); m != nil {
		fields.bitrate = m[1]
	}
	if m := diagSpeedPattern.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			fields.speed = v
		}
	}
	return fields, true
}

// isDiagnosticLine reports whether a stderr line should be kept for the
// failure report.
func isDiagnosticLine(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "error") || strings.Contains(lower, "invalid")
}

// readDiagnosticStream consumes FFmpeg's stderr until EOF with two duties:
// stats lines double as a progress fallback for encoders that keep the
// machine pipe quiet, and lines that read like tool complaints accumulate
// for the failure report. State is never shared with the stdout parser.
func readDiagnosticStream(r io.Reader, jobID string, duration float64, emit func(Snapshot)) ([]string, error) {
	scanner := bufio.NewScanner(r)
	// Filter graph dumps can exceed the default token size.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var diagnostics []string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "frame=") && strings.Contains(line, "time=") {
			if fields, ok := parseStatsLine(line); ok && emit != nil {
				emit(fields.snapshot(jobID, duration))
			}
		}
		if isDiagnosticLine(line) {
			diagnostics = append(diagnostics, line)
		}
	}
	return diagnostics, scanner.Err()
}
