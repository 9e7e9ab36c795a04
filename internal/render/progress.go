package render

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"
)

// progressState accumulates key=value pairs from FFmpeg's machine progress
// stream (-progress pipe:1) until a "progress" sentinel closes the block.
// Values that fail to parse are dropped so the last good value survives.
type progressState struct {
	frame     int64
	fps       float64
	bitrate   string
	totalSize string
	elapsed   float64
	speed     float64
}

func (s *progressState) apply(key, value string) {
	switch key {
	case "frame":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			s.frame = v
		}
	case "fps":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			s.fps = v
		}
	case "bitrate":
		s.bitrate = value
	case "total_size":
		s.totalSize = value
	case "out_time_ms":
		// Despite the name, FFmpeg reports microseconds here.
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			s.elapsed = v / 1_000_000.0
		}
	case "speed":
		if v, err := strconv.ParseFloat(strings.TrimSuffix(value, "x"), 64); err == nil {
			s.speed = v
		}
	}
}

func (s *progressState) snapshot(jobID string, duration float64) Snapshot {
	return Snapshot{
		JobID:       jobID,
		Frame:       s.frame,
		FPS:         s.fps,
		Bitrate:     s.bitrate,
		TotalSize:   s.totalSize,
		TimeSeconds: s.elapsed,
		Speed:       s.speed,
		Percent:     progressPercent(s.elapsed, duration),
		ETASeconds:  progressETA(s.elapsed, duration, s.speed),
	}
}

// progressPercent clamps at 100 and reports 0 while the duration is
// unknown.
func progressPercent(elapsed, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return math.Min(elapsed/duration*100, 100)
}

// progressETA divides the remaining stream time by the realtime speed
// factor. Unknown duration or a stalled speed reads as 0. The value goes
// negative once elapsed passes a short duration estimate; consumers
// display it as-is.
func progressETA(elapsed, duration, speed float64) float64 {
	if speed <= 0 || duration <= 0 {
		return 0
	}
	return (duration - elapsed) / speed
}

// readProgressStream consumes the machine progress pipe until EOF, calling
// emit with a snapshot each time a progress sentinel closes a block. The
// accumulator carries across blocks, matching FFmpeg's delta reporting.
func readProgressStream(r io.Reader, jobID string, duration float64, emit func(Snapshot)) error {
	scanner := bufio.NewScanner(r)
	state := progressState{}
	for scanner.Scan() {
		key, value, found := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !found {
			continue
		}
		if key == "progress" {
			if emit != nil {
				emit(state.snapshot(jobID, duration))
			}
			continue
		}
		state.apply(key, strings.TrimSpace(value))
	}
	return scanner.Err()
}
