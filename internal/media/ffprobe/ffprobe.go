package ffprobe

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sharkye1/Szhimatar2/internal/logging"
	"github.com/sharkye1/Szhimatar2/internal/services"
)

// Client runs ffprobe against media files. An empty binary falls back to
// "ffprobe" on PATH.
type Client struct {
	binary string
	logger *slog.Logger
}

func NewClient(binary string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{binary: strings.TrimSpace(binary), logger: logger}
}

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
	raw     []byte
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int        `json:"index"`
	CodecName  string     `json:"codec_name"`
	CodecType  string     `json:"codec_type"`
	CodecTag   string     `json:"codec_tag_string"`
	Duration   string     `json:"duration"`
	BitRate    string     `json:"bit_rate"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	SampleRate string     `json:"sample_rate"`
	Channels   int        `json:"channels"`
	Tags       StreamTags `json:"tags"`
}

// StreamTags carries the container tags surfaced in probe output.
type StreamTags struct {
	Language string `json:"language"`
	Title    string `json:"title"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// Probe executes ffprobe against the provided path and decodes the JSON
// response.
func (c *Client) Probe(ctx context.Context, path string) (Result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, services.Wrap(services.ErrValidation, "ffprobe", "probe", "empty path", nil)
	}
	binary := c.binary
	if binary == "" {
		binary = "ffprobe"
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail == "" {
			detail = "ffprobe failed"
		}
		return Result{}, services.Wrap(services.ErrExternalTool, "ffprobe", "probe", detail, err)
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "ffprobe", "probe", "malformed ffprobe output", err)
	}
	result.raw = append([]byte(nil), output...)

	c.logger.Debug("probe finished",
		logging.String("path", path),
		logging.Int("streams", len(result.Streams)),
		logging.Float64("duration", result.DurationSeconds()),
	)
	return result, nil
}

// DurationSeconds probes just the container duration. Missing or malformed
// durations come back as 0, which disables percent and ETA math downstream
// instead of poisoning it.
func (c *Client) DurationSeconds(ctx context.Context, path string) (float64, error) {
	result, err := c.Probe(ctx, path)
	if err != nil {
		return 0, err
	}
	return result.DurationSeconds(), nil
}

// RawJSON returns the raw ffprobe JSON payload.
func (r Result) RawJSON() []byte {
	return append([]byte(nil), r.raw...)
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	return r.countStreams("video")
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	return r.countStreams("audio")
}

// SubtitleStreamCount returns the number of subtitle streams discovered.
func (r Result) SubtitleStreamCount() int {
	return r.countStreams("subtitle")
}

func (r Result) countStreams(codecType string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, codecType) {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, or 0 when
// unavailable or unparseable.
func (r Result) DurationSeconds() float64 {
	seconds := parseFloat(r.Format.Duration)
	if math.IsNaN(seconds) || seconds < 0 {
		return 0
	}
	return seconds
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

// BitRate returns the container bitrate in bits per second, or 0 when unavailable.
func (r Result) BitRate() int64 {
	rate := parseFloat(r.Format.BitRate)
	if math.IsNaN(rate) || rate < 0 {
		return 0
	}
	return int64(rate)
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
