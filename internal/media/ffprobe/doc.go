// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Client: executes ffprobe and decodes the response
//   - Result: parsed output containing streams and format metadata
//   - Stream: individual audio/video/subtitle stream properties
//   - Format: container-level metadata (duration, size, bitrate)
//
// The render manager calls DurationSeconds before launching a job so
// percent and ETA math have a denominator; the probe command surfaces
// the full stream and format breakdown.
package ffprobe
