package render

// Job describes one FFmpeg render: where the media comes from, where it
// goes, and the caller's argument block between them. Jobs are immutable
// once submitted. DurationSeconds is the input length used for percent and
// ETA math; zero means unknown, which disables both.
type Job struct {
	ID              string
	InputPath       string
	OutputPath      string
	Args            []string
	DurationSeconds float64
}

// Snapshot is one progress observation for a running job. Bitrate and
// TotalSize stay raw strings exactly as FFmpeg printed them; consumers
// format, never parse.
type Snapshot struct {
	JobID       string  `json:"job_id"`
	Frame       int64   `json:"frame"`
	FPS         float64 `json:"fps"`
	Bitrate     string  `json:"bitrate"`
	TotalSize   string  `json:"total_size"`
	TimeSeconds float64 `json:"time_seconds"`
	Speed       float64 `json:"speed"`
	Percent     float64 `json:"progress_percent"`
	ETASeconds  float64 `json:"eta_seconds"`
}

// Result is the terminal outcome of a job. Exactly one is produced per
// started job, on every path.
type Result struct {
	JobID      string `json:"job_id"`
	Success    bool   `json:"success"`
	ErrorText  string `json:"error,omitempty"`
	OutputPath string `json:"output_path"`
}

// StoppedByUser identifies a stop requested through the control surface in
// stopped events.
const StoppedByUser = "user"

// StoppedErrorText is the Result.ErrorText for jobs that ended because a
// stop was requested rather than because FFmpeg failed. Diagnostic lines
// are only collected when they mention an error, so FFmpeg output can
// never produce this exact text.
const StoppedErrorText = "stopped"
