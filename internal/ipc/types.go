package ipc

import (
	"time"

	"github.com/sharkye1/Szhimatar2/internal/deps"
	"github.com/sharkye1/Szhimatar2/internal/events"
	"github.com/sharkye1/Szhimatar2/internal/logging"
	"github.com/sharkye1/Szhimatar2/internal/presets"
	"github.com/sharkye1/Szhimatar2/internal/render"
	"github.com/sharkye1/Szhimatar2/internal/stats"
)

// JobStatus mirrors the render manager's live job view for IPC callers.
type JobStatus = render.JobStatus

// Started mirrors the render manager's acceptance acknowledgement.
type Started = render.Started

// Event mirrors one entry from the render event bus.
type Event = events.Event

// Preset mirrors the on-disk preset document.
type Preset = presets.Preset

// Summary mirrors the aggregate render counters.
type Summary = stats.Summary

// HistoryRecord mirrors one persisted render outcome.
type HistoryRecord = render.HistoryRecord

// LogEvent mirrors one structured log line from the daemon's stream hub.
type LogEvent = logging.LogEvent

// DependencyStatus describes availability of an external binary.
type DependencyStatus = deps.Status

// StartRenderRequest submits a render job.
type StartRenderRequest struct {
	JobID           string   `json:"job_id,omitempty"`
	InputPath       string   `json:"input_path"`
	OutputPath      string   `json:"output_path,omitempty"`
	Preset          string   `json:"preset,omitempty"`
	Args            []string `json:"args,omitempty"`
	DurationSeconds float64  `json:"duration_seconds,omitempty"`
}

// StartRenderResponse acknowledges the accepted job.
type StartRenderResponse struct {
	Job Started `json:"job"`
}

// StopRenderRequest stops one render by job ID.
type StopRenderRequest struct {
	JobID string `json:"job_id"`
}

// StopRenderResponse reports whether the job was active.
type StopRenderResponse struct {
	Stopped bool `json:"stopped"`
}

// StopAllRendersRequest stops every active render.
type StopAllRendersRequest struct{}

// StopAllRendersResponse reports how many renders were stopped.
type StopAllRendersResponse struct {
	Stopped int `json:"stopped"`
}

// ActiveRendersRequest lists live jobs.
type ActiveRendersRequest struct{}

// ActiveRendersResponse contains live job views.
type ActiveRendersResponse struct {
	Jobs []JobStatus `json:"jobs"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running        bool               `json:"running"`
	PID            int                `json:"pid"`
	StartedAt      time.Time          `json:"started_at"`
	LockPath       string             `json:"lock_path"`
	SocketPath     string             `json:"socket_path"`
	StatsDBPath    string             `json:"stats_db_path"`
	PresetsDir     string             `json:"presets_dir"`
	ActiveJobs     []JobStatus        `json:"active_jobs"`
	Dependencies   []DependencyStatus `json:"dependencies"`
	LatestEventSeq uint64             `json:"latest_event_seq"`
}

// EventsSinceRequest fetches render events newer than Seq.
type EventsSinceRequest struct {
	Seq uint64 `json:"seq"`
}

// EventsSinceResponse returns events oldest-first plus the next cursor.
type EventsSinceResponse struct {
	Events []Event `json:"events"`
	Latest uint64  `json:"latest"`
}

// ProbeRequest inspects one media file.
type ProbeRequest struct {
	Path string `json:"path"`
}

// ProbeStream is a compact per-stream view for probe output.
type ProbeStream struct {
	Index     int    `json:"index"`
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Channels  int    `json:"channels,omitempty"`
	Language  string `json:"language,omitempty"`
	Title     string `json:"title,omitempty"`
}

// ProbeResponse summarizes the probed container.
type ProbeResponse struct {
	Path            string        `json:"path"`
	FormatName      string        `json:"format_name"`
	DurationSeconds float64       `json:"duration_seconds"`
	SizeBytes       int64         `json:"size_bytes"`
	BitRate         int64         `json:"bit_rate"`
	VideoStreams    int           `json:"video_streams"`
	AudioStreams    int           `json:"audio_streams"`
	SubtitleStreams int           `json:"subtitle_streams"`
	Streams         []ProbeStream `json:"streams"`
	RawJSON         string        `json:"raw_json,omitempty"`
}

// ListPresetsRequest lists stored presets.
type ListPresetsRequest struct{}

// ListPresetsResponse contains every stored preset.
type ListPresetsResponse struct {
	Presets []Preset `json:"presets"`
}

// GetPresetRequest loads one preset by name.
type GetPresetRequest struct {
	Name string `json:"name"`
}

// GetPresetResponse contains the loaded preset.
type GetPresetResponse struct {
	Preset Preset `json:"preset"`
}

// SavePresetRequest writes a preset to disk.
type SavePresetRequest struct {
	Preset Preset `json:"preset"`
}

// SavePresetResponse reports the save outcome.
type SavePresetResponse struct {
	Saved bool `json:"saved"`
}

// DeletePresetRequest removes a preset by name.
type DeletePresetRequest struct {
	Name string `json:"name"`
}

// DeletePresetResponse reports the delete outcome.
type DeletePresetResponse struct {
	Deleted bool `json:"deleted"`
}

// StatsSummaryRequest fetches aggregate counters and recent history.
type StatsSummaryRequest struct {
	RecentLimit int `json:"recent_limit,omitempty"`
}

// StatsSummaryResponse returns counters plus the newest history rows.
type StatsSummaryResponse struct {
	Summary Summary         `json:"summary"`
	Recent  []HistoryRecord `json:"recent"`
}

// StatsExportRequest renders the legacy JSON export.
type StatsExportRequest struct{}

// StatsExportResponse carries the export document.
type StatsExportResponse struct {
	JSON string `json:"json"`
}

// StatsClearRequest empties the render history.
type StatsClearRequest struct{}

// StatsClearResponse reports the clear outcome.
type StatsClearResponse struct {
	Cleared bool `json:"cleared"`
}

// LogTailRequest fetches structured log events from the daemon. Tail asks
// for the newest Limit events regardless of Since; followers then resume
// from the returned cursor.
type LogTailRequest struct {
	Since      uint64 `json:"since"`
	Limit      int    `json:"limit"`
	Tail       bool   `json:"tail"`
	Follow     bool   `json:"follow"`
	WaitMillis int    `json:"wait_millis"`
}

// LogTailResponse returns log events and the next cursor.
type LogTailResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
