package render

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sharkye1/Szhimatar2/internal/config"
	"github.com/sharkye1/Szhimatar2/internal/logging"
	"github.com/sharkye1/Szhimatar2/internal/services"
	"github.com/sharkye1/Szhimatar2/internal/textutil"
)

// DurationProber reports a media file's duration in seconds. The ffprobe
// client implements it; tests substitute fakes.
type DurationProber interface {
	DurationSeconds(ctx context.Context, path string) (float64, error)
}

// PresetSource resolves a stored preset name to its argument block.
type PresetSource interface {
	ArgsFor(name string) ([]string, error)
}

// HistoryRecorder persists one row per finished render.
type HistoryRecorder interface {
	RecordRender(ctx context.Context, rec HistoryRecord) error
}

// Notifier publishes user-facing lifecycle notices. Implementations decide
// transport and formatting; the manager only reports facts.
type Notifier interface {
	RenderCompleted(ctx context.Context, title string, elapsed time.Duration)
	RenderFailed(ctx context.Context, title, errorText string)
	RenderStopped(ctx context.Context, title string)
}

// Outcome labels for finished renders, as persisted and exported.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeStopped   = "stopped"
)

// HistoryRecord is the persistent summary of one finished render.
type HistoryRecord struct {
	JobID           string
	Title           string
	InputPath       string
	OutputPath      string
	Outcome         string
	ErrorText       string
	DurationSeconds float64
	ElapsedSeconds  float64
	StartedAt       time.Time
	FinishedAt      time.Time
}

// StartRequest is a client's ask to render one file. Everything except
// InputPath is optional: missing pieces are derived from config, the
// preset store, the prober, or minted fresh.
type StartRequest struct {
	JobID           string
	InputPath       string
	OutputPath      string
	Preset          string
	Args            []string
	DurationSeconds float64
}

// Started acknowledges an accepted job. The render itself proceeds in the
// background; outcomes arrive through events and history.
type Started struct {
	JobID      string  `json:"job_id"`
	Title      string  `json:"title"`
	InputPath  string  `json:"input_path"`
	OutputPath string  `json:"output_path"`
	Duration   float64 `json:"duration_seconds"`
}

// JobStatus is a live view of an active job for status listings.
type JobStatus struct {
	JobID          string    `json:"job_id"`
	PID            int       `json:"pid"`
	Title          string    `json:"title"`
	InputPath      string    `json:"input_path"`
	OutputPath     string    `json:"output_path"`
	Preset         string    `json:"preset,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	Last           Snapshot  `json:"last_progress"`
}

// Manager supervises render jobs for the daemon: it validates and enriches
// start requests, runs each job in its own goroutine, tracks live views,
// and feeds history, notifications, and the event stream.
type Manager struct {
	cfg        *config.Config
	logger     *slog.Logger
	registry   *Registry
	launcher   *Launcher
	runner     *Runner
	canceller  *Canceller
	observer   Observer
	terminator Terminator
	prober     DurationProber
	presets    PresetSource
	history    HistoryRecorder
	notifier   Notifier

	wg    sync.WaitGroup
	mu    sync.Mutex
	views map[string]*jobView
}

type jobView struct {
	job       Job
	title     string
	preset    string
	startedAt time.Time
	last      Snapshot
	sampler   *logging.ProgressSampler
	log       *logging.RenderLog
}

// ManagerOption customizes a Manager at construction.
type ManagerOption func(*Manager)

// WithObserver attaches the external event sink (bus, stream, tests).
func WithObserver(observer Observer) ManagerOption {
	return func(m *Manager) {
		if observer != nil {
			m.observer = observer
		}
	}
}

// WithProber supplies the duration prober used when requests omit one.
func WithProber(prober DurationProber) ManagerOption {
	return func(m *Manager) { m.prober = prober }
}

// WithPresets supplies the preset resolver.
func WithPresets(source PresetSource) ManagerOption {
	return func(m *Manager) { m.presets = source }
}

// WithHistory supplies the render history recorder.
func WithHistory(recorder HistoryRecorder) ManagerOption {
	return func(m *Manager) { m.history = recorder }
}

// WithNotifier supplies the lifecycle notifier.
func WithNotifier(notifier Notifier) ManagerOption {
	return func(m *Manager) { m.notifier = notifier }
}

// WithTerminator overrides the kill backend (tests).
func WithTerminator(terminator Terminator) ManagerOption {
	return func(m *Manager) {
		if terminator != nil {
			m.terminator = terminator
		}
	}
}

// NewManager builds the render supervisor. The registry, launcher, runner,
// and canceller are wired internally over one shared registry; options
// attach the collaborators.
func NewManager(cfg *config.Config, logger *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "render"),
		registry:   NewRegistry(),
		observer:   NopObserver{},
		terminator: OSTerminator{},
		views:      make(map[string]*jobView),
	}
	for _, opt := range opts {
		opt(m)
	}
	hook := managerObserver{m: m}
	m.launcher = NewLauncher(cfg.FFmpegBinary(), m.registry, m.logger)
	m.runner = NewRunner(m.launcher, m.registry, hook, m.logger)
	m.canceller = NewCanceller(m.registry, m.terminator, hook, m.logger)
	return m
}

// Registry exposes the shared process registry for status surfaces.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// StartRender validates and enriches the request, reserves the job ID, and
// launches the render in a background goroutine. The returned Started is
// the acknowledgment; failures after acceptance surface as failed events
// and history rows.
func (m *Manager) StartRender(ctx context.Context, req StartRequest) (Started, error) {
	input := strings.TrimSpace(req.InputPath)
	if input == "" {
		return Started{}, services.Wrap(services.ErrValidation, "render", "start", "input path required", nil)
	}
	if _, err := os.Stat(input); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Started{}, services.Wrap(services.ErrValidation, "render", "start", fmt.Sprintf("input file not found: %s", input), nil)
		}
		return Started{}, services.Wrap(services.ErrValidation, "render", "start", "input file not readable", err)
	}
	if _, err := exec.LookPath(m.cfg.FFmpegBinary()); err != nil {
		return Started{}, services.Wrap(services.ErrExternalTool, "render", "start", "ffmpeg not found; configure tools.ffmpeg or run szhimatar doctor", err)
	}

	args, err := m.resolveArgs(req)
	if err != nil {
		return Started{}, err
	}

	output := strings.TrimSpace(req.OutputPath)
	if output == "" {
		output = deriveOutputPath(input, m.cfg.Render.OutputSuffix)
	}

	duration := req.DurationSeconds
	if duration <= 0 && m.prober != nil {
		probed, err := m.prober.DurationSeconds(ctx, input)
		if err != nil {
			m.logger.Warn("duration probe failed; percent and ETA disabled",
				logging.String("input", input),
				logging.Error(err),
			)
		} else {
			duration = probed
		}
	}

	jobID := strings.TrimSpace(req.JobID)
	if jobID == "" {
		jobID = uuid.NewString()
	}

	job := Job{
		ID:              jobID,
		InputPath:       input,
		OutputPath:      output,
		Args:            args,
		DurationSeconds: duration,
	}
	title := textutil.DeriveTitle(input)

	view := &jobView{
		job:       job,
		title:     title,
		preset:    strings.TrimSpace(req.Preset),
		startedAt: time.Now(),
		sampler:   logging.NewProgressSampler(0),
	}
	m.mu.Lock()
	if _, exists := m.views[jobID]; exists {
		m.mu.Unlock()
		return Started{}, services.Wrap(services.ErrValidation, "render", "start", fmt.Sprintf("job %s is already active", jobID), nil)
	}
	m.views[jobID] = view
	m.mu.Unlock()

	m.logger.Info("render accepted",
		logging.String(logging.FieldJobID, jobID),
		logging.String("input", input),
		logging.String("output", output),
		logging.String("preset", view.preset),
		logging.Float64("duration", duration),
	)

	m.wg.Add(1)
	go m.runJob(view)

	return Started{
		JobID:      jobID,
		Title:      title,
		InputPath:  input,
		OutputPath: output,
		Duration:   duration,
	}, nil
}

// resolveArgs merges the preset block with explicit arguments. Explicit
// arguments come after the preset's so later FFmpeg flags win; with
// neither present the configured default codecs apply.
func (m *Manager) resolveArgs(req StartRequest) ([]string, error) {
	preset := strings.TrimSpace(req.Preset)
	var args []string
	if preset != "" {
		if m.presets == nil {
			return nil, services.Wrap(services.ErrConfiguration, "render", "start", "preset store unavailable", nil)
		}
		presetArgs, err := m.presets.ArgsFor(preset)
		if err != nil {
			return nil, err
		}
		args = append(args, presetArgs...)
	}
	args = append(args, req.Args...)
	if len(args) == 0 {
		args = []string{
			"-c:v", m.cfg.Render.DefaultVideoCodec,
			"-c:a", m.cfg.Render.DefaultAudioCodec,
		}
	}
	return args, nil
}

// deriveOutputPath appends the configured suffix to the input's base name,
// keeping directory and extension.
func deriveOutputPath(input, suffix string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + suffix + ext
}

func (m *Manager) runJob(view *jobView) {
	defer m.wg.Done()
	job := view.job
	defer m.dropView(job.ID)
	ctx := services.WithJobID(context.Background(), job.ID)

	rlog, err := logging.OpenRenderLog(m.cfg.RenderLogDir(), job.ID)
	if err != nil {
		m.logger.Warn("render log unavailable",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err),
		)
	}
	defer rlog.Close()
	m.mu.Lock()
	view.log = rlog
	m.mu.Unlock()
	rlog.Appendf("Starting render job: %s -> %s", job.InputPath, job.OutputPath)

	started := time.Now()
	result, runErr := m.runner.Run(ctx, job)
	if runErr != nil {
		// Spawn failed: the runner registered nothing and emitted nothing.
		result = Result{JobID: job.ID, ErrorText: runErr.Error(), OutputPath: job.OutputPath}
		m.observer.RenderFailed(job.ID, result.ErrorText)
	}
	elapsed := time.Since(started)

	outcome := OutcomeCompleted
	switch {
	case result.Success:
		rlog.Appendf("Render job %s completed with status: success", job.ID)
	case result.ErrorText == StoppedErrorText:
		outcome = OutcomeStopped
		rlog.Appendf("Render job %s stopped by %s", job.ID, StoppedByUser)
	default:
		outcome = OutcomeFailed
		rlog.Appendf("Render job %s completed with status: failed", job.ID)
		rlog.Appendf("FFmpeg reported: %s", result.ErrorText)
	}

	m.recordHistory(ctx, view, result, outcome, started, elapsed)
	m.notify(ctx, view, result, outcome, elapsed)
}

func (m *Manager) recordHistory(ctx context.Context, view *jobView, result Result, outcome string, started time.Time, elapsed time.Duration) {
	if m.history == nil {
		return
	}
	errText := result.ErrorText
	if outcome == OutcomeCompleted {
		errText = ""
	}
	rec := HistoryRecord{
		JobID:           view.job.ID,
		Title:           view.title,
		InputPath:       view.job.InputPath,
		OutputPath:      view.job.OutputPath,
		Outcome:         outcome,
		ErrorText:       errText,
		DurationSeconds: view.job.DurationSeconds,
		ElapsedSeconds:  elapsed.Seconds(),
		StartedAt:       started,
		FinishedAt:      started.Add(elapsed),
	}
	if err := m.history.RecordRender(ctx, rec); err != nil {
		m.logger.Warn("history record failed",
			logging.String(logging.FieldJobID, view.job.ID),
			logging.Error(err),
		)
	}
}

func (m *Manager) notify(ctx context.Context, view *jobView, result Result, outcome string, elapsed time.Duration) {
	if m.notifier == nil {
		return
	}
	switch outcome {
	case OutcomeCompleted:
		m.notifier.RenderCompleted(ctx, view.title, elapsed)
	case OutcomeStopped:
		m.notifier.RenderStopped(ctx, view.title)
	default:
		m.notifier.RenderFailed(ctx, view.title, result.ErrorText)
	}
}

// Stop requests termination of one job.
func (m *Manager) Stop(jobID string) bool {
	return m.canceller.Stop(jobID)
}

// StopAll stops every active job and reports how many were signalled.
func (m *Manager) StopAll() int {
	return m.canceller.StopAll()
}

// Active returns live views of all running jobs, oldest first.
func (m *Manager) Active() []JobStatus {
	m.mu.Lock()
	views := make([]*jobView, 0, len(m.views))
	for _, view := range m.views {
		views = append(views, view)
	}
	statuses := make([]JobStatus, 0, len(views))
	for _, view := range views {
		pid, _ := m.registry.PID(view.job.ID)
		statuses = append(statuses, JobStatus{
			JobID:          view.job.ID,
			PID:            pid,
			Title:          view.title,
			InputPath:      view.job.InputPath,
			OutputPath:     view.job.OutputPath,
			Preset:         view.preset,
			StartedAt:      view.startedAt,
			ElapsedSeconds: time.Since(view.startedAt).Seconds(),
			Last:           view.last,
		})
	}
	m.mu.Unlock()
	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].StartedAt.Equal(statuses[j].StartedAt) {
			return statuses[i].JobID < statuses[j].JobID
		}
		return statuses[i].StartedAt.Before(statuses[j].StartedAt)
	})
	return statuses
}

// ActiveCount reports the number of jobs between acceptance and cleanup.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.views)
}

// Shutdown stops every active job and waits for the runners to drain. The
// context bounds the wait; the kill signals have already been sent when it
// expires.
func (m *Manager) Shutdown(ctx context.Context) error {
	if stopped := m.canceller.StopAll(); stopped > 0 {
		m.logger.Info("waiting for renders to drain", logging.Int("count", stopped))
	}
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) dropView(jobID string) {
	m.mu.Lock()
	delete(m.views, jobID)
	m.mu.Unlock()
}

// noteProgress updates the live view and writes sampled progress to the
// daemon log and the per-job render log.
func (m *Manager) noteProgress(snapshot Snapshot) {
	m.mu.Lock()
	view, ok := m.views[snapshot.JobID]
	if !ok {
		m.mu.Unlock()
		return
	}
	view.last = snapshot
	sampled := view.sampler.ShouldLog(snapshot.Percent, "render", "")
	rlog := view.log
	m.mu.Unlock()

	if !sampled {
		return
	}
	m.logger.Info("render progress",
		logging.String(logging.FieldJobID, snapshot.JobID),
		logging.Float64(logging.FieldProgressPercent, snapshot.Percent),
		logging.Int64("frame", snapshot.Frame),
		logging.Float64("fps", snapshot.FPS),
		logging.Float64("speed", snapshot.Speed),
		logging.Float64(logging.FieldProgressETA, snapshot.ETASeconds),
	)
	rlog.Appendf("Progress %.1f%% (frame %d, %.1f fps, speed %.2fx)",
		snapshot.Percent, snapshot.Frame, snapshot.FPS, snapshot.Speed)
}

// managerObserver interposes on runner and canceller callbacks to keep
// views current before fanning out to the external observer.
type managerObserver struct {
	m *Manager
}

func (o managerObserver) RenderProgress(snapshot Snapshot) {
	o.m.noteProgress(snapshot)
	o.m.observer.RenderProgress(snapshot)
}

func (o managerObserver) RenderStopped(jobID, stoppedBy string) {
	o.m.observer.RenderStopped(jobID, stoppedBy)
}

func (o managerObserver) RenderCompleted(jobID string) {
	o.m.observer.RenderCompleted(jobID)
}

func (o managerObserver) RenderFailed(jobID, errorText string) {
	o.m.observer.RenderFailed(jobID, errorText)
}
