package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"github.com/sharkye1/Szhimatar2/internal/config"
	"github.com/sharkye1/Szhimatar2/internal/deps"
	"github.com/sharkye1/Szhimatar2/internal/events"
	"github.com/sharkye1/Szhimatar2/internal/logging"
	"github.com/sharkye1/Szhimatar2/internal/media/ffprobe"
	"github.com/sharkye1/Szhimatar2/internal/notifications"
	"github.com/sharkye1/Szhimatar2/internal/presets"
	"github.com/sharkye1/Szhimatar2/internal/render"
	"github.com/sharkye1/Szhimatar2/internal/stats"
)

// shutdownGrace bounds how long Stop waits for active renders to wind down
// after their processes were killed.
const shutdownGrace = 10 * time.Second

// Components are the services the daemon fronts. Manager, Presets, Stats,
// and Prober are required; the rest degrade gracefully when absent.
type Components struct {
	Manager  *render.Manager
	Presets  *presets.Store
	Stats    *stats.Store
	Prober   *ffprobe.Client
	Events   *events.Bus
	Notifier notifications.Service
	Hub      *logging.StreamHub
	Archive  *logging.EventArchive
	LogPath  string

	// Dependencies is the binary availability snapshot taken at startup,
	// reported verbatim through Status.
	Dependencies []deps.Status
}

// Daemon bundles the render manager and its supporting stores behind the
// single-instance lock. The IPC service delegates here.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	comps  Components

	lockPath string
	lock     *flock.Flock
	pidPath  string

	startedAt time.Time
	running   atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	StartedAt      time.Time
	LockPath       string
	SocketPath     string
	StatsDBPath    string
	PresetsDir     string
	ActiveJobs     []render.JobStatus
	Dependencies   []deps.Status
	LatestEventSeq uint64
}

// New constructs a daemon around already-initialized components.
func New(cfg *config.Config, logger *slog.Logger, comps Components) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if comps.Manager == nil || comps.Presets == nil || comps.Stats == nil || comps.Prober == nil {
		return nil, errors.New("daemon requires render manager, preset store, stats store, and prober")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "szhimatard.lock")
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		comps:     comps,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
		pidPath:   filepath.Join(cfg.Paths.LogDir, "szhimatard.pid"),
		startedAt: time.Now(),
	}, nil
}

// Start acquires the single-instance lock and writes the pid file.
func (d *Daemon) Start() error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another szhimatard instance is already running")
	}
	if err := writePIDFile(d.pidPath); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("write pid file: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("szhimatar daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop drains active renders and releases the single-instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := d.comps.Manager.Shutdown(ctx); err != nil {
		d.logger.Warn("render drain incomplete", logging.Error(err))
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	if err := os.Remove(d.pidPath); err != nil && !os.IsNotExist(err) {
		d.logger.Warn("failed to remove pid file", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("szhimatar daemon stopped")
}

// Close stops the daemon and closes the stats store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.comps.Stats != nil {
		return d.comps.Stats.Close()
	}
	return nil
}

// StartRender submits a render job to the manager.
func (d *Daemon) StartRender(ctx context.Context, req render.StartRequest) (render.Started, error) {
	started, err := d.comps.Manager.StartRender(ctx, req)
	if err != nil {
		return started, err
	}
	d.comps.Events.Publish(events.Event{
		Kind:    events.KindLog,
		JobID:   started.JobID,
		Message: fmt.Sprintf("render accepted: %s", started.Title),
	})
	return started, nil
}

// StopRender stops one active render, reporting whether the job was known.
func (d *Daemon) StopRender(jobID string) bool {
	return d.comps.Manager.Stop(jobID)
}

// StopAllRenders stops every active render and reports how many were hit.
func (d *Daemon) StopAllRenders() int {
	return d.comps.Manager.StopAll()
}

// ActiveRenders lists live job views.
func (d *Daemon) ActiveRenders() []render.JobStatus {
	return d.comps.Manager.Active()
}

// EventsSince returns buffered render events newer than seq plus the
// current high-water mark.
func (d *Daemon) EventsSince(seq uint64) ([]events.Event, uint64) {
	return d.comps.Events.Since(seq), d.comps.Events.Latest()
}

// Probe inspects a media file with the configured ffprobe binary.
func (d *Daemon) Probe(ctx context.Context, path string) (ffprobe.Result, error) {
	return d.comps.Prober.Probe(ctx, path)
}

// ListPresets loads every stored preset, sorted by file stem.
func (d *Daemon) ListPresets() ([]presets.Preset, error) {
	names, err := d.comps.Presets.List()
	if err != nil {
		return nil, err
	}
	out := make([]presets.Preset, 0, len(names))
	for _, name := range names {
		preset, err := d.comps.Presets.Load(name)
		if err != nil {
			return nil, err
		}
		out = append(out, preset)
	}
	return out, nil
}

// GetPreset loads one preset by name.
func (d *Daemon) GetPreset(name string) (presets.Preset, error) {
	return d.comps.Presets.Load(name)
}

// SavePreset writes a preset to disk.
func (d *Daemon) SavePreset(preset presets.Preset) error {
	return d.comps.Presets.Save(preset)
}

// DeletePreset removes a preset from disk.
func (d *Daemon) DeletePreset(name string) error {
	return d.comps.Presets.Delete(name)
}

// StatsSummary returns the aggregate render counters.
func (d *Daemon) StatsSummary(ctx context.Context) (stats.Summary, error) {
	return d.comps.Stats.Summary(ctx)
}

// RecentRenders returns the newest history rows, up to limit.
func (d *Daemon) RecentRenders(ctx context.Context, limit int) ([]render.HistoryRecord, error) {
	return d.comps.Stats.Recent(ctx, limit)
}

// StatsExport renders the history in the legacy JSON export shape.
func (d *Daemon) StatsExport(ctx context.Context) ([]byte, error) {
	return d.comps.Stats.ExportJSON(ctx)
}

// StatsClear empties the render history.
func (d *Daemon) StatsClear(ctx context.Context) error {
	return d.comps.Stats.Clear(ctx)
}

// TestNotification sends a connectivity test through the configured topic.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := d.comps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(d.cfg)
	}
	if err := notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path of the daemon's current log file.
func (d *Daemon) LogPath() string {
	return d.comps.LogPath
}

// Hub returns the in-memory log stream, when one is wired.
func (d *Daemon) Hub() *logging.StreamHub {
	return d.comps.Hub
}

// Archive returns the persisted log event archive, when one is wired.
func (d *Daemon) Archive() *logging.EventArchive {
	return d.comps.Archive
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		StartedAt:      d.startedAt,
		LockPath:       d.lockPath,
		SocketPath:     d.cfg.SocketPath(),
		StatsDBPath:    d.cfg.Paths.StatsDB,
		PresetsDir:     d.cfg.Paths.PresetsDir,
		ActiveJobs:     d.comps.Manager.Active(),
		Dependencies:   d.comps.Dependencies,
		LatestEventSeq: d.comps.Events.Latest(),
	}
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
