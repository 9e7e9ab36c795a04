package daemonrun

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sharkye1/Szhimatar2/internal/config"
	"github.com/sharkye1/Szhimatar2/internal/daemon"
	"github.com/sharkye1/Szhimatar2/internal/deps"
	"github.com/sharkye1/Szhimatar2/internal/events"
	"github.com/sharkye1/Szhimatar2/internal/ipc"
	"github.com/sharkye1/Szhimatar2/internal/logging"
	"github.com/sharkye1/Szhimatar2/internal/media/ffprobe"
	"github.com/sharkye1/Szhimatar2/internal/notifications"
	"github.com/sharkye1/Szhimatar2/internal/presets"
	"github.com/sharkye1/Szhimatar2/internal/render"
	"github.com/sharkye1/Szhimatar2/internal/stats"
	"github.com/sharkye1/Szhimatar2/internal/textutil"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	Diagnostic  bool
}

// Run starts the szhimatar daemon runtime loop.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("szhimatar-%s.log", runID))
	eventsPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("szhimatar-%s.events", runID))
	logHub := logging.NewStreamHub(4096)
	eventArchive, archiveErr := logging.NewEventArchive(eventsPath)
	if archiveErr != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to initialize log archive: %v\n", archiveErr)
	} else if eventArchive != nil {
		logHub.AddSink(eventArchive)
		defer eventArchive.Close()
	}

	var sessionID string
	var debugLogPath string
	var debugDir string
	if opts.Diagnostic {
		sessionID = uuid.NewString()
		debugDir = filepath.Join(cfg.Paths.LogDir, "debug")
		if err := os.MkdirAll(debugDir, 0o755); err != nil {
			return fmt.Errorf("create debug log directory: %w", err)
		}
		debugLogPath = filepath.Join(debugDir, fmt.Sprintf("szhimatar-%s.log", runID))
	}

	loggerOpts := logging.Options{
		Level:            opts.LogLevel,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
		Stream:           logHub,
		SessionID:        sessionID,
	}
	logger, err := logging.New(loggerOpts)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if opts.Diagnostic {
		debugLogger, debugErr := logging.New(logging.Options{
			Level:            "debug",
			Format:           "json",
			OutputPaths:      []string{debugLogPath},
			ErrorOutputPaths: []string{debugLogPath},
			Development:      true,
			SessionID:        sessionID,
		})
		if debugErr != nil {
			fmt.Fprintf(os.Stderr, "warn: unable to initialize debug logger: %v\n", debugErr)
		} else {
			logger = logging.TeeLogger(logger, debugLogger.Handler())
			if err := ensureCurrentLogPointer(debugDir, debugLogPath); err != nil {
				fmt.Fprintf(os.Stderr, "warn: unable to update debug/szhimatar.log link: %v\n", err)
			}
		}
		logger.Info("diagnostic mode enabled",
			logging.String(logging.FieldEventType, "diagnostic_mode_enabled"),
			logging.String(logging.FieldSessionID, sessionID),
			logging.String("debug_log_path", debugLogPath),
		)
	}

	dependencies := checkDependencies(signalCtx, logger, cfg)
	if opts.Diagnostic {
		writeDependencySnapshot(logger, debugDir, runID, dependencies)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update szhimatar.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "szhimatar-*.log", Exclude: []string{logPath}},
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "szhimatar-*.events", Exclude: []string{eventsPath}},
		logging.RetentionTarget{Dir: cfg.RenderLogDir(), Pattern: "*.log"},
	)

	store, err := stats.Open(cfg)
	if err != nil {
		logger.Error("open stats store", logging.Error(err))
		return err
	}
	defer store.Close()

	presetStore := presets.NewStore(cfg.Paths.PresetsDir, logger)
	bus := events.NewBus(1024)
	notifier := notifications.NewService(cfg)
	prober := ffprobe.NewClient(cfg.FFprobeBinary(), logger)
	manager := render.NewManager(cfg, logger,
		render.WithObserver(events.NewSink(bus)),
		render.WithProber(prober),
		render.WithPresets(presetStore),
		render.WithHistory(store),
		render.WithNotifier(notifications.NewRenderNotifier(notifier, logger)),
	)

	d, err := daemon.New(cfg, logger, daemon.Components{
		Manager:      manager,
		Presets:      presetStore,
		Stats:        store,
		Prober:       prober,
		Events:       bus,
		Notifier:     notifier,
		Hub:          logHub,
		Archive:      eventArchive,
		LogPath:      logPath,
		Dependencies: dependencies,
	})
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	// The instance lock comes first: a second daemon must fail here,
	// before it can unlink the socket the running instance serves on.
	if err := d.Start(); err != nil {
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "another instance may hold szhimatard.lock in the log directory"),
			logging.String(logging.FieldImpact, "renders cannot be accepted"),
		)
		return err
	}

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	host, _ := os.Hostname()
	if err := notifier.Publish(signalCtx, notifications.EventDaemonStarted, notifications.Payload{"host": host}); err != nil {
		logger.Warn("startup notification failed", logging.Error(err))
	}

	<-signalCtx.Done()
	logger.Info("szhimatar daemon shutting down")
	return nil
}

func checkDependencies(ctx context.Context, logger *slog.Logger, cfg *config.Config) []deps.Status {
	statuses := deps.CheckBinaries(ctx, deps.DefaultRequirements(cfg))
	for _, st := range statuses {
		logger.Info("dependency snapshot",
			logging.String(logging.FieldEventType, "dependency_snapshot"),
			logging.String("binary", st.Name),
			logging.Bool("available", st.Available),
			logging.String("command", st.Command),
			logging.String("version", st.Version),
			logging.String("detail", st.Detail),
		)
	}
	return statuses
}

// writeDependencySnapshot records the startup environment check in the
// debug directory so a diagnostic bundle shows what the daemon saw.
func writeDependencySnapshot(logger *slog.Logger, debugDir, runID string, statuses []deps.Status) {
	host, _ := os.Hostname()
	name := fmt.Sprintf("deps-%s-%s.json", textutil.SanitizeToken(host), runID)
	path := filepath.Join(debugDir, name)
	data, err := json.MarshalIndent(statuses, "", "  ")
	if err == nil {
		err = os.WriteFile(path, data, 0o644)
	}
	if err != nil {
		logger.Warn("dependency snapshot write failed", logging.Error(err))
		return
	}
	logger.Info("dependency snapshot written", logging.String("path", path))
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "szhimatar.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}
