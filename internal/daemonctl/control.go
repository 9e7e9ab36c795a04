// Package daemonctl orchestrates the daemon process from the CLI: launching
// it detached, waiting for its socket, stopping it by signal, and building
// the status snapshot with offline fallbacks for when it is not running.
package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/sharkye1/Szhimatar2/internal/config"
	"github.com/sharkye1/Szhimatar2/internal/deps"
	"github.com/sharkye1/Szhimatar2/internal/ipc"
	"github.com/sharkye1/Szhimatar2/internal/stats"
)

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	SocketPath string
	ConfigPath string
	LogLevel   string
	Diagnostic bool
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State    StartState
	Launched bool
	PID      int
}

// Launch starts a detached szhimatar daemon process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"daemon", "run"}
	if socket := strings.TrimSpace(opts.SocketPath); socket != "" {
		args = append(args, "--socket", socket)
	}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}
	if opts.Diagnostic {
		args = append(args, "--diagnostic")
	}

	proc := exec.Command(executablePath, args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForClient waits for IPC socket availability and returns a connected
// client.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		lastErr = err
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches the daemon unless one is already serving the
// socket. A reachable socket always means a running daemon because the
// server only binds after the instance lock is held.
func EnsureStarted(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	client, err := ipc.Dial(socketPath)
	if err == nil {
		defer client.Close()
		result := StartResult{State: StartStateAlreadyRunning}
		if status, statusErr := client.Status(); statusErr == nil && status != nil {
			result.PID = status.PID
		}
		return result, nil
	}
	if !errors.Is(err, ipc.ErrDaemonNotRunning) {
		return StartResult{}, err
	}

	if launchErr := Launch(executablePath, opts); launchErr != nil {
		return StartResult{}, launchErr
	}
	client, err = WaitForClient(socketPath, waitTimeout)
	if err != nil {
		return StartResult{}, err
	}
	defer client.Close()

	result := StartResult{State: StartStateStarted, Launched: true}
	if status, statusErr := client.Status(); statusErr == nil && status != nil {
		result.PID = status.PID
	}
	return result, nil
}

// WaitForShutdown waits for the daemon socket to stop answering.
func WaitForShutdown(socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err != nil {
			if errors.Is(err, ipc.ErrDaemonNotRunning) {
				return nil
			}
			lastErr = err
		} else {
			_ = client.Close()
			lastErr = fmt.Errorf("daemon still running")
		}
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for shutdown")
	}
	return fmt.Errorf("daemon did not stop: %w", lastErr)
}

// ProcessInfo returns whether daemon IPC is reachable and the daemon PID
// when available.
func ProcessInfo(socketPath string) (bool, int, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if errors.Is(err, ipc.ErrDaemonNotRunning) {
			return false, 0, nil
		}
		return false, 0, err
	}
	defer client.Close()
	status, statusErr := client.Status()
	if statusErr != nil {
		return true, 0, statusErr
	}
	pid := 0
	if status != nil {
		pid = status.PID
	}
	return true, pid, nil
}

// DeriveLogDir determines the daemon log directory from status and config
// hints. The socket lives in the log directory, so its parent is the last
// resort.
func DeriveLogDir(lockPath, socketPath string, cfg *config.Config) string {
	if lockPath != "" {
		return filepath.Dir(lockPath)
	}
	if cfg != nil && strings.TrimSpace(cfg.Paths.LogDir) != "" {
		return cfg.Paths.LogDir
	}
	if socketPath != "" {
		return filepath.Dir(socketPath)
	}
	return ""
}

// ForceKillProcess sends SIGKILL to the daemon process and cleans pid/lock
// files.
func ForceKillProcess(pidPath, lockPath string, fallbackPID int) (int, error) {
	pid := fallbackPID
	data, err := os.ReadFile(pidPath)
	if err == nil {
		pidStr := strings.TrimSpace(string(data))
		if pidStr != "" {
			if parsed, parseErr := strconv.Atoi(pidStr); parseErr == nil && parsed > 0 {
				pid = parsed
			}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("read daemon pid file %q: %w", pidPath, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return 0, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	return pid, nil
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	PID        int
	SignalSent bool
	ForcedKill bool
}

// RestartResult captures stop/start outcomes for daemon restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// StopAndTerminate asks the daemon to exit with SIGTERM and escalates to
// SIGKILL when it outlives the grace period. There is no stop RPC: process
// lifecycle belongs to signals, and the daemon's signal handler drains
// active renders before exiting.
func StopAndTerminate(socketPath string, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if errors.Is(err, ipc.ErrDaemonNotRunning) {
			return StopResult{}, ipc.ErrDaemonNotRunning
		}
		return StopResult{}, err
	}
	var lockPath string
	pid := 0
	if status, statusErr := client.Status(); statusErr == nil && status != nil {
		lockPath = status.LockPath
		pid = status.PID
	}
	_ = client.Close()

	result := StopResult{PID: pid}
	if pid > 0 && pid != os.Getpid() {
		if err := syscall.Kill(pid, syscall.SIGTERM); err == nil {
			result.SignalSent = true
		}
	}

	if err := WaitForShutdown(socketPath, gracePeriod); err == nil {
		return result, nil
	}

	logDir := DeriveLogDir(lockPath, socketPath, cfg)
	if logDir == "" {
		return result, fmt.Errorf("daemon still running and log directory unknown; stop pid %d manually", pid)
	}
	pidPath := filepath.Join(logDir, "szhimatard.pid")
	lockFile := filepath.Join(logDir, "szhimatard.lock")
	killedPID, killErr := ForceKillProcess(pidPath, lockFile, pid)
	if killErr != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", killErr)
	}
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	result.PID = killedPID
	return result, nil
}

// Restart stops the daemon if running, then ensures it is started.
func Restart(socketPath string, cfg *config.Config, executablePath string, opts LaunchOptions, stopGracePeriod, startWaitTimeout time.Duration) (RestartResult, error) {
	stopResult, stopErr := StopAndTerminate(socketPath, cfg, stopGracePeriod)
	if stopErr != nil && !errors.Is(stopErr, ipc.ErrDaemonNotRunning) {
		return RestartResult{}, stopErr
	}

	startResult, err := EnsureStarted(socketPath, executablePath, opts, startWaitTimeout)
	if err != nil {
		return RestartResult{}, err
	}

	return RestartResult{
		WasRunning: stopErr == nil,
		Stop:       stopResult,
		Start:      startResult,
	}, nil
}

// StatusLine is one labeled check rendered by the status command.
type StatusLine struct {
	Label    string
	Severity string
	Detail   string
}

// DependencySummary aggregates dependency readiness.
type DependencySummary struct {
	Total           int
	Available       int
	MissingRequired int
	MissingOptional int
	Severity        string
	Detail          string
}

// StatusSnapshot is everything the status command renders, assembled from
// the daemon when it answers and from local fallbacks when it does not.
type StatusSnapshot struct {
	Running           bool
	PID               int
	StartedAt         time.Time
	SocketPath        string
	ActiveJobs        []ipc.JobStatus
	Dependencies      []deps.Status
	DependencySummary DependencySummary
	SystemChecks      []StatusLine
	Paths             []StatusLine
	Stats             *stats.Summary
	LatestEventSeq    uint64
}

// BuildStatusSnapshot collects daemon status and applies offline fallbacks
// for render history and dependency checks.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*StatusSnapshot, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	snap := &StatusSnapshot{SocketPath: socketPath}

	client, err := ipc.Dial(socketPath)
	if err == nil {
		defer client.Close()
		if resp, statusErr := client.Status(); statusErr == nil && resp != nil {
			snap.Running = resp.Running
			snap.PID = resp.PID
			snap.StartedAt = resp.StartedAt
			snap.ActiveJobs = resp.ActiveJobs
			snap.Dependencies = resp.Dependencies
			snap.LatestEventSeq = resp.LatestEventSeq
		}
		if sum, sumErr := client.StatsSummary(0); sumErr == nil && sum != nil {
			summary := sum.Summary
			snap.Stats = &summary
		}
	}

	if !snap.Running && snap.Stats == nil {
		queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if store, openErr := stats.Open(cfg); openErr == nil {
			if sum, sumErr := store.Summary(queryCtx); sumErr == nil {
				snap.Stats = &sum
			}
			_ = store.Close()
		}
	}

	if len(snap.Dependencies) == 0 {
		snap.Dependencies = deps.CheckBinaries(ctx, deps.DefaultRequirements(cfg))
	}
	snap.DependencySummary = BuildDependencySummary(snap.Dependencies)
	snap.SystemChecks = BuildSystemChecks(cfg, snap.Running, len(snap.ActiveJobs))
	snap.Paths = BuildPathChecks(cfg)
	return snap, nil
}

// DependencySeverity maps one dependency status to a render severity.
func DependencySeverity(st deps.Status) string {
	if st.Available {
		return "ok"
	}
	if st.Optional {
		return "warn"
	}
	return "error"
}

// BuildSystemChecks resolves status lines combining runtime state and
// configuration.
func BuildSystemChecks(cfg *config.Config, daemonRunning bool, activeRenders int) []StatusLine {
	lines := make([]StatusLine, 0, 3)
	if daemonRunning {
		lines = append(lines, StatusLine{Label: "Szhimatar", Severity: "ok", Detail: "Running"})
		if activeRenders > 0 {
			lines = append(lines, StatusLine{Label: "Renders", Severity: "ok", Detail: fmt.Sprintf("%d in flight", activeRenders)})
		} else {
			lines = append(lines, StatusLine{Label: "Renders", Severity: "info", Detail: "Idle"})
		}
	} else {
		lines = append(lines, StatusLine{Label: "Szhimatar", Severity: "warn", Detail: "Not running (run `szhimatar daemon start`)"})
	}

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		lines = append(lines, StatusLine{Label: "Notifications", Severity: "ok", Detail: "Configured"})
	} else {
		lines = append(lines, StatusLine{Label: "Notifications", Severity: "info", Detail: "Not configured"})
	}
	return lines
}

// BuildPathChecks resolves readiness of the directories the daemon writes.
func BuildPathChecks(cfg *config.Config) []StatusLine {
	lines := make([]StatusLine, 0, 3)
	for _, dir := range []struct {
		label string
		path  string
	}{
		{label: "Presets", path: cfg.Paths.PresetsDir},
		{label: "Render logs", path: cfg.RenderLogDir()},
		{label: "Stats DB", path: filepath.Dir(cfg.Paths.StatsDB)},
	} {
		passed, detail := checkDirectoryAccess(dir.path)
		severity := "error"
		if passed {
			severity = "ok"
		}
		lines = append(lines, StatusLine{Label: dir.label, Severity: severity, Detail: detail})
	}
	return lines
}

func checkDirectoryAccess(path string) (bool, string) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, fmt.Sprintf("%s (error: does not exist)", path)
		}
		return false, fmt.Sprintf("%s (error: stat: %v)", path, err)
	}
	if !info.IsDir() {
		return false, fmt.Sprintf("%s (error: is not a directory)", path)
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return false, fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)
	}
	return true, fmt.Sprintf("%s (read/write ok)", path)
}

// BuildDependencySummary computes aggregate dependency readiness.
func BuildDependencySummary(statuses []deps.Status) DependencySummary {
	if len(statuses) == 0 {
		return DependencySummary{
			Severity: "info",
			Detail:   "No dependency checks configured",
		}
	}

	missingRequired := 0
	missingOptional := 0
	for _, dep := range statuses {
		if dep.Available {
			continue
		}
		if dep.Optional {
			missingOptional++
		} else {
			missingRequired++
		}
	}

	missingCount := missingRequired + missingOptional
	available := len(statuses) - missingCount
	severity := "ok"
	if missingRequired > 0 {
		severity = "error"
	} else if missingOptional > 0 {
		severity = "warn"
	}
	detail := fmt.Sprintf("%d/%d available (missing: %d required, %d optional)", available, len(statuses), missingRequired, missingOptional)
	if missingCount == 0 {
		detail = fmt.Sprintf("%d/%d available", available, len(statuses))
	}

	return DependencySummary{
		Total:           len(statuses),
		Available:       available,
		MissingRequired: missingRequired,
		MissingOptional: missingOptional,
		Severity:        severity,
		Detail:          detail,
	}
}
