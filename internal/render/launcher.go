package render

import (
	"io"
	"log/slog"
	"os/exec"
	"time"

	"github.com/sharkye1/Szhimatar2/internal/logging"
	"github.com/sharkye1/Szhimatar2/internal/services"
)

// statsPeriod is the interval FFmpeg is told to report progress at, in
// seconds. Both the machine pipe and the stderr stats line follow it.
const statsPeriod = "0.5"

// Handle bundles a live FFmpeg process with its pipes. The runner owns it;
// the registry never sees it.
type Handle struct {
	Cmd    *exec.Cmd
	PID    int
	Stdout io.ReadCloser
	Stderr io.ReadCloser
}

// Launcher spawns FFmpeg processes and registers them. Process control
// deliberately does not flow through contexts: the only kill path is the
// Terminator working off the registry, which keeps stop classification
// deterministic.
type Launcher struct {
	binary   string
	registry *Registry
	logger   *slog.Logger
}

// NewLauncher builds a launcher around the given FFmpeg binary. The binary
// may be a bare name resolved via PATH or an absolute path.
func NewLauncher(binary string, registry *Registry, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Launcher{
		binary:   binary,
		registry: registry,
		logger:   logger,
	}
}

// BuildArgs assembles the fixed argument vector: overwrite flag, input,
// the job's own arguments verbatim, machine progress on stdout, then the
// output path. The caller block sits between input and output so its
// flags bind to the output file.
func BuildArgs(job Job) []string {
	args := make([]string, 0, len(job.Args)+8)
	args = append(args, "-y", "-i", job.InputPath)
	args = append(args, job.Args...)
	args = append(args, "-progress", "pipe:1", "-stats_period", statsPeriod)
	args = append(args, job.OutputPath)
	return args
}

// Launch starts FFmpeg for the job. Stdin is closed and both output
// streams are piped, never inherited. On success the process is
// registered before the handle is returned, so a stop request arriving
// during hand-off already finds the record. On failure nothing is
// registered.
func (l *Launcher) Launch(job Job) (*Handle, error) {
	cmd := exec.Command(l.binary, BuildArgs(job)...)
	// cmd.Stdin left nil: the child reads from the null device, so FFmpeg
	// can never hang on an interactive prompt.
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "render", "launch", "open stdout pipe", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "render", "launch", "open stderr pipe", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "render", "launch", "start ffmpeg", err)
	}

	pid := cmd.Process.Pid
	l.registry.Register(ProcessRecord{
		JobID:      job.ID,
		PID:        pid,
		StartedAt:  time.Now(),
		InputPath:  job.InputPath,
		OutputPath: job.OutputPath,
	})
	l.logger.Info("ffmpeg process started",
		logging.String(logging.FieldJobID, job.ID),
		logging.Int("pid", pid),
		logging.String("input", job.InputPath),
		logging.String("output", job.OutputPath),
	)
	return &Handle{Cmd: cmd, PID: pid, Stdout: stdout, Stderr: stderr}, nil
}
