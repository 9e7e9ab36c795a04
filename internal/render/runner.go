package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/sharkye1/Szhimatar2/internal/logging"
	"github.com/sharkye1/Szhimatar2/internal/services"
)

// Runner drives one job from spawn to classified exit: launch, drain both
// pipes to EOF, wait, consume the stop flag, classify. Cleanup happens
// exactly once per lifecycle via a deferred unregister.
type Runner struct {
	launcher *Launcher
	registry *Registry
	observer Observer
	logger   *slog.Logger
}

// NewRunner builds a runner over the shared registry.
func NewRunner(launcher *Launcher, registry *Registry, observer Observer, logger *slog.Logger) *Runner {
	if observer == nil {
		observer = NopObserver{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		launcher: launcher,
		registry: registry,
		observer: observer,
		logger:   logger,
	}
}

// Run executes the job to completion and returns its Result. The error is
// non-nil only when the spawn itself failed; in that case nothing was
// registered and no events were emitted. Once the process is live, every
// outcome is expressed through the Result plus exactly one terminal event
// (the stopped event comes from the canceller, not from here).
//
// Stop classification beats any exit-derived failure: a killed process
// whose stop flag is set reports as stopped, not failed. The context only
// scopes logging; stopping a live job goes through the canceller.
func (r *Runner) Run(ctx context.Context, job Job) (Result, error) {
	log := logging.WithContext(ctx, r.logger)
	if _, ok := services.JobIDFromContext(ctx); !ok {
		log = log.With(logging.String(logging.FieldJobID, job.ID))
	}

	handle, err := r.launcher.Launch(job)
	if err != nil {
		return Result{}, err
	}
	defer r.registry.Unregister(job.ID)

	emit := func(snapshot Snapshot) {
		r.observer.RenderProgress(snapshot)
	}

	var wg sync.WaitGroup
	var diagnostics []string
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := readProgressStream(handle.Stdout, job.ID, job.DurationSeconds, emit); err != nil {
			log.Warn("progress stream read failed", logging.Error(err))
		}
	}()
	go func() {
		defer wg.Done()
		lines, err := readDiagnosticStream(handle.Stderr, job.ID, job.DurationSeconds, emit)
		if err != nil {
			log.Warn("diagnostic stream read failed", logging.Error(err))
		}
		diagnostics = lines
	}()

	// Both pipes must hit EOF before Wait may run; the wg doubles as the
	// memory barrier for the diagnostics slice.
	wg.Wait()
	waitErr := handle.Cmd.Wait()
	stopped := r.registry.TakeStopped(job.ID)

	result := Result{JobID: job.ID, OutputPath: job.OutputPath}
	switch {
	case stopped:
		result.ErrorText = StoppedErrorText
		log.Info("render stopped",
			logging.String("stopped_by", StoppedByUser),
			logging.Int("pid", handle.PID),
		)
	case waitErr == nil:
		result.Success = true
		log.Info("render completed", logging.String("output", job.OutputPath))
		r.observer.RenderCompleted(job.ID)
	default:
		result.ErrorText = classifyExit(waitErr, diagnostics)
		log.Error("render failed",
			logging.String("error_message", result.ErrorText),
			logging.Int("diagnostics", len(diagnostics)),
		)
		r.observer.RenderFailed(job.ID, result.ErrorText)
	}
	return result, nil
}

// classifyExit turns a non-zero exit into failure text: collected
// diagnostics win, then the exit code, then the raw wait error for
// failures that carry no code.
func classifyExit(waitErr error, diagnostics []string) string {
	if len(diagnostics) > 0 {
		return strings.Join(diagnostics, "\n")
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return fmt.Sprintf("FFmpeg exited with code: %d", exitErr.ExitCode())
	}
	return waitErr.Error()
}
