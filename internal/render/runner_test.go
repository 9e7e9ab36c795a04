package render_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sharkye1/Szhimatar2/internal/render"
	"github.com/sharkye1/Szhimatar2/internal/services"
	"github.com/sharkye1/Szhimatar2/internal/testsupport"
)

// eventRecorder captures observer callbacks for assertions. Shared by the
// runner, canceller, and manager tests in this package.
type eventRecorder struct {
	mu        sync.Mutex
	progress  []render.Snapshot
	stopped   []string
	completed []string
	failed    map[string]string
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{failed: make(map[string]string)}
}

func (r *eventRecorder) RenderProgress(snap render.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, snap)
}

func (r *eventRecorder) RenderStopped(jobID, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = append(r.stopped, jobID)
}

func (r *eventRecorder) RenderCompleted(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, jobID)
}

func (r *eventRecorder) RenderFailed(jobID, errorText string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[jobID] = errorText
}

func (r *eventRecorder) counts() (progress, stopped, completed, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.progress), len(r.stopped), len(r.completed), len(r.failed)
}

func (r *eventRecorder) snapshots() []render.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]render.Snapshot(nil), r.progress...)
}

func (r *eventRecorder) stoppedJobs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.stopped...)
}

func (r *eventRecorder) completedJobs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.completed...)
}

func (r *eventRecorder) failedText(jobID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	text, ok := r.failed[jobID]
	return text, ok
}

// waitUntil polls cond until it reports true or the timeout expires.
func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func newTestRunner(t *testing.T, script string) (*render.Runner, *render.Registry, *eventRecorder) {
	t.Helper()
	reg := render.NewRegistry()
	rec := newEventRecorder()
	launcher := render.NewLauncher(script, reg, nil)
	return render.NewRunner(launcher, reg, rec, nil), reg, rec
}

func TestRunnerSuccessEmitsProgressAndCompletion(t *testing.T) {
	dir := t.TempDir()
	script := testsupport.WriteExecutable(t, filepath.Join(dir, "ffmpeg"), `#!/bin/sh
printf 'frame=10\n'
printf 'fps=20.0\n'
printf 'out_time_ms=2000000\n'
printf 'speed=2.0x\n'
printf 'progress=continue\n'
printf 'out_time_ms=4000000\n'
printf 'progress=end\n'
exit 0
`)
	runner, reg, rec := newTestRunner(t, script)

	job := render.Job{ID: "job-1", InputPath: "/in.mkv", OutputPath: "/out.mkv", DurationSeconds: 8}
	result, err := runner.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Success {
		t.Fatalf("result = %+v, want success", result)
	}
	if result.ErrorText != "" {
		t.Errorf("ErrorText = %q, want empty", result.ErrorText)
	}
	if result.OutputPath != "/out.mkv" {
		t.Errorf("OutputPath = %q, want /out.mkv", result.OutputPath)
	}
	if reg.ActiveCount() != 0 {
		t.Errorf("registry not empty after run: %v", reg.ActiveJobs())
	}

	snaps := rec.snapshots()
	if len(snaps) != 2 {
		t.Fatalf("got %d progress snapshots, want 2", len(snaps))
	}
	if snaps[0].Percent != 25 || snaps[1].Percent != 50 {
		t.Errorf("percents = %v, %v, want 25, 50", snaps[0].Percent, snaps[1].Percent)
	}
	if got := rec.completedJobs(); len(got) != 1 || got[0] != "job-1" {
		t.Errorf("completed events = %v, want [job-1]", got)
	}
	if _, _, _, failed := rec.counts(); failed != 0 {
		t.Errorf("unexpected failed events: %d", failed)
	}
}

func TestRunnerFailureJoinsDiagnostics(t *testing.T) {
	dir := t.TempDir()
	script := testsupport.WriteExecutable(t, filepath.Join(dir, "ffmpeg"), `#!/bin/sh
echo 'Error while decoding stream #0:0' >&2
echo 'Invalid data found when processing input' >&2
exit 1
`)
	runner, reg, rec := newTestRunner(t, script)

	result, err := runner.Run(context.Background(), render.Job{ID: "job-1", InputPath: "/in.mkv", OutputPath: "/out.mkv"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Success {
		t.Fatalf("result = %+v, want failure", result)
	}
	want := "Error while decoding stream #0:0\nInvalid data found when processing input"
	if result.ErrorText != want {
		t.Errorf("ErrorText = %q, want %q", result.ErrorText, want)
	}
	if text, ok := rec.failedText("job-1"); !ok || text != want {
		t.Errorf("failed event text = %q (present=%v), want %q", text, ok, want)
	}
	if reg.ActiveCount() != 0 {
		t.Errorf("registry not empty after run")
	}
}

func TestRunnerFailureWithoutDiagnosticsReportsExitCode(t *testing.T) {
	dir := t.TempDir()
	script := testsupport.WriteExecutable(t, filepath.Join(dir, "ffmpeg"), "#!/bin/sh\nexit 3\n")
	runner, _, rec := newTestRunner(t, script)

	result, err := runner.Run(context.Background(), render.Job{ID: "job-1", InputPath: "/in.mkv", OutputPath: "/out.mkv"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Success {
		t.Fatalf("result = %+v, want failure", result)
	}
	if result.ErrorText != "FFmpeg exited with code: 3" {
		t.Errorf("ErrorText = %q, want %q", result.ErrorText, "FFmpeg exited with code: 3")
	}
	if text, ok := rec.failedText("job-1"); !ok || text != result.ErrorText {
		t.Errorf("failed event text = %q (present=%v)", text, ok)
	}
}

func TestRunnerIgnoresHarmlessStderrNoise(t *testing.T) {
	dir := t.TempDir()
	script := testsupport.WriteExecutable(t, filepath.Join(dir, "ffmpeg"), `#!/bin/sh
echo 'Stream mapping:' >&2
echo '  Stream #0:0 -> #0:0 (h264 -> hevc)' >&2
exit 0
`)
	runner, _, rec := newTestRunner(t, script)

	result, err := runner.Run(context.Background(), render.Job{ID: "job-1", InputPath: "/in.mkv", OutputPath: "/out.mkv"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Success || result.ErrorText != "" {
		t.Errorf("result = %+v, want clean success", result)
	}
	if _, _, completed, failed := rec.counts(); completed != 1 || failed != 0 {
		t.Errorf("events: completed=%d failed=%d, want 1/0", completed, failed)
	}
}

func TestRunnerStopClassificationBeatsExitFailure(t *testing.T) {
	dir := t.TempDir()
	// exec replaces the shell so the kill hits the sleeping process itself
	// and both pipes reach EOF immediately.
	script := testsupport.WriteExecutable(t, filepath.Join(dir, "ffmpeg"), "#!/bin/sh\nexec sleep 30\n")
	runner, reg, rec := newTestRunner(t, script)

	type runResult struct {
		result render.Result
		err    error
	}
	done := make(chan runResult, 1)
	go func() {
		result, err := runner.Run(context.Background(), render.Job{ID: "job-1", InputPath: "/in.mkv", OutputPath: "/out.mkv"})
		done <- runResult{result, err}
	}()

	waitUntil(t, 5*time.Second, func() bool {
		_, ok := reg.PID("job-1")
		return ok
	})
	pid, _ := reg.PID("job-1")
	if !reg.MarkStopped("job-1") {
		t.Fatalf("MarkStopped failed for active job")
	}
	if err := (render.OSTerminator{}).Kill(pid); err != nil {
		t.Fatalf("kill %d: %v", pid, err)
	}

	var got runResult
	select {
	case got = <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("runner did not return after kill")
	}
	if got.err != nil {
		t.Fatalf("Run: %v", got.err)
	}
	if got.result.Success {
		t.Fatalf("result = %+v, want stopped failure", got.result)
	}
	if got.result.ErrorText != render.StoppedErrorText {
		t.Errorf("ErrorText = %q, want %q", got.result.ErrorText, render.StoppedErrorText)
	}
	// The runner itself announces nothing for a stop; that event belongs to
	// the canceller.
	if _, stopped, completed, failed := rec.counts(); stopped != 0 || completed != 0 || failed != 0 {
		t.Errorf("events: stopped=%d completed=%d failed=%d, want none", stopped, completed, failed)
	}
	if reg.ActiveCount() != 0 {
		t.Errorf("registry not empty after stop")
	}
}

func TestRunnerSpawnFailureEmitsNothing(t *testing.T) {
	runner, reg, rec := newTestRunner(t, filepath.Join(t.TempDir(), "missing-binary"))

	_, err := runner.Run(context.Background(), render.Job{ID: "job-1", InputPath: "/in.mkv", OutputPath: "/out.mkv"})
	if err == nil {
		t.Fatalf("Run with missing binary succeeded")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Errorf("error = %v, want ErrExternalTool marker", err)
	}
	if progress, stopped, completed, failed := rec.counts(); progress+stopped+completed+failed != 0 {
		t.Errorf("events emitted for failed spawn: %d/%d/%d/%d", progress, stopped, completed, failed)
	}
	if reg.ActiveCount() != 0 {
		t.Errorf("registry not empty after failed spawn")
	}
}
