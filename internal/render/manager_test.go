package render_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sharkye1/Szhimatar2/internal/config"
	"github.com/sharkye1/Szhimatar2/internal/render"
	"github.com/sharkye1/Szhimatar2/internal/services"
	"github.com/sharkye1/Szhimatar2/internal/testsupport"
)

type fakeProber struct {
	mu       sync.Mutex
	paths    []string
	duration float64
	err      error
}

func (p *fakeProber) DurationSeconds(_ context.Context, path string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, path)
	return p.duration, p.err
}

func (p *fakeProber) probed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.paths...)
}

type fakeHistory struct {
	mu   sync.Mutex
	rows []render.HistoryRecord
}

func (h *fakeHistory) RecordRender(_ context.Context, rec render.HistoryRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rows = append(h.rows, rec)
	return nil
}

func (h *fakeHistory) records() []render.HistoryRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]render.HistoryRecord(nil), h.rows...)
}

type fakeNotifier struct {
	mu        sync.Mutex
	completed []string
	failed    []string
	stopped   []string
}

func (n *fakeNotifier) RenderCompleted(_ context.Context, title string, _ time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, title)
}

func (n *fakeNotifier) RenderFailed(_ context.Context, title, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, title)
}

func (n *fakeNotifier) RenderStopped(_ context.Context, title string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopped = append(n.stopped, title)
}

func (n *fakeNotifier) sent() (completed, failed, stopped []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.completed...),
		append([]string(nil), n.failed...),
		append([]string(nil), n.stopped...)
}

const managerTestScript = `#!/bin/sh
printf 'frame=10\n'
printf 'out_time_ms=2000000\n'
printf 'speed=2.0x\n'
printf 'progress=end\n'
exit 0
`

func newTestManager(t *testing.T, scriptBody string, extra ...render.ManagerOption) (*render.Manager, *config.Config, *eventRecorder, *fakeHistory, *fakeNotifier) {
	t.Helper()
	dir := t.TempDir()
	script := testsupport.WriteExecutable(t, filepath.Join(dir, "ffmpeg"), scriptBody)
	cfg := testsupport.NewConfig(t, testsupport.WithFFmpeg(script))

	rec := newEventRecorder()
	history := &fakeHistory{}
	notifier := &fakeNotifier{}
	opts := append([]render.ManagerOption{
		render.WithObserver(rec),
		render.WithHistory(history),
		render.WithNotifier(notifier),
	}, extra...)
	return render.NewManager(cfg, nil, opts...), cfg, rec, history, notifier
}

func TestManagerHappyPathRecordsEverything(t *testing.T) {
	prober := &fakeProber{duration: 8}
	m, cfg, rec, history, notifier := newTestManager(t, managerTestScript, render.WithProber(prober))

	inputDir := t.TempDir()
	input := filepath.Join(inputDir, "Dune.Part.Two.2024.mkv")
	testsupport.WriteFile(t, input, 2048)

	started, err := m.StartRender(context.Background(), render.StartRequest{InputPath: input})
	if err != nil {
		t.Fatalf("StartRender: %v", err)
	}
	if started.JobID == "" {
		t.Fatalf("no job ID assigned")
	}
	if started.Title != "Dune Part Two 2024" {
		t.Errorf("Title = %q, want %q", started.Title, "Dune Part Two 2024")
	}
	wantOutput := filepath.Join(inputDir, "Dune.Part.Two.2024_szhatoe.mkv")
	if started.OutputPath != wantOutput {
		t.Errorf("OutputPath = %q, want %q", started.OutputPath, wantOutput)
	}
	if started.Duration != 8 {
		t.Errorf("Duration = %v, want 8", started.Duration)
	}
	if got := prober.probed(); len(got) != 1 || got[0] != input {
		t.Errorf("probed paths = %v, want [%s]", got, input)
	}

	waitUntil(t, 10*time.Second, func() bool {
		_, _, completed, _ := rec.counts()
		return completed == 1 && m.ActiveCount() == 0
	})

	if got := rec.completedJobs(); len(got) != 1 || got[0] != started.JobID {
		t.Errorf("completed events = %v, want [%s]", got, started.JobID)
	}
	snaps := rec.snapshots()
	if len(snaps) != 1 || snaps[0].Percent != 25 {
		t.Errorf("snapshots = %+v, want one at 25%%", snaps)
	}

	waitUntil(t, 5*time.Second, func() bool { return len(history.records()) == 1 })
	row := history.records()[0]
	if row.JobID != started.JobID || row.Outcome != render.OutcomeCompleted {
		t.Errorf("history row = %+v, want completed %s", row, started.JobID)
	}
	if row.Title != "Dune Part Two 2024" || row.ErrorText != "" {
		t.Errorf("history row = %+v", row)
	}
	if row.DurationSeconds != 8 || row.ElapsedSeconds < 0 {
		t.Errorf("history durations = %v/%v", row.DurationSeconds, row.ElapsedSeconds)
	}
	if row.FinishedAt.Before(row.StartedAt) {
		t.Errorf("FinishedAt %v before StartedAt %v", row.FinishedAt, row.StartedAt)
	}

	logPath := filepath.Join(cfg.RenderLogDir(), started.JobID+".log")
	waitUntil(t, 5*time.Second, func() bool {
		data, err := os.ReadFile(logPath)
		return err == nil && strings.Contains(string(data), "status: success")
	})
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read render log: %v", err)
	}
	if !strings.Contains(string(data), "Starting render job: "+input) {
		t.Errorf("render log missing start line:\n%s", data)
	}

	completed, failed, stopped := notifier.sent()
	if len(completed) != 1 || completed[0] != "Dune Part Two 2024" {
		t.Errorf("completion notifications = %v", completed)
	}
	if len(failed)+len(stopped) != 0 {
		t.Errorf("unexpected notifications: failed=%v stopped=%v", failed, stopped)
	}
}

func TestManagerRejectsActiveDuplicateJob(t *testing.T) {
	m, _, rec, _, _ := newTestManager(t, "#!/bin/sh\nexec sleep 30\n")

	input := filepath.Join(t.TempDir(), "in.mkv")
	testsupport.WriteFile(t, input, 1024)
	req := render.StartRequest{JobID: "dup", InputPath: input, DurationSeconds: 4}

	if _, err := m.StartRender(context.Background(), req); err != nil {
		t.Fatalf("StartRender: %v", err)
	}
	waitUntil(t, 5*time.Second, func() bool { return m.ActiveCount() == 1 })

	active := m.Active()
	if len(active) != 1 || active[0].JobID != "dup" {
		t.Fatalf("Active() = %+v, want one entry for dup", active)
	}
	if active[0].PID <= 0 {
		t.Errorf("active PID = %d, want > 0", active[0].PID)
	}

	_, err := m.StartRender(context.Background(), req)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("duplicate StartRender error = %v, want ErrValidation", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if got := rec.stoppedJobs(); len(got) != 1 || got[0] != "dup" {
		t.Errorf("stopped events = %v, want [dup]", got)
	}
	if m.ActiveCount() != 0 {
		t.Errorf("ActiveCount = %d after shutdown", m.ActiveCount())
	}
}

func TestManagerStartValidation(t *testing.T) {
	m, _, _, _, _ := newTestManager(t, managerTestScript)
	input := filepath.Join(t.TempDir(), "in.mkv")
	testsupport.WriteFile(t, input, 1024)

	tests := []struct {
		name string
		req  render.StartRequest
		want error
	}{
		{"empty input", render.StartRequest{}, services.ErrValidation},
		{"missing input", render.StartRequest{InputPath: "/no/such/file.mkv"}, services.ErrValidation},
		{"preset without store", render.StartRequest{InputPath: input, Preset: "fast"}, services.ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.StartRender(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("StartRender error = %v, want %v marker", err, tt.want)
			}
		})
	}
}

func TestManagerRejectsMissingFFmpeg(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFFmpeg(filepath.Join(t.TempDir(), "no-ffmpeg")))
	m := render.NewManager(cfg, nil)
	input := filepath.Join(t.TempDir(), "in.mkv")
	testsupport.WriteFile(t, input, 1024)

	_, err := m.StartRender(context.Background(), render.StartRequest{InputPath: input})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("StartRender error = %v, want ErrExternalTool marker", err)
	}
}

func TestManagerSpawnFailureProducesFailedOutcome(t *testing.T) {
	// The exec bit satisfies the lookup check, the dead interpreter makes
	// the actual spawn fail after the job was accepted.
	m, _, rec, history, notifier := newTestManager(t, "#!/no/such/interpreter\n")

	input := filepath.Join(t.TempDir(), "in.mkv")
	testsupport.WriteFile(t, input, 1024)
	started, err := m.StartRender(context.Background(), render.StartRequest{InputPath: input, DurationSeconds: 4})
	if err != nil {
		t.Fatalf("StartRender: %v", err)
	}

	waitUntil(t, 10*time.Second, func() bool {
		_, _, _, failed := rec.counts()
		return failed == 1 && m.ActiveCount() == 0
	})
	if text, ok := rec.failedText(started.JobID); !ok || text == "" {
		t.Errorf("failed event text = %q (present=%v)", text, ok)
	}

	waitUntil(t, 5*time.Second, func() bool { return len(history.records()) == 1 })
	row := history.records()[0]
	if row.Outcome != render.OutcomeFailed || row.ErrorText == "" {
		t.Errorf("history row = %+v, want failed with error text", row)
	}
	if _, failed, _ := notifier.sent(); len(failed) != 1 {
		t.Errorf("failure notifications = %v, want one", failed)
	}
}

func TestManagerStoppedRenderRecordsStoppedOutcome(t *testing.T) {
	m, _, rec, history, notifier := newTestManager(t, "#!/bin/sh\nexec sleep 30\n")

	input := filepath.Join(t.TempDir(), "in.mkv")
	testsupport.WriteFile(t, input, 1024)
	started, err := m.StartRender(context.Background(), render.StartRequest{InputPath: input, DurationSeconds: 4})
	if err != nil {
		t.Fatalf("StartRender: %v", err)
	}
	waitUntil(t, 5*time.Second, func() bool { return m.ActiveCount() == 1 })

	if !m.Stop(started.JobID) {
		t.Fatalf("Stop returned false for active job")
	}
	waitUntil(t, 10*time.Second, func() bool { return len(history.records()) == 1 })

	row := history.records()[0]
	if row.Outcome != render.OutcomeStopped {
		t.Errorf("history outcome = %q, want %q", row.Outcome, render.OutcomeStopped)
	}
	if got := rec.stoppedJobs(); len(got) != 1 || got[0] != started.JobID {
		t.Errorf("stopped events = %v, want [%s]", got, started.JobID)
	}
	if _, _, stopped := notifier.sent(); len(stopped) != 1 {
		t.Errorf("stop notifications = %v, want one", stopped)
	}
}

func TestDeriveOutputPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"/media/in/movie.mkv", "/media/in/movie_szhatoe.mkv"},
		{"/media/in/My.Movie.2024.mp4", "/media/in/My.Movie.2024_szhatoe.mp4"},
		{"/media/in/noext", "/media/in/noext_szhatoe"},
	}
	for _, tt := range tests {
		if got := render.DeriveOutputPath(tt.input, "_szhatoe"); got != tt.want {
			t.Errorf("deriveOutputPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestResolveArgsDefaultsAndMergeOrder(t *testing.T) {
	m, _, _, _, _ := newTestManager(t, managerTestScript)

	args, err := m.ResolveArgs(render.StartRequest{})
	if err != nil {
		t.Fatalf("resolveArgs: %v", err)
	}
	want := []string{"-c:v", "libx264", "-c:a", "aac"}
	if len(args) != len(want) {
		t.Fatalf("default args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("default args = %v, want %v", args, want)
		}
	}

	args, err = m.ResolveArgs(render.StartRequest{Args: []string{"-crf", "20"}})
	if err != nil {
		t.Fatalf("resolveArgs: %v", err)
	}
	if len(args) != 2 || args[0] != "-crf" {
		t.Errorf("explicit args = %v, want [-crf 20] without codec defaults", args)
	}
}
