package daemon_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/sharkye1/Szhimatar2/internal/daemon"
	"github.com/sharkye1/Szhimatar2/internal/events"
	"github.com/sharkye1/Szhimatar2/internal/logging"
	"github.com/sharkye1/Szhimatar2/internal/media/ffprobe"
	"github.com/sharkye1/Szhimatar2/internal/presets"
	"github.com/sharkye1/Szhimatar2/internal/render"
	"github.com/sharkye1/Szhimatar2/internal/testsupport"
)

func newTestDaemon(t *testing.T) *daemon.Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStats(t, cfg)
	logger := logging.NewNop()

	d, err := daemon.New(cfg, logger, daemon.Components{
		Manager: render.NewManager(cfg, logger),
		Presets: presets.NewStore(cfg.Paths.PresetsDir, logger),
		Stats:   store,
		Prober:  ffprobe.NewClient(cfg.FFprobeBinary(), logger),
		Events:  events.NewBus(16),
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newTestDaemon(t)

	if err := d.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status()
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.PID != os.Getpid() {
		t.Fatalf("status PID = %d, want %d", status.PID, os.Getpid())
	}
	if !strings.HasSuffix(status.SocketPath, "szhimatar.sock") {
		t.Fatalf("unexpected socket path %q", status.SocketPath)
	}

	if err := d.Start(); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonWritesAndRemovesPIDFile(t *testing.T) {
	d := newTestDaemon(t)

	if err := d.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status()
	pidPath := strings.TrimSuffix(status.LockPath, "szhimatard.lock") + "szhimatard.pid"
	data, err := os.ReadFile(pidPath)
	if err != nil {
		t.Fatalf("read pid file: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got == "" {
		t.Fatal("pid file is empty")
	}

	d.Stop()
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Fatalf("expected pid file to be removed, stat err = %v", err)
	}
}

func TestDaemonRequiresCoreComponents(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	logger := logging.NewNop()

	_, err := daemon.New(cfg, logger, daemon.Components{})
	if err == nil {
		t.Fatal("expected error for missing components")
	}
}

func TestTestNotificationWithoutTopic(t *testing.T) {
	d := newTestDaemon(t)

	sent, message, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("TestNotification returned error: %v", err)
	}
	if sent {
		t.Fatal("expected notification to be skipped without a topic")
	}
	if message != "ntfy topic not configured" {
		t.Fatalf("unexpected message %q", message)
	}
}
