package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// RenderLog captures the human-readable history of a single render: lifecycle
// transitions, sampled progress, and ffmpeg diagnostics. One file per job under
// the renders log directory.
type RenderLog struct {
	path string
	mu   sync.Mutex
	file *os.File
}

// OpenRenderLog creates (or appends to) the log file for the given job.
func OpenRenderLog(dir, jobID string) (*RenderLog, error) {
	dir = strings.TrimSpace(dir)
	jobID = strings.TrimSpace(jobID)
	if dir == "" || jobID == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create render log directory: %w", err)
	}
	path := filepath.Join(dir, jobID+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open render log %s: %w", path, err)
	}
	return &RenderLog{path: path, file: file}, nil
}

// Append writes a timestamped line. Failures are swallowed; render execution
// never stops because its log file became unwritable.
func (l *RenderLog) Append(message string) {
	if l == nil {
		return
	}
	line := "[" + time.Now().Format(logTimestampLayout) + "] " + message + "\n"
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	_, _ = l.file.WriteString(line)
}

// Appendf formats and writes a timestamped line.
func (l *RenderLog) Appendf(format string, args ...any) {
	if l == nil {
		return
	}
	l.Append(fmt.Sprintf(format, args...))
}

// Path returns the on-disk location of the render log.
func (l *RenderLog) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Close releases the log file handle.
func (l *RenderLog) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var err error
	if l.file != nil {
		err = l.file.Close()
	}
	l.file = nil
	return err
}

// RenderLogPath computes the log file location for a job without opening it.
func RenderLogPath(dir, jobID string) string {
	if strings.TrimSpace(dir) == "" || strings.TrimSpace(jobID) == "" {
		return ""
	}
	return filepath.Join(dir, jobID+".log")
}
