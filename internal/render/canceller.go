package render

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/sharkye1/Szhimatar2/internal/logging"
)

// Canceller stops running jobs by PID. It never touches the runner-owned
// exec handle: it marks the stop intent in the registry, fires the kill,
// and announces the stop. The runner picks the intent up when the process
// exits and classifies the outcome as stopped.
type Canceller struct {
	registry   *Registry
	terminator Terminator
	observer   Observer
	logger     *slog.Logger
}

// NewCanceller wires a canceller over the shared registry.
func NewCanceller(registry *Registry, terminator Terminator, observer Observer, logger *slog.Logger) *Canceller {
	if terminator == nil {
		terminator = OSTerminator{}
	}
	if observer == nil {
		observer = NopObserver{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Canceller{
		registry:   registry,
		terminator: terminator,
		observer:   observer,
		logger:     logger,
	}
}

// Stop requests termination of one job. Unknown IDs return false and dump
// the active set to the log for diagnosis. For known jobs the stop flag is
// set before the kill, the kill itself is fire-and-forget, and the stopped
// event is always announced.
func (c *Canceller) Stop(jobID string) bool {
	pid, ok := c.registry.PID(jobID)
	if !ok {
		c.logger.Warn("stop requested for unknown job",
			logging.String(logging.FieldJobID, jobID),
			logging.Int("active_jobs", c.registry.ActiveCount()),
			logging.String("active", strings.Join(c.registry.ActiveJobs(), ", ")),
		)
		return false
	}
	c.registry.MarkStopped(jobID)
	if err := c.terminator.Kill(pid); err != nil {
		c.logger.Warn("kill signal failed",
			logging.String(logging.FieldJobID, jobID),
			logging.Int("pid", pid),
			logging.Error(err),
		)
	} else {
		c.logger.Info("stop signal sent",
			logging.String(logging.FieldJobID, jobID),
			logging.Int("pid", pid),
			logging.String("stopped_by", StoppedByUser),
		)
	}
	c.observer.RenderStopped(jobID, StoppedByUser)
	return true
}

// StopAll stops every active job from a point-in-time snapshot and returns
// the number of jobs signalled. Jobs that finish between the snapshot and
// the mark are skipped silently.
func (c *Canceller) StopAll() int {
	pids := c.registry.ActivePIDs()
	ids := make([]string, 0, len(pids))
	for id := range pids {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	stopped := 0
	for _, id := range ids {
		if !c.registry.MarkStopped(id) {
			continue
		}
		if err := c.terminator.Kill(pids[id]); err != nil {
			c.logger.Warn("kill signal failed",
				logging.String(logging.FieldJobID, id),
				logging.Int("pid", pids[id]),
				logging.Error(err),
			)
		}
		c.observer.RenderStopped(id, StoppedByUser)
		stopped++
	}
	if stopped > 0 {
		c.logger.Info("stopped all renders", logging.Int("count", stopped))
	}
	return stopped
}
