package render

import (
	"sort"
	"sync"
	"time"
)

// ProcessRecord tracks a live FFmpeg process. The exec handle stays with
// the runner that spawned it; the registry carries only the metadata
// needed to look a job up and signal it from another goroutine.
type ProcessRecord struct {
	JobID      string
	PID        int
	StartedAt  time.Time
	InputPath  string
	OutputPath string
}

// Registry is the authoritative map of live render processes plus the set
// of jobs a stop has been requested for. The stop set only ever holds
// currently registered IDs: unregistering clears the flag, so a reused job
// ID can never inherit a stale stop.
//
// All operations take a single mutex and do pure map work inside it.
type Registry struct {
	mu      sync.Mutex
	records map[string]ProcessRecord
	stopped map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]ProcessRecord),
		stopped: make(map[string]struct{}),
	}
}

// Register adds the record, replacing any previous record under the same
// job ID.
func (r *Registry) Register(rec ProcessRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.JobID] = rec
}

// Unregister drops the job's record and clears any pending stop flag.
// Unknown IDs are a no-op, so cleanup paths can call it unconditionally.
func (r *Registry) Unregister(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, jobID)
	delete(r.stopped, jobID)
}

// MarkStopped flags the job as stopped by request. Returns false when no
// record exists; the flag is never set for unregistered jobs.
func (r *Registry) MarkStopped(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[jobID]; !ok {
		return false
	}
	r.stopped[jobID] = struct{}{}
	return true
}

// TakeStopped reports and clears the job's stop flag in one step. A second
// call returns false until the flag is set again.
func (r *Registry) TakeStopped(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stopped[jobID]; !ok {
		return false
	}
	delete(r.stopped, jobID)
	return true
}

// PID returns the process ID for a registered job.
func (r *Registry) PID(jobID string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[jobID]
	return rec.PID, ok
}

// Record returns a copy of the job's record.
func (r *Registry) Record(jobID string) (ProcessRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[jobID]
	return rec, ok
}

// ActiveJobs lists registered job IDs in sorted order.
func (r *Registry) ActiveJobs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ActivePIDs returns a snapshot of job ID to process ID for every
// registered job.
func (r *Registry) ActivePIDs() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	pids := make(map[string]int, len(r.records))
	for id, rec := range r.records {
		pids[id] = rec.PID
	}
	return pids
}

// ActiveCount reports the number of registered jobs.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
