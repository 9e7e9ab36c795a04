package render

// Observer receives lifecycle and progress callbacks for render jobs.
// Callbacks fire from per-job goroutines; implementations must be safe for
// concurrent use. A job produces exactly one terminal callback: stopped
// jobs do not additionally report as failed.
type Observer interface {
	RenderProgress(snapshot Snapshot)
	RenderStopped(jobID, stoppedBy string)
	RenderCompleted(jobID string)
	RenderFailed(jobID, errorText string)
}

// NopObserver satisfies Observer and discards everything.
type NopObserver struct{}

func (NopObserver) RenderProgress(Snapshot)      {}
func (NopObserver) RenderStopped(string, string) {}
func (NopObserver) RenderCompleted(string)       {}
func (NopObserver) RenderFailed(string, string)  {}

// FanoutObserver relays each callback to every member in order.
type FanoutObserver []Observer

func (f FanoutObserver) RenderProgress(snapshot Snapshot) {
	for _, o := range f {
		o.RenderProgress(snapshot)
	}
}

func (f FanoutObserver) RenderStopped(jobID, stoppedBy string) {
	for _, o := range f {
		o.RenderStopped(jobID, stoppedBy)
	}
}

func (f FanoutObserver) RenderCompleted(jobID string) {
	for _, o := range f {
		o.RenderCompleted(jobID)
	}
}

func (f FanoutObserver) RenderFailed(jobID, errorText string) {
	for _, o := range f {
		o.RenderFailed(jobID, errorText)
	}
}
