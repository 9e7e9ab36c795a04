package events

import "github.com/sharkye1/Szhimatar2/internal/render"

// Sink adapts the render observer callbacks onto the bus. The manager
// fans its events through one of these so IPC clients can poll them.
type Sink struct {
	bus *Bus
}

func NewSink(bus *Bus) *Sink {
	return &Sink{bus: bus}
}

func (s *Sink) RenderProgress(snap render.Snapshot) {
	s.bus.Publish(Event{Kind: KindProgress, JobID: snap.JobID, Snapshot: &snap})
}

func (s *Sink) RenderStopped(jobID, stoppedBy string) {
	s.bus.Publish(Event{Kind: KindStopped, JobID: jobID, StoppedBy: stoppedBy})
}

func (s *Sink) RenderCompleted(jobID string) {
	s.bus.Publish(Event{Kind: KindCompleted, JobID: jobID})
}

func (s *Sink) RenderFailed(jobID, errorText string) {
	s.bus.Publish(Event{Kind: KindFailed, JobID: jobID, Error: errorText})
}
