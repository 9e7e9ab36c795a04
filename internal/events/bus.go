package events

import (
	"sync"
	"time"

	"github.com/sharkye1/Szhimatar2/internal/render"
)

// Kind labels one render event on the bus.
type Kind string

const (
	KindProgress  Kind = "progress"
	KindStopped   Kind = "stopped"
	KindCompleted Kind = "completed"
	KindFailed    Kind = "failed"
	KindLog       Kind = "log"
)

// Event is one entry on the bus. Which optional fields are set depends on
// the kind: progress carries a snapshot, stopped the initiator, failed the
// error text, log a message.
type Event struct {
	Seq       uint64           `json:"seq"`
	Timestamp time.Time        `json:"ts"`
	Kind      Kind             `json:"kind"`
	JobID     string           `json:"job_id,omitempty"`
	Snapshot  *render.Snapshot `json:"snapshot,omitempty"`
	StoppedBy string           `json:"stopped_by,omitempty"`
	Error     string           `json:"error,omitempty"`
	Message   string           `json:"message,omitempty"`
}

// Bus is a bounded, sequence-numbered in-memory event buffer. Clients poll
// it with Since; once the ring wraps, older events are gone.
type Bus struct {
	mu       sync.Mutex
	capacity int
	buffer   []Event
	nextSeq  uint64
}

// NewBus constructs a bus holding up to capacity events.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Bus{capacity: capacity}
}

// Publish stamps the event with the next sequence number and a UTC
// timestamp (unless one is already set) and appends it, trimming the
// oldest entry when full. The stamped event is returned.
func (b *Bus) Publish(evt Event) Event {
	if b == nil {
		return evt
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	evt.Seq = b.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	if len(b.buffer) == b.capacity {
		copy(b.buffer, b.buffer[1:])
		b.buffer = b.buffer[:b.capacity-1]
	}
	b.buffer = append(b.buffer, evt)
	return evt
}

// Since returns the buffered events with sequence numbers greater than
// seq, oldest first.
func (b *Bus) Since(seq uint64) []Event {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := len(b.buffer)
	for i, evt := range b.buffer {
		if evt.Seq > seq {
			idx = i
			break
		}
	}
	if idx == len(b.buffer) {
		return nil
	}
	out := make([]Event, len(b.buffer)-idx)
	copy(out, b.buffer[idx:])
	return out
}

// Latest returns the sequence number of the most recent event, or 0 when
// nothing was published yet.
func (b *Bus) Latest() uint64 {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nextSeq
}
