package events

import (
	"testing"

	"github.com/sharkye1/Szhimatar2/internal/render"
)

func TestPublishAssignsSequenceAndTimestamp(t *testing.T) {
	bus := NewBus(8)

	first := bus.Publish(Event{Kind: KindCompleted, JobID: "job-1"})
	second := bus.Publish(Event{Kind: KindFailed, JobID: "job-2", Error: "boom"})

	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("sequences = %d, %d, want 1, 2", first.Seq, second.Seq)
	}
	if first.Timestamp.IsZero() || second.Timestamp.IsZero() {
		t.Fatal("expected timestamps to be stamped")
	}
	if bus.Latest() != 2 {
		t.Fatalf("Latest = %d, want 2", bus.Latest())
	}
}

func TestSinceReturnsOnlyNewerEvents(t *testing.T) {
	bus := NewBus(8)
	for i := 0; i < 5; i++ {
		bus.Publish(Event{Kind: KindProgress, JobID: "job-1"})
	}

	got := bus.Since(3)
	if len(got) != 2 {
		t.Fatalf("Since(3) returned %d events, want 2", len(got))
	}
	if got[0].Seq != 4 || got[1].Seq != 5 {
		t.Fatalf("sequences = %d, %d, want 4, 5", got[0].Seq, got[1].Seq)
	}

	if events := bus.Since(5); events != nil {
		t.Fatalf("Since(latest) = %v, want nil", events)
	}
}

func TestRingTrimsOldestAtCapacity(t *testing.T) {
	bus := NewBus(3)
	for i := 0; i < 5; i++ {
		bus.Publish(Event{Kind: KindLog, Message: "line"})
	}

	got := bus.Since(0)
	if len(got) != 3 {
		t.Fatalf("retained %d events, want 3", len(got))
	}
	if got[0].Seq != 3 || got[2].Seq != 5 {
		t.Fatalf("retained sequences = %d..%d, want 3..5", got[0].Seq, got[2].Seq)
	}
}

func TestSinkTranslatesObserverCallbacks(t *testing.T) {
	bus := NewBus(8)
	sink := NewSink(bus)

	sink.RenderProgress(render.Snapshot{JobID: "job-1", Percent: 25})
	sink.RenderStopped("job-1", render.StoppedByUser)
	sink.RenderCompleted("job-2")
	sink.RenderFailed("job-3", "decode error")

	got := bus.Since(0)
	if len(got) != 4 {
		t.Fatalf("published %d events, want 4", len(got))
	}
	if got[0].Kind != KindProgress || got[0].Snapshot == nil || got[0].Snapshot.Percent != 25 {
		t.Errorf("progress event = %+v", got[0])
	}
	if got[1].Kind != KindStopped || got[1].StoppedBy != render.StoppedByUser {
		t.Errorf("stopped event = %+v", got[1])
	}
	if got[2].Kind != KindCompleted || got[2].JobID != "job-2" {
		t.Errorf("completed event = %+v", got[2])
	}
	if got[3].Kind != KindFailed || got[3].Error != "decode error" {
		t.Errorf("failed event = %+v", got[3])
	}
}
