package feed

import (
	"testing"

	"github.com/dvloznov/firefly-classifier/internal/jobs"
	"github.com/dvloznov/firefly-classifier/internal/logger"
)

type staticLister struct {
	list []jobs.Job
}

func (l *staticLister) ListJobs() []jobs.Job {
	return l.list
}

type recordingObserver struct {
	messages []Message
}

func (o *recordingObserver) Notify(msg Message) {
	o.messages = append(o.messages, msg)
}

func TestHub_SnapshotOnSubscribe(t *testing.T) {
	lister := &staticLister{list: []jobs.Job{
		{ID: "a", Status: jobs.StatusFinished},
		{ID: "b", Status: jobs.StatusQueued},
	}}
	hub := NewHub(lister, logger.NewWithLevel("error"))

	observer := &recordingObserver{}
	hub.Subscribe(observer)

	if len(observer.messages) != 1 {
		t.Fatalf("Expected one snapshot message, got %d", len(observer.messages))
	}
	msg := observer.messages[0]
	if msg.Event != EventJobs {
		t.Errorf("Expected %q event, got %q", EventJobs, msg.Event)
	}
	snapshot, ok := msg.Data.([]jobs.Job)
	if !ok {
		t.Fatalf("Expected snapshot of jobs, got %T", msg.Data)
	}
	if len(snapshot) != 2 || snapshot[0].ID != "a" || snapshot[1].ID != "b" {
		t.Errorf("Snapshot order mismatch: %+v", snapshot)
	}
}

func TestHub_BroadcastAfterSnapshot(t *testing.T) {
	hub := NewHub(&staticLister{}, logger.NewWithLevel("error"))

	observer := &recordingObserver{}
	hub.Subscribe(observer)

	hub.JobCreated(jobs.Job{ID: "a", Status: jobs.StatusQueued})
	hub.JobUpdated(jobs.Job{ID: "a", Status: jobs.StatusInProgress})

	wantEvents := []string{EventJobs, EventJobCreated, EventJobUpdated}
	if len(observer.messages) != len(wantEvents) {
		t.Fatalf("Expected %d messages, got %d", len(wantEvents), len(observer.messages))
	}
	for i, want := range wantEvents {
		if observer.messages[i].Event != want {
			t.Errorf("Message %d: expected %q, got %q", i, want, observer.messages[i].Event)
		}
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub(&staticLister{}, logger.NewWithLevel("error"))

	observer := &recordingObserver{}
	hub.Subscribe(observer)
	hub.Unsubscribe(observer)

	hub.JobCreated(jobs.Job{ID: "a"})

	if len(observer.messages) != 1 {
		t.Errorf("Expected no events after unsubscribe, got %d messages", len(observer.messages))
	}

	// Unsubscribing twice is harmless.
	hub.Unsubscribe(observer)
}

func TestHub_MultipleObservers(t *testing.T) {
	hub := NewHub(&staticLister{}, logger.NewWithLevel("error"))

	first := &recordingObserver{}
	second := &recordingObserver{}
	hub.Subscribe(first)
	hub.Subscribe(second)

	hub.JobCreated(jobs.Job{ID: "a"})

	if len(first.messages) != 2 || len(second.messages) != 2 {
		t.Errorf("Expected both observers to receive the event, got %d and %d",
			len(first.messages), len(second.messages))
	}
}
