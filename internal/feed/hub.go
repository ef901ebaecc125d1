// Package feed fans job lifecycle events out to connected observers.
// It is an explicit registry: observers subscribe and unsubscribe, and
// every subscriber first receives a snapshot of all existing jobs before
// any further events. There is no replay; events missed while
// disconnected are lost.
package feed

import (
	"sync"

	"github.com/dvloznov/firefly-classifier/internal/jobs"
	"github.com/rs/zerolog"
)

// Events pushed over the feed.
const (
	EventJobs       = "jobs"
	EventJobCreated = "job created"
	EventJobUpdated = "job updated"
)

// Message is one feed frame.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Observer receives feed messages. Notify must not block; slow observers
// are expected to drop themselves.
type Observer interface {
	Notify(msg Message)
}

// JobLister supplies the snapshot sent on subscribe.
type JobLister interface {
	ListJobs() []jobs.Job
}

// Hub is the observer registry. It implements jobs.Notifier so the job
// store can push every change through it.
type Hub struct {
	mu        sync.Mutex
	lister    JobLister
	observers map[Observer]struct{}
	log       zerolog.Logger
}

// NewHub creates a Hub that snapshots from the given lister.
func NewHub(lister JobLister, log zerolog.Logger) *Hub {
	return &Hub{
		lister:    lister,
		observers: make(map[Observer]struct{}),
		log:       log,
	}
}

// Subscribe registers an observer. The full ordered job list is delivered
// to it before any event that arrives after this call.
func (h *Hub) Subscribe(o Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	o.Notify(Message{Event: EventJobs, Data: h.lister.ListJobs()})
	h.observers[o] = struct{}{}
}

// Unsubscribe removes an observer. Safe to call more than once.
func (h *Hub) Unsubscribe(o Observer) {
	h.mu.Lock()
	delete(h.observers, o)
	h.mu.Unlock()
}

// JobCreated implements jobs.Notifier.
func (h *Hub) JobCreated(job jobs.Job) {
	h.broadcast(Message{Event: EventJobCreated, Data: job})
}

// JobUpdated implements jobs.Notifier.
func (h *Hub) JobUpdated(job jobs.Job) {
	h.broadcast(Message{Event: EventJobUpdated, Data: job})
}

func (h *Hub) broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for o := range h.observers {
		o.Notify(msg)
	}
}
