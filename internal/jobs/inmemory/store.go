package inmemory

import (
	"sync"
	"time"

	"github.com/dvloznov/firefly-classifier/internal/jobs"
	"github.com/google/uuid"
)

// Store is an in-memory implementation of jobs.Store. Jobs are kept in
// insertion order and are never deleted; data is lost on restart, which
// matches the process-lifetime retention contract.
type Store struct {
	mu       sync.RWMutex
	jobs     map[string]*jobs.Job
	order    []string
	notifier jobs.Notifier
}

// NewStore creates an empty in-memory job store.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*jobs.Job),
	}
}

// SetNotifier registers the observer fan-out for job events. Must be
// called before the store receives traffic.
func (s *Store) SetNotifier(n jobs.Notifier) {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

// CreateJob implements jobs.Store.
func (s *Store) CreateJob(data map[string]string) jobs.Job {
	job := &jobs.Job{
		ID:        uuid.New().String(),
		Status:    jobs.StatusQueued,
		CreatedAt: time.Now(),
		Data:      make(map[string]string, len(data)),
	}
	for k, v := range data {
		job.Data[k] = v
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	notifier := s.notifier
	snapshot := copyJob(job)
	s.mu.Unlock()

	if notifier != nil {
		notifier.JobCreated(snapshot)
	}
	return snapshot
}

// SetInProgress implements jobs.Store.
func (s *Store) SetInProgress(id string) {
	s.advance(id, jobs.StatusInProgress)
}

// SetFinished implements jobs.Store.
func (s *Store) SetFinished(id string) {
	s.advance(id, jobs.StatusFinished)
}

// SetFailed implements jobs.Store.
func (s *Store) SetFailed(id string) {
	s.advance(id, jobs.StatusFailed)
}

// advance moves a job to the given status if that is a forward step.
// Backward or repeated transitions are ignored, which makes late writes
// from a timed-out task harmless.
func (s *Store) advance(id string, status jobs.Status) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok || !job.Status.CanAdvanceTo(status) {
		s.mu.Unlock()
		return
	}
	job.Status = status
	notifier := s.notifier
	snapshot := copyJob(job)
	s.mu.Unlock()

	if notifier != nil {
		notifier.JobUpdated(snapshot)
	}
}

// UpdateData implements jobs.Store. Fields merge into the existing data
// map; keys absent from the argument are left untouched.
func (s *Store) UpdateData(id string, fields map[string]string) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	for k, v := range fields {
		job.Data[k] = v
	}
	notifier := s.notifier
	snapshot := copyJob(job)
	s.mu.Unlock()

	if notifier != nil {
		notifier.JobUpdated(snapshot)
	}
}

// ListJobs implements jobs.Store. Jobs are returned in insertion order,
// as copies, so callers can hold the slice across further mutations.
func (s *Store) ListJobs() []jobs.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]jobs.Job, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, copyJob(s.jobs[id]))
	}
	return result
}

func copyJob(job *jobs.Job) jobs.Job {
	c := *job
	c.Data = make(map[string]string, len(job.Data))
	for k, v := range job.Data {
		c.Data[k] = v
	}
	return c
}

var _ jobs.Store = (*Store)(nil)
