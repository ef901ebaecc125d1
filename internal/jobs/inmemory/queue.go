package inmemory

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dvloznov/firefly-classifier/internal/jobs"
	"github.com/rs/zerolog"
)

// DefaultTaskTimeout bounds how long the queue waits on a single task.
const DefaultTaskTimeout = 30 * time.Second

// Task is one unit of work tied to a job.
type Task struct {
	JobID string
	Run   func(ctx context.Context) error
}

// Queue runs tasks strictly in enqueue order with a concurrency of
// exactly one. Enqueue never blocks: the backlog is unbounded and no
// backpressure is applied to inbound webhooks.
//
// A task that errors, panics, or exceeds the timeout is logged and its
// job is moved to failed; the worker itself keeps going. A timeout
// cancels the task's context but cannot force in-flight collaborator
// calls to stop; the forward-only status rule in the store makes any
// late writes from such a task no-ops.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  []Task
	closed bool
	done   chan struct{}

	timeout time.Duration
	store   jobs.Store
	log     zerolog.Logger
}

// NewQueue creates a stopped queue; call Start to launch the worker.
func NewQueue(store jobs.Store, timeout time.Duration, log zerolog.Logger) *Queue {
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	q := &Queue{
		done:    make(chan struct{}),
		timeout: timeout,
		store:   store,
		log:     log,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Start launches the single worker goroutine. The queue shuts down when
// ctx is cancelled or Stop is called.
func (q *Queue) Start(ctx context.Context) {
	go q.worker()
	go func() {
		<-ctx.Done()
		q.close()
	}()
}

// Enqueue appends a task and returns immediately.
func (q *Queue) Enqueue(task Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.log.Warn().Str("job_id", task.JobID).Msg("Queue closed, dropping task")
		return
	}
	q.tasks = append(q.tasks, task)
	q.cond.Signal()
}

// Stop closes the queue and waits for the current task to finish, up to
// the deadline of ctx. Pending tasks are discarded.
func (q *Queue) Stop(ctx context.Context) error {
	q.close()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		if n := len(q.tasks); n > 0 {
			q.log.Warn().Int("pending", n).Msg("Queue closing with pending tasks")
		}
		q.cond.Broadcast()
	}
	q.mu.Unlock()
}

func (q *Queue) worker() {
	defer close(q.done)

	for {
		q.mu.Lock()
		for len(q.tasks) == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.closed {
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		q.runTask(task)
	}
}

// runTask executes one task under the per-task deadline and emits the
// start/success/error/timeout lifecycle events.
func (q *Queue) runTask(task Task) {
	log := q.log.With().Str("job_id", task.JobID).Logger()
	log.Debug().Msg("Job started")

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errCh <- fmt.Errorf("task panic: %v\n%s", r, debug.Stack())
			}
		}()
		errCh <- task.Run(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("Job failed")
			q.store.SetFailed(task.JobID)
			return
		}
		log.Debug().Msg("Job completed successfully")
	case <-ctx.Done():
		log.Error().Dur("timeout", q.timeout).Msg("Job timed out")
		q.store.SetFailed(task.JobID)
	}
}
