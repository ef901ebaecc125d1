package inmemory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/firefly-classifier/internal/jobs"
	"github.com/dvloznov/firefly-classifier/internal/logger"
)

func newTestQueue(t *testing.T, store jobs.Store, timeout time.Duration) *Queue {
	t.Helper()
	q := NewQueue(store, timeout, logger.NewWithLevel("error"))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	q.Start(ctx)
	return q
}

func TestQueue_RunsTasksInEnqueueOrder(t *testing.T) {
	store := NewStore()
	q := newTestQueue(t, store, time.Second)

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})

	for i := 0; i < 5; i++ {
		i := i
		q.Enqueue(Task{
			JobID: "job",
			Run: func(ctx context.Context) error {
				// Earlier tasks sleep longer; FIFO must still hold.
				time.Sleep(time.Duration(5-i) * time.Millisecond)
				mu.Lock()
				order = append(order, i)
				if len(order) == 5 {
					close(done)
				}
				mu.Unlock()
				return nil
			},
		})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for tasks")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, got := range order {
		if got != i {
			t.Fatalf("Expected FIFO order, got %v", order)
		}
	}
}

func TestQueue_SingleConcurrency(t *testing.T) {
	store := NewStore()
	q := newTestQueue(t, store, time.Second)

	var mu sync.Mutex
	running, maxRunning, completed := 0, 0, 0
	done := make(chan struct{})

	for i := 0; i < 4; i++ {
		q.Enqueue(Task{
			JobID: "job",
			Run: func(ctx context.Context) error {
				mu.Lock()
				running++
				if running > maxRunning {
					maxRunning = running
				}
				mu.Unlock()

				time.Sleep(5 * time.Millisecond)

				mu.Lock()
				running--
				completed++
				if completed == 4 {
					close(done)
				}
				mu.Unlock()
				return nil
			},
		})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for tasks")
	}

	mu.Lock()
	defer mu.Unlock()
	if maxRunning != 1 {
		t.Errorf("Expected at most one task running, observed %d", maxRunning)
	}
}

func TestQueue_ErrorMarksJobFailedAndWorkerContinues(t *testing.T) {
	store := NewStore()
	q := newTestQueue(t, store, time.Second)

	failing := store.CreateJob(nil)
	store.SetInProgress(failing.ID)

	ran := make(chan struct{})
	q.Enqueue(Task{
		JobID: failing.ID,
		Run: func(ctx context.Context) error {
			return errors.New("collaborator exploded")
		},
	})
	q.Enqueue(Task{
		JobID: "next",
		Run: func(ctx context.Context) error {
			close(ran)
			return nil
		},
	})

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("Worker did not survive a failing task")
	}

	if got := store.ListJobs()[0].Status; got != jobs.StatusFailed {
		t.Errorf("Expected failed, got %s", got)
	}
}

func TestQueue_PanicDoesNotCrashWorker(t *testing.T) {
	store := NewStore()
	q := newTestQueue(t, store, time.Second)

	job := store.CreateJob(nil)

	ran := make(chan struct{})
	q.Enqueue(Task{
		JobID: job.ID,
		Run: func(ctx context.Context) error {
			panic("boom")
		},
	})
	q.Enqueue(Task{
		JobID: "next",
		Run: func(ctx context.Context) error {
			close(ran)
			return nil
		},
	})

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("Worker did not survive a panicking task")
	}

	if got := store.ListJobs()[0].Status; got != jobs.StatusFailed {
		t.Errorf("Expected failed after panic, got %s", got)
	}
}

func TestQueue_TimeoutMarksJobFailed(t *testing.T) {
	store := NewStore()
	q := newTestQueue(t, store, 10*time.Millisecond)

	job := store.CreateJob(nil)
	store.SetInProgress(job.ID)

	released := make(chan struct{})
	next := make(chan struct{})

	q.Enqueue(Task{
		JobID: job.ID,
		Run: func(ctx context.Context) error {
			// Outlives the task timeout; the queue stops waiting but the
			// task itself keeps running until released.
			<-released
			return nil
		},
	})
	q.Enqueue(Task{
		JobID: "next",
		Run: func(ctx context.Context) error {
			close(next)
			return nil
		},
	})

	select {
	case <-next:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed-out task blocked the queue")
	}

	if got := store.ListJobs()[0].Status; got != jobs.StatusFailed {
		t.Errorf("Expected failed after timeout, got %s", got)
	}

	// Let the stuck task finish; the failed status must not change.
	close(released)
	time.Sleep(20 * time.Millisecond)
	if got := store.ListJobs()[0].Status; got != jobs.StatusFailed {
		t.Errorf("Late completion changed status to %s", got)
	}
}

func TestQueue_TaskContextCarriesDeadline(t *testing.T) {
	store := NewStore()
	q := newTestQueue(t, store, 50*time.Millisecond)

	got := make(chan bool, 1)
	q.Enqueue(Task{
		JobID: "job",
		Run: func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			got <- ok
			return nil
		},
	})

	select {
	case ok := <-got:
		if !ok {
			t.Error("Expected task context to carry a deadline")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Task never ran")
	}
}

func TestQueue_StopWaitsForCurrentTask(t *testing.T) {
	store := NewStore()
	q := NewQueue(store, time.Second, logger.NewWithLevel("error"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	started := make(chan struct{})
	var finished bool
	var mu sync.Mutex

	q.Enqueue(Task{
		JobID: "job",
		Run: func(taskCtx context.Context) error {
			close(started)
			time.Sleep(20 * time.Millisecond)
			mu.Lock()
			finished = true
			mu.Unlock()
			return nil
		},
	})

	<-started
	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := q.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !finished {
		t.Error("Stop returned before the in-flight task completed")
	}
}
