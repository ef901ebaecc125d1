package jobs

import "time"

// Status is the lifecycle state of a classification job.
type Status string

const (
	// StatusQueued indicates the job is waiting for the worker.
	StatusQueued Status = "queued"
	// StatusInProgress indicates the job is being classified.
	StatusInProgress Status = "in_progress"
	// StatusFinished indicates the job completed successfully.
	StatusFinished Status = "finished"
	// StatusFailed indicates the job errored or timed out.
	StatusFailed Status = "failed"
)

// rank orders statuses so a job can only move forward. Finished and
// failed are both terminal and share a rank: neither replaces the other.
func (s Status) rank() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusInProgress:
		return 1
	case StatusFinished, StatusFailed:
		return 2
	}
	return -1
}

// CanAdvanceTo reports whether a transition from s to next moves the job
// strictly forward.
func (s Status) CanAdvanceTo(next Status) bool {
	return next.rank() > s.rank()
}

// Job is the record of one transaction's classification attempt. It is
// independent of the underlying ledger transaction and lives only for the
// lifetime of the process.
type Job struct {
	// ID is assigned at creation and stable for the job's lifetime.
	ID string `json:"id"`

	// Status only ever advances; see Status.CanAdvanceTo.
	Status Status `json:"status"`

	// CreatedAt is immutable after creation.
	CreatedAt time.Time `json:"created_at"`

	// Data starts with the transaction's destination name and description
	// and accumulates classification results as the job progresses.
	Data map[string]string `json:"data"`
}

// Keys used in Job.Data.
const (
	DataDestinationName = "destinationName"
	DataDescription     = "description"
	DataCategory        = "category"
	DataBudget          = "budget"
	DataPrompt          = "prompt"
	DataResponse        = "response"
	DataBudgetPrompt    = "budgetPrompt"
	DataBudgetResponse  = "budgetResponse"
)

// Store is the single source of truth for job state. Mutating operations
// raise a created/updated notification synchronously, carrying a copy of
// the full job. The processing queue guarantees at most one writer per
// job id, so implementations only need atomic map access.
type Store interface {
	// CreateJob registers a new queued job seeded with the given data.
	CreateJob(data map[string]string) Job

	// SetInProgress advances the job to in_progress.
	SetInProgress(id string)

	// UpdateData merges fields into the job's data without replacing
	// existing keys that are absent from the argument.
	UpdateData(id string, fields map[string]string)

	// SetFinished advances the job to finished.
	SetFinished(id string)

	// SetFailed advances the job to failed.
	SetFailed(id string)

	// ListJobs returns all jobs in insertion order.
	ListJobs() []Job
}

// Notifier receives job lifecycle events from a Store. Implementations
// must not call back into the store from the notification path.
type Notifier interface {
	JobCreated(job Job)
	JobUpdated(job Job)
}
