package model

import "time"

// JobStatus is the lifecycle state of a job.
//
// queued -> processing -> completed | failed | cancelled
// queued -> cancelled
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the status admits no further transition.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// Cancellable reports whether a job in this status may be cancelled.
func (s JobStatus) Cancellable() bool {
	return s == JobQueued || s == JobProcessing
}

// JobInput is the opaque payload a job is executed against.
type JobInput struct {
	Data  map[string]any `json:"data,omitempty"`
	Files []string       `json:"files,omitempty"`
}

// Job is one user-submitted request to run an agent. Jobs are never
// deleted, only transitioned to a terminal state.
type Job struct {
	ID           string            `db:"id" json:"id"`
	UserID       string            `db:"user_id" json:"user_id"`
	AgentID      string            `db:"agent_id" json:"agent_id"`
	AgentName    string            `db:"agent_name" json:"agent_name"`
	Status       JobStatus         `db:"status" json:"status"`
	InputData    map[string]any    `db:"input_data" json:"input_data"`
	InputFiles   []string          `db:"input_files" json:"input_files"`
	Provider     string            `db:"provider" json:"provider"`
	UsedFallback bool              `db:"used_fallback" json:"used_fallback"`
	Result       map[string]any    `db:"result" json:"result,omitempty"`
	ErrorDetails map[string]string `db:"error_details" json:"error_details,omitempty"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
	StartedAt    *time.Time        `db:"started_at" json:"started_at,omitempty"`
	CompletedAt  *time.Time        `db:"completed_at" json:"completed_at,omitempty"`
	CancelledAt  *time.Time        `db:"cancelled_at" json:"cancelled_at,omitempty"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updated_at"`
}

// Input assembles the execution payload from the persisted job fields.
func (j *Job) Input() JobInput {
	return JobInput{Data: j.InputData, Files: j.InputFiles}
}
