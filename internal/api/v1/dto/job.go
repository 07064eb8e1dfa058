package dto

import (
	"time"

	"github.com/jduhalde/consulting/internal/model"
)

// JobCreateDTO is the request body for submitting a job.
type JobCreateDTO struct {
	AgentID string         `json:"agent_id" validate:"required"`
	Data    map[string]any `json:"data"`
	Files   []string       `json:"files" validate:"max=20"`
}

// JobCreateResponseDTO acknowledges an accepted job.
type JobCreateResponseDTO struct {
	JobID         string  `json:"job_id"`
	Status        string  `json:"status"`
	EstimatedTime float64 `json:"estimated_time"`
	EstimatedCost float64 `json:"estimated_cost"`
}

// JobResponseDTO is the caller-facing view of a job.
type JobResponseDTO struct {
	ID           string            `json:"id"`
	AgentID      string            `json:"agent_id"`
	AgentName    string            `json:"agent_name"`
	Status       string            `json:"status"`
	Provider     string            `json:"provider,omitempty"`
	UsedFallback bool              `json:"used_fallback"`
	Result       map[string]any    `json:"result,omitempty"`
	ErrorDetails map[string]string `json:"error_details,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	StartedAt    *time.Time        `json:"started_at,omitempty"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	CancelledAt  *time.Time        `json:"cancelled_at,omitempty"`
}

// JobListResponseDTO wraps a page of jobs.
type JobListResponseDTO struct {
	Jobs []JobResponseDTO `json:"jobs"`
}

// NewJobResponseDTO converts a job model into its API shape.
func NewJobResponseDTO(j *model.Job) JobResponseDTO {
	return JobResponseDTO{
		ID:           j.ID,
		AgentID:      j.AgentID,
		AgentName:    j.AgentName,
		Status:       string(j.Status),
		Provider:     j.Provider,
		UsedFallback: j.UsedFallback,
		Result:       j.Result,
		ErrorDetails: j.ErrorDetails,
		CreatedAt:    j.CreatedAt,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
		CancelledAt:  j.CancelledAt,
	}
}

// EstimateRequestDTO asks for a cost projection without submitting.
type EstimateRequestDTO struct {
	AgentID string         `json:"agent_id" validate:"required"`
	Data    map[string]any `json:"data"`
	Files   []string       `json:"files"`
}

// EstimateResponseDTO carries the projected cost.
type EstimateResponseDTO struct {
	AgentID       string  `json:"agent_id"`
	EstimatedCost float64 `json:"estimated_cost"`
}
