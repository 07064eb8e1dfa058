package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jduhalde/consulting/internal/apperror"
	"github.com/jduhalde/consulting/internal/catalog"
	"github.com/jduhalde/consulting/internal/cost"
	"github.com/jduhalde/consulting/internal/metrics"
	"github.com/jduhalde/consulting/internal/model"
	"github.com/jduhalde/consulting/internal/pubsub"
	"github.com/jduhalde/consulting/internal/repository"
)

// JobCreatedEvent is the message published when a job is accepted.
type JobCreatedEvent struct {
	JobID   string `json:"job_id"`
	UserID  string `json:"user_id"`
	AgentID string `json:"agent_id"`
}

// CreateJobResult is returned to the caller on successful submission.
type CreateJobResult struct {
	JobID         string
	Status        model.JobStatus
	EstimatedTime float64
	EstimatedCost float64
}

// JobService owns the job lifecycle as seen from the API: submission with
// its validation chain, listing, retrieval and cancellation.
type JobService interface {
	// CreateJob validates the caller's entitlement and the agent, persists
	// the job as queued and announces it for asynchronous execution.
	CreateJob(ctx context.Context, userID, agentID string, input model.JobInput) (*CreateJobResult, error)
	ListJobs(ctx context.Context, userID string, f repository.JobFilter) ([]model.Job, error)
	GetJob(ctx context.Context, userID, jobID string) (*model.Job, error)
	CancelJob(ctx context.Context, userID, jobID string) (*model.Job, error)
}

type jobService struct {
	jobs      repository.JobRepository
	users     repository.UserRepository
	catalog   *catalog.Catalog
	costs     cost.Service
	publisher pubsub.Publisher
	topic     string
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func NewJobService(
	jobs repository.JobRepository,
	users repository.UserRepository,
	cat *catalog.Catalog,
	costs cost.Service,
	publisher pubsub.Publisher,
	topic string,
	m *metrics.Metrics,
	logger zerolog.Logger,
) JobService {
	return &jobService{
		jobs:      jobs,
		users:     users,
		catalog:   cat,
		costs:     costs,
		publisher: publisher,
		topic:     topic,
		metrics:   m,
		logger:    logger.With().Str("service", "JobService").Logger(),
	}
}

// CreateJob runs the submission chain in a fixed order: input shape,
// user existence, feature entitlement, account status, agent availability,
// spending ceiling. The first failure wins.
func (s *jobService) CreateJob(ctx context.Context, userID, agentID string, input model.JobInput) (*CreateJobResult, error) {
	if agentID == "" {
		return nil, apperror.New(apperror.KindValidation, "agent_id is required")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to load user during job submission")
		return nil, apperror.Wrap(apperror.KindStoreUnavailable, "failed to load user", err)
	}
	if user == nil {
		return nil, apperror.New(apperror.KindUserNotFound, "user not found")
	}

	if !user.HasFeature(agentID) {
		return nil, apperror.Newf(apperror.KindFeatureNotAvailable, "agent %s is not enabled for this account", agentID)
	}

	if !user.Status.Active() {
		return nil, apperror.Newf(apperror.KindAccountInactive, "account status %s does not allow job submission", user.Status)
	}

	agent, ok := s.catalog.Get(agentID)
	if !ok || !agent.IsActive {
		return nil, apperror.Newf(apperror.KindAgentUnavailable, "agent %s is not available", agentID)
	}

	estimate := s.costs.EstimateCost(agentID, input)
	if !s.costs.CanUserExecute(ctx, userID, estimate) {
		s.metrics.IncSpendingLimitRejection(string(user.Role))
		return nil, apperror.New(apperror.KindSpendingLimit, "monthly spending limit exceeded")
	}

	job := &model.Job{
		ID:         uuid.NewString(),
		UserID:     userID,
		AgentID:    agentID,
		AgentName:  agent.Name,
		Status:     model.JobQueued,
		Provider:   agent.PreferredProvider,
		InputData:  input.Data,
		InputFiles: input.Files,
	}
	if job.InputFiles == nil {
		job.InputFiles = []string{}
	}

	if err := s.jobs.CreateJob(ctx, job); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("agent_id", agentID).Msg("Failed to persist job")
		return nil, apperror.Wrap(apperror.KindStoreUnavailable, "failed to create job", err)
	}

	// The job is already durable; a failed publish only delays pickup, so
	// it is logged rather than surfaced.
	event := JobCreatedEvent{JobID: job.ID, UserID: userID, AgentID: agentID}
	if _, err := pubsub.PublishJSON(ctx, s.publisher, s.topic, event); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to publish job created event")
	}

	s.metrics.IncJobSubmitted(agentID)
	s.logger.Info().
		Str("job_id", job.ID).Str("user_id", userID).Str("agent_id", agentID).
		Float64("estimated_cost", agent.CostPerRun).
		Msg("Job submitted")

	return &CreateJobResult{
		JobID:         job.ID,
		Status:        job.Status,
		EstimatedTime: agent.AvgProcessingTime,
		EstimatedCost: agent.CostPerRun,
	}, nil
}

func (s *jobService) ListJobs(ctx context.Context, userID string, f repository.JobFilter) ([]model.Job, error) {
	jobs, err := s.jobs.ListJobs(ctx, userID, f)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list jobs")
		return nil, apperror.Wrap(apperror.KindStoreUnavailable, "failed to list jobs", err)
	}
	return jobs, nil
}

func (s *jobService) GetJob(ctx context.Context, userID, jobID string) (*model.Job, error) {
	job, err := s.jobs.GetJobByID(ctx, userID, jobID)
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to load job")
		return nil, apperror.Wrap(apperror.KindStoreUnavailable, "failed to load job", err)
	}
	if job == nil {
		return nil, apperror.Newf(apperror.KindJobNotFound, "job %s not found", jobID)
	}
	return job, nil
}

// CancelJob transitions a queued or processing job to cancelled. The
// conditional update makes cancellation race-safe against the worker: if
// the job reached a terminal state first, the cancel is rejected.
func (s *jobService) CancelJob(ctx context.Context, userID, jobID string) (*model.Job, error) {
	cancelled, err := s.jobs.CancelJob(ctx, userID, jobID)
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to cancel job")
		return nil, apperror.Wrap(apperror.KindStoreUnavailable, "failed to cancel job", err)
	}
	if !cancelled {
		// Distinguish a missing job from an invalid transition.
		job, err := s.jobs.GetJobByID(ctx, userID, jobID)
		if err != nil {
			return nil, apperror.Wrap(apperror.KindStoreUnavailable, "failed to load job", err)
		}
		if job == nil {
			return nil, apperror.Newf(apperror.KindJobNotFound, "job %s not found", jobID)
		}
		return nil, apperror.Newf(apperror.KindInvalidTransition,
			"job in status %s cannot be cancelled", job.Status)
	}

	s.metrics.JobsCancelledTotal.Inc()
	s.logger.Info().Str("job_id", jobID).Str("user_id", userID).Msg("Job cancelled")

	job, err := s.jobs.GetJobByID(ctx, userID, jobID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindStoreUnavailable, "failed to load cancelled job", err)
	}
	if job == nil {
		return nil, fmt.Errorf("job %s vanished after cancellation", jobID)
	}
	return job, nil
}
