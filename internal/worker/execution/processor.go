// Package execution is the worker side of the job pipeline: it drains the
// jobs queue, runs each job through the provider router and records the
// terminal state and the incurred cost.
package execution

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/jduhalde/consulting/internal/apperror"
	"github.com/jduhalde/consulting/internal/cost"
	"github.com/jduhalde/consulting/internal/metrics"
	"github.com/jduhalde/consulting/internal/model"
	"github.com/jduhalde/consulting/internal/provider"
	"github.com/jduhalde/consulting/internal/repository"
)

// Processor executes one queued job at a time. Claiming a job is a
// conditional queued->processing transition, so concurrent workers and a
// racing cancel never double-run or resurrect a job.
type Processor struct {
	jobs    repository.JobRepository
	router  *provider.Router
	costs   cost.Service
	metrics *metrics.Metrics
	timeout time.Duration
	logger  zerolog.Logger
}

func NewProcessor(
	jobs repository.JobRepository,
	router *provider.Router,
	costs cost.Service,
	m *metrics.Metrics,
	timeout time.Duration,
	logger zerolog.Logger,
) *Processor {
	return &Processor{
		jobs:    jobs,
		router:  router,
		costs:   costs,
		metrics: m,
		timeout: timeout,
		logger:  logger.With().Str("worker", "ExecutionProcessor").Logger(),
	}
}

// Process runs a single job to a terminal state. A nil return means the
// message may be acknowledged; an error means the queue message should go
// to the dead-letter queue.
func (p *Processor) Process(ctx context.Context, jobID string) error {
	job, err := p.jobs.GetJobForExecution(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		p.logger.Warn().Str("job_id", jobID).Msg("Job not found; dropping message")
		return nil
	}
	if job.Status != model.JobQueued {
		p.logger.Info().Str("job_id", jobID).Str("status", string(job.Status)).
			Msg("Job no longer queued; skipping")
		return nil
	}

	claimed, err := p.jobs.MarkProcessing(ctx, jobID)
	if err != nil {
		return err
	}
	if !claimed {
		p.logger.Info().Str("job_id", jobID).Msg("Job claimed elsewhere; skipping")
		return nil
	}

	execCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	result, execErr := p.router.ExecuteWithFallback(execCtx, job.AgentID, job.Input(), provider.Options{})
	if execErr != nil {
		p.recordFailure(ctx, job, execErr)
		return nil
	}

	p.metrics.ObserveExecutionDuration(result.Provider, time.Since(start).Seconds())
	p.metrics.IncProviderExecution(result.Provider, "success")
	if result.UsedFallback {
		p.metrics.IncProviderFallback(result.OriginalProvider, result.Provider)
	}

	completed, err := p.jobs.MarkCompleted(ctx, jobID, result.Provider, result.UsedFallback, result.Output)
	if err != nil {
		return err
	}
	if !completed {
		// A cancel won the race; the result is discarded and no cost is
		// charged to the user.
		p.logger.Warn().Str("job_id", jobID).Msg("Job left processing state before completion; result discarded")
		return nil
	}

	p.metrics.IncJobProcessed(job.AgentID, string(model.JobCompleted))
	p.logger.Info().
		Str("job_id", jobID).Str("agent_id", job.AgentID).
		Str("provider", result.Provider).Bool("used_fallback", result.UsedFallback).
		Msg("Job completed")

	// Cost tracking is best-effort and must not hold up the queue.
	actualCost := p.costs.EstimateCost(job.AgentID, job.Input())
	trackCtx := context.WithoutCancel(ctx)
	go p.costs.TrackCost(trackCtx, job.UserID, jobID, job.AgentID, result.Provider, actualCost)

	return nil
}

func (p *Processor) recordFailure(ctx context.Context, job *model.Job, execErr error) {
	details := map[string]string{
		"kind":    string(apperror.KindOf(execErr)),
		"message": apperror.Message(execErr),
	}
	var attempts *provider.AttemptErrors
	if errors.As(execErr, &attempts) {
		details["primary_provider"] = attempts.PrimaryProvider
		details["primary_error"] = attempts.Primary.Error()
		details["fallback_provider"] = attempts.FallbackProvider
		details["fallback_error"] = attempts.Fallback.Error()
		p.metrics.IncProviderExecution(attempts.PrimaryProvider, "error")
		p.metrics.IncProviderExecution(attempts.FallbackProvider, "error")
	}

	failed, err := p.jobs.MarkFailed(ctx, job.ID, details)
	if err != nil {
		p.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to record job failure")
		return
	}
	if !failed {
		p.logger.Warn().Str("job_id", job.ID).Msg("Job left processing state before failure could be recorded")
		return
	}

	p.metrics.IncJobProcessed(job.AgentID, string(model.JobFailed))
	p.logger.Error().Err(execErr).
		Str("job_id", job.ID).Str("agent_id", job.AgentID).
		Msg("Job failed")
}
