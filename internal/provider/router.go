package provider

import (
	"context"

	"github.com/jduhalde/consulting/internal/apperror"
	"github.com/jduhalde/consulting/internal/catalog"
	"github.com/jduhalde/consulting/internal/model"

	"github.com/rs/zerolog"
)

// Options adjusts provider selection for one execution.
type Options struct {
	// ForceProvider overrides the agent's preferred provider. It must be
	// one of the agent's supported providers.
	ForceProvider string
}

// Router selects the provider for an agent execution and drives the
// strict two-attempt protocol: primary, then at most one fallback.
type Router struct {
	catalog   *catalog.Catalog
	executors map[string]Executor
	logger    zerolog.Logger
}

func NewRouter(cat *catalog.Catalog, executors map[string]Executor, logger zerolog.Logger) *Router {
	return &Router{
		catalog:   cat,
		executors: executors,
		logger:    logger.With().Str("service", "ProviderRouter").Logger(),
	}
}

// SelectProvider returns the provider the agent should run on.
func (r *Router) SelectProvider(agentID string, opts Options) (string, error) {
	agent, ok := r.catalog.Get(agentID)
	if !ok {
		return "", apperror.Newf(apperror.KindAgentNotFound, "agent not found: %s", agentID)
	}
	if opts.ForceProvider != "" {
		if !agent.SupportsProvider(opts.ForceProvider) {
			return "", apperror.Newf(apperror.KindProviderNotSupported,
				"provider %s not available for %s", opts.ForceProvider, agentID)
		}
		return opts.ForceProvider, nil
	}
	return agent.PreferredProvider, nil
}

// FallbackProvider returns the provider to try after failedProvider, or
// "" when no fallback remains. If the preferred provider failed, the
// agent's declared fallback is used; otherwise the first supported
// provider that is neither the failed one nor the preferred one, in
// catalog order. At most one fallback hop per job.
func (r *Router) FallbackProvider(agentID, failedProvider string) string {
	agent, ok := r.catalog.Get(agentID)
	if !ok {
		return ""
	}
	if failedProvider == agent.PreferredProvider {
		return agent.FallbackProvider
	}
	for _, p := range agent.Providers {
		if p != failedProvider && p != agent.PreferredProvider {
			return p
		}
	}
	return ""
}

// ExecuteWithProvider dispatches the execution to the named provider's
// backend.
func (r *Router) ExecuteWithProvider(ctx context.Context, providerID, agentID string, input model.JobInput) (*Result, error) {
	exec, ok := r.executors[providerID]
	if !ok {
		return nil, apperror.Newf(apperror.KindUnknownProvider, "unknown provider: %s", providerID)
	}
	r.logger.Info().Str("agent_id", agentID).Str("provider", providerID).Msg("Executing agent")
	return exec.Execute(ctx, agentID, input)
}

// ExecuteWithFallback runs the agent on its selected provider and, if
// that fails, on exactly one fallback. Selection errors propagate
// immediately; they are caller errors, not transient faults.
func (r *Router) ExecuteWithFallback(ctx context.Context, agentID string, input model.JobInput, opts Options) (*Result, error) {
	primary, err := r.SelectProvider(agentID, opts)
	if err != nil {
		return nil, err
	}

	result, primaryErr := r.ExecuteWithProvider(ctx, primary, agentID, input)
	if primaryErr == nil {
		result.UsedFallback = false
		return result, nil
	}
	r.logger.Error().Err(primaryErr).
		Str("agent_id", agentID).Str("provider", primary).
		Msg("Provider execution failed")

	fallback := r.FallbackProvider(agentID, primary)
	if fallback == "" {
		return nil, apperror.Wrap(apperror.KindNoFallbackAvailable,
			"no fallback available after "+primary+" failed", primaryErr)
	}

	r.logger.Info().Str("agent_id", agentID).Str("provider", fallback).Msg("Trying fallback provider")
	result, fallbackErr := r.ExecuteWithProvider(ctx, fallback, agentID, input)
	if fallbackErr == nil {
		result.UsedFallback = true
		result.OriginalProvider = primary
		return result, nil
	}
	r.logger.Error().Err(fallbackErr).
		Str("agent_id", agentID).Str("provider", fallback).
		Msg("Fallback provider also failed")

	return nil, apperror.Wrap(apperror.KindAllProvidersFailed, "all providers failed", &AttemptErrors{
		PrimaryProvider:  primary,
		Primary:          primaryErr,
		FallbackProvider: fallback,
		Fallback:         fallbackErr,
	})
}
