// Package provider routes agent executions to AI backends and handles
// the single-fallback protocol when the primary backend fails.
package provider

import (
	"context"
	"fmt"

	"github.com/jduhalde/consulting/internal/model"
)

// Known provider identifiers, as referenced by the agent catalog.
const (
	Vertex  = "vertex"
	Azure   = "azure"
	Bedrock = "aws"
)

// Result is the outcome of one agent execution.
type Result struct {
	Provider         string         `json:"provider"`
	Status           string         `json:"status"`
	Output           map[string]any `json:"output,omitempty"`
	UsedFallback     bool           `json:"used_fallback"`
	OriginalProvider string         `json:"original_provider,omitempty"`
}

// Executor is one pluggable provider backend. Implementations are treated
// uniformly by the router; an Execute error triggers the fallback protocol.
type Executor interface {
	Execute(ctx context.Context, agentID string, input model.JobInput) (*Result, error)
}

// AttemptErrors preserves both failures of a two-attempt execution for
// diagnostics. Retrieve it with errors.As from an AllProvidersFailed error.
type AttemptErrors struct {
	PrimaryProvider  string
	Primary          error
	FallbackProvider string
	Fallback         error
}

func (e *AttemptErrors) Error() string {
	return fmt.Sprintf("%s: %v; fallback %s: %v",
		e.PrimaryProvider, e.Primary, e.FallbackProvider, e.Fallback)
}
