package provider

import (
	"context"
	"net/http"

	"github.com/jduhalde/consulting/internal/model"
)

// VertexExecutor runs agents on the Vertex AI inference gateway.
type VertexExecutor struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

func NewVertexExecutor(endpoint, apiKey string) *VertexExecutor {
	return &VertexExecutor{
		client:   newExecutionClient(),
		endpoint: endpoint,
		apiKey:   apiKey,
	}
}

func (e *VertexExecutor) Execute(ctx context.Context, agentID string, input model.JobInput) (*Result, error) {
	resp, err := doExecution(ctx, e.client, e.endpoint,
		map[string]string{"Authorization": "Bearer " + e.apiKey},
		agentID,
		executionRequest{AgentID: agentID, Data: input.Data, Files: input.Files},
	)
	if err != nil {
		return nil, err
	}
	return &Result{Provider: Vertex, Status: resp.Status, Output: resp.Output}, nil
}
