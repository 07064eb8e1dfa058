package provider

import (
	"context"
	"net/http"

	"github.com/jduhalde/consulting/internal/model"
)

// AzureExecutor runs agents on the Azure OpenAI inference gateway.
type AzureExecutor struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

func NewAzureExecutor(endpoint, apiKey string) *AzureExecutor {
	return &AzureExecutor{
		client:   newExecutionClient(),
		endpoint: endpoint,
		apiKey:   apiKey,
	}
}

func (e *AzureExecutor) Execute(ctx context.Context, agentID string, input model.JobInput) (*Result, error) {
	resp, err := doExecution(ctx, e.client, e.endpoint,
		map[string]string{"api-key": e.apiKey},
		agentID,
		executionRequest{AgentID: agentID, Data: input.Data, Files: input.Files},
	)
	if err != nil {
		return nil, err
	}
	return &Result{Provider: Azure, Status: resp.Status, Output: resp.Output}, nil
}
