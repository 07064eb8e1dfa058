package provider

import (
	"context"
	"net/http"

	"github.com/jduhalde/consulting/internal/model"
)

// BedrockExecutor runs agents on the AWS Bedrock inference gateway.
type BedrockExecutor struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

func NewBedrockExecutor(endpoint, apiKey string) *BedrockExecutor {
	return &BedrockExecutor{
		client:   newExecutionClient(),
		endpoint: endpoint,
		apiKey:   apiKey,
	}
}

func (e *BedrockExecutor) Execute(ctx context.Context, agentID string, input model.JobInput) (*Result, error) {
	resp, err := doExecution(ctx, e.client, e.endpoint,
		map[string]string{"x-api-key": e.apiKey},
		agentID,
		executionRequest{AgentID: agentID, Data: input.Data, Files: input.Files},
	)
	if err != nil {
		return nil, err
	}
	return &Result{Provider: Bedrock, Status: resp.Status, Output: resp.Output}, nil
}
