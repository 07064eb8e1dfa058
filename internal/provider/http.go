package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// executionRequest is the payload shape shared by the inference gateways.
type executionRequest struct {
	AgentID string         `json:"agent_id"`
	Data    map[string]any `json:"data,omitempty"`
	Files   []string       `json:"files,omitempty"`
}

// executionResponse is the payload shape returned by the inference
// gateways on success.
type executionResponse struct {
	Status string         `json:"status"`
	Output map[string]any `json:"output"`
	Error  struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func newExecutionClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Minute}
}

// doExecution posts the request body to endpoint with the given headers
// and decodes the gateway response.
func doExecution(ctx context.Context, client *http.Client, endpoint string, headers map[string]string, agentID string, req executionRequest) (*executionResponse, error) {
	bodyJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling execution request for %s: %w", agentID, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyJSON))
	if err != nil {
		return nil, fmt.Errorf("building execution request for %s: %w", agentID, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing %s: %w", agentID, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading execution response for %s: %w", agentID, err)
	}

	var decoded executionResponse
	if resp.StatusCode != http.StatusOK {
		if err := json.Unmarshal(body, &decoded); err == nil && decoded.Error.Message != "" {
			return nil, fmt.Errorf("execution of %s failed: %s", agentID, decoded.Error.Message)
		}
		return nil, fmt.Errorf("execution of %s failed: HTTP %d", agentID, resp.StatusCode)
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decoding execution response for %s: %w", agentID, err)
	}
	return &decoded, nil
}
