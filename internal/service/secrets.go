package service

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// SecretService resolves provider API keys from Google Secret Manager so
// that credentials never live in environment files on deployed workers.
type SecretService interface {
	GetProviderAPIKey(ctx context.Context, provider string) (string, error)
}

type secretService struct {
	client    *secretmanager.Client
	projectID string
}

func NewSecretService(ctx context.Context, projectID string, opts ...option.ClientOption) (SecretService, error) {
	if projectID == "" {
		return nil, fmt.Errorf("GCP project ID is not set for the current environment")
	}
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	return &secretService{client: client, projectID: projectID}, nil
}

// GetProviderAPIKey reads the latest version of provider-<name>-api-key.
func (s *secretService) GetProviderAPIKey(ctx context.Context, provider string) (string, error) {
	resourceName := fmt.Sprintf("projects/%s/secrets/provider-%s-api-key/versions/latest", s.projectID, provider)

	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: resourceName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version for provider %s: %w", provider, err)
	}
	return string(result.Payload.Data), nil
}
