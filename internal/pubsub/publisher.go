package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// Publisher defines an interface for publishing messages.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) (string, error)
}

// GCPPublisher is a Publisher backed by Google Cloud Pub/Sub.
type GCPPublisher struct {
	client *pubsub.Client
}

// NewPublisher creates a publisher for the given GCP project.
func NewPublisher(ctx context.Context, projectID string) (*GCPPublisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pub/Sub client: %w", err)
	}
	return &GCPPublisher{client: client}, nil
}

// Publish sends the payload to the topic and returns the message ID.
func (p *GCPPublisher) Publish(ctx context.Context, topic string, payload []byte) (string, error) {
	t := p.client.Topic(topic)
	result := t.Publish(ctx, &pubsub.Message{Data: payload})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to publish message to topic %s: %w", topic, err)
	}
	return id, nil
}

// PublishJSON marshals v and publishes it to the topic.
func PublishJSON(ctx context.Context, p Publisher, topic string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload for topic %s: %w", topic, err)
	}
	return p.Publish(ctx, topic, data)
}
