package alertfeed

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
)

var _ Publisher = (*PubSubPublisher)(nil)

// PubSubConfig holds configuration for the Pub/Sub publisher.
type PubSubConfig struct {
	ProjectID string
	Topic     string
}

// PubSubPublisher publishes reports to a Google Cloud Pub/Sub topic.
type PubSubPublisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topic     string
}

// NewPubSubPublisher creates a publisher for cfg.Topic.
func NewPubSubPublisher(ctx context.Context, cfg PubSubConfig) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &PubSubPublisher{
		client:    client,
		publisher: client.Publisher(cfg.Topic),
		topic:     cfg.Topic,
	}, nil
}

// Publish sends the report and waits for the server acknowledgement.
func (p *PubSubPublisher) Publish(ctx context.Context, r Report) error {
	msg, err := pubsubMessage(r)
	if err != nil {
		return err
	}

	if _, err := p.publisher.Publish(ctx, msg).Get(ctx); err != nil {
		return fmt.Errorf("publishing to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes pending messages and closes the client.
func (p *PubSubPublisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}

func pubsubMessage(r Report) (*pubsub.Message, error) {
	data, err := encode(r)
	if err != nil {
		return nil, err
	}
	return &pubsub.Message{
		Data:       data,
		Attributes: r.Attributes(),
	}, nil
}
