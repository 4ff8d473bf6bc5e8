package alertfeed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Sink names.
const (
	SinkLog    = "log"
	SinkPubSub = "pubsub"
	SinkKafka  = "kafka"
)

// ErrUnknownSink is returned for an unsupported sink name.
var ErrUnknownSink = errors.New("unknown alert sink")

// Config selects and configures a publisher.
type Config struct {
	Sink   string
	PubSub PubSubConfig
	Kafka  KafkaConfig
	Logger zerolog.Logger
}

// New creates the publisher selected by cfg.Sink. An empty sink means SinkLog.
func New(ctx context.Context, cfg Config) (Publisher, error) {
	switch cfg.Sink {
	case "", SinkLog:
		return NewLogPublisher(cfg.Logger), nil
	case SinkPubSub:
		if cfg.PubSub.ProjectID == "" || cfg.PubSub.Topic == "" {
			return nil, fmt.Errorf("pubsub sink requires a project id and topic")
		}
		return NewPubSubPublisher(ctx, cfg.PubSub)
	case SinkKafka:
		if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.Topic == "" {
			return nil, fmt.Errorf("kafka sink requires brokers and a topic")
		}
		return NewKafkaPublisher(cfg.Kafka), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSink, cfg.Sink)
}
