package alertfeed

import (
	"context"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
)

var _ Publisher = (*KafkaPublisher)(nil)

// KafkaConfig holds configuration for the Kafka publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// MessageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaPublisher produces reports to a Kafka topic keyed by location.
type KafkaPublisher struct {
	writer MessageWriter
}

// NewKafkaPublisher creates a Kafka producer for cfg.Topic.
func NewKafkaPublisher(cfg KafkaConfig) *KafkaPublisher {
	return NewKafkaPublisherWithWriter(&kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	})
}

// NewKafkaPublisherWithWriter wraps an existing writer.
func NewKafkaPublisherWithWriter(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// Publish writes the report as a single message.
func (p *KafkaPublisher) Publish(ctx context.Context, r Report) error {
	msg, err := kafkaMessage(r)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing risk report: %w", err)
	}
	return nil
}

// Close closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func kafkaMessage(r Report) (kafkago.Message, error) {
	data, err := encode(r)
	if err != nil {
		return kafkago.Message{}, err
	}

	attrs := r.Attributes()
	headers := make([]kafkago.Header, 0, len(attrs))
	for _, k := range []string{"report_id", "origin", "severity", "alert_count", "evaluated_at"} {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(attrs[k])})
	}

	return kafkago.Message{
		Key:     []byte(r.Location),
		Value:   data,
		Headers: headers,
	}, nil
}
