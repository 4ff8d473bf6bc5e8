package worker

import (
	"context"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

// MessageReader is the part of a kafka-go consumer group reader the trigger
// uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaTriggerConfig holds configuration for the Kafka trigger consumer.
type KafkaTriggerConfig struct {
	Brokers    []string
	Topic      string
	GroupID    string
	RefreshJob *RefreshJob
	Logger     zerolog.Logger
}

// KafkaTrigger consumes trigger messages from a Kafka topic.
type KafkaTrigger struct {
	reader MessageReader
	jobs   *JobRunner
	logger zerolog.Logger
}

// NewKafkaTrigger creates a consumer in cfg.GroupID.
func NewKafkaTrigger(cfg KafkaTriggerConfig) *KafkaTrigger {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 1e6,
	})
	logger := cfg.Logger.With().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Str("group_id", cfg.GroupID).
		Logger()
	return NewKafkaTriggerWithReader(reader, cfg.RefreshJob, logger)
}

// NewKafkaTriggerWithReader creates a trigger over an existing reader.
func NewKafkaTriggerWithReader(reader MessageReader, refreshJob *RefreshJob, logger zerolog.Logger) *KafkaTrigger {
	return &KafkaTrigger{
		reader: reader,
		jobs:   NewJobRunner(refreshJob, logger),
		logger: logger,
	}
}

// Start reads messages until ctx is canceled. Messages are committed after
// their job ran; a failed job is logged and not retried.
func (k *KafkaTrigger) Start(ctx context.Context) error {
	k.logger.Info().Msg("starting kafka trigger")

	for {
		m, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			k.logger.Warn().Err(err).Msg("kafka read error")
			continue
		}

		if k.jobs.Handle(ctx, m.Value) == OutcomeRetry {
			k.logger.Warn().
				Int64("offset", m.Offset).
				Int("partition", m.Partition).
				Msg("job failed, skipping message")
		}

		if err := k.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			k.logger.Warn().Err(err).Msg("kafka commit error")
		}
	}
}

// Close closes the reader.
func (k *KafkaTrigger) Close() error {
	return k.reader.Close()
}
