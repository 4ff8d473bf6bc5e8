package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Job types carried in trigger messages.
const (
	JobRiskRefresh = "risk_refresh"
	JobHealthCheck = "health_check"
)

// PubSubHandler handles Pub/Sub trigger messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	jobs             *JobRunner
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	RefreshJob       *RefreshJob
	Logger           zerolog.Logger
}

// RefreshMessage represents a trigger message.
type RefreshMessage struct {
	JobType string `json:"job_type"`

	// Query restricts a risk refresh to a single location.
	Query string `json:"query,omitempty"`
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Configure receive settings.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		jobs:             NewJobRunner(cfg.RefreshJob, cfg.Logger),
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	switch h.jobs.Handle(ctx, msg.Data) {
	case OutcomeRetry:
		msg.Nack()
	default:
		msg.Ack()
	}
}

// Outcome tells the transport what to do with a message.
type Outcome int

const (
	// OutcomeDone acknowledges the message.
	OutcomeDone Outcome = iota
	// OutcomeDiscard acknowledges a message that can never succeed.
	OutcomeDiscard
	// OutcomeRetry asks for redelivery.
	OutcomeRetry
)

// JobRunner decodes trigger messages and runs the matching job.
type JobRunner struct {
	refreshJob *RefreshJob
	logger     zerolog.Logger
}

// NewJobRunner creates a runner for refreshJob.
func NewJobRunner(refreshJob *RefreshJob, logger zerolog.Logger) *JobRunner {
	return &JobRunner{refreshJob: refreshJob, logger: logger}
}

// Handle runs the job described by data.
func (r *JobRunner) Handle(ctx context.Context, data []byte) Outcome {
	startTime := r.refreshJob.clock.Now()

	// Parse message.
	var refreshMsg RefreshMessage
	if err := json.Unmarshal(data, &refreshMsg); err != nil {
		r.logger.Error().Err(err).Msg("failed to parse message")
		return OutcomeDiscard
	}

	// Handle based on job type.
	var err error
	switch refreshMsg.JobType {
	case JobRiskRefresh:
		err = r.handleRiskRefresh(ctx, refreshMsg)
	case JobHealthCheck:
		err = r.handleHealthCheck(ctx)
	default:
		r.logger.Warn().Str("job_type", refreshMsg.JobType).Msg("unknown job type")
		return OutcomeDiscard // Ack unknown messages to prevent redelivery
	}

	if err != nil {
		r.logger.Error().Err(err).Str("job_type", refreshMsg.JobType).Msg("job failed")
		return OutcomeRetry
	}

	r.logger.Info().
		Str("job_type", refreshMsg.JobType).
		Dur("duration", r.refreshJob.clock.Since(startTime)).
		Msg("job completed successfully")

	return OutcomeDone
}

func (r *JobRunner) handleRiskRefresh(ctx context.Context, msg RefreshMessage) error {
	job := r.refreshJob
	if msg.Query != "" {
		// Create a temporary single-point job.
		job = NewRefreshJob(RefreshJobConfig{
			Config: RefreshConfig{
				Targets: []RefreshTarget{
					{Name: msg.Query, Priority: 1, Points: []Point{{Name: msg.Query}}},
				},
				Concurrency: 1,
				Timeout:     r.refreshJob.config.Timeout,
			},
			Logger:    r.logger,
			Clock:     r.refreshJob.clock,
			Weather:   r.refreshJob.weather,
			Publisher: r.refreshJob.publisher,
		})
	}

	result := job.Run(ctx)

	// Consider it successful if at least half succeeded.
	if result.Failed > result.Successful {
		return fmt.Errorf("too many refresh failures: %d/%d", result.Failed, result.TotalPoints)
	}
	return nil
}

func (r *JobRunner) handleHealthCheck(ctx context.Context) error {
	r.logger.Debug().Msg("running health check")

	if err := r.refreshJob.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	r.logger.Debug().Msg("health check passed")
	return nil
}
