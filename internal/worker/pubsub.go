package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Job types understood by the dispatcher.
const (
	JobCatalogSync = "catalog_sync"
	JobHealthCheck = "health_check"
)

var (
	// ErrMalformedMessage is returned for payloads that are not a JobMessage.
	ErrMalformedMessage = errors.New("malformed job message")

	// ErrUnknownJob is returned for job types the worker does not run.
	ErrUnknownJob = errors.New("unknown job type")
)

// JobMessage is the payload of a worker trigger.
type JobMessage struct {
	JobType string `json:"job_type"`

	// Catalogs overrides the configured catalogs of a catalog_sync job,
	// as "provider/resolution" names.
	Catalogs []string `json:"catalogs,omitempty"`
}

// Dispatcher runs the job a message asks for.
type Dispatcher struct {
	job    *SyncJob
	logger zerolog.Logger
}

// NewDispatcher creates a Dispatcher for job.
func NewDispatcher(job *SyncJob, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{job: job, logger: logger}
}

// Dispatch decodes data and runs the job it names.
func (d *Dispatcher) Dispatch(ctx context.Context, data []byte) error {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	switch msg.JobType {
	case JobCatalogSync:
		return d.catalogSync(ctx, msg)
	case JobHealthCheck:
		d.logger.Debug().Msg("running health check")
		return d.job.Check(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJob, msg.JobType)
	}
}

func (d *Dispatcher) catalogSync(ctx context.Context, msg JobMessage) error {
	catalogs := d.job.Catalogs()
	if len(msg.Catalogs) > 0 {
		parsed, err := ParseCatalogs(msg.Catalogs)
		if err != nil {
			return err
		}
		catalogs = parsed
	}

	result := d.job.RunCatalogs(ctx, catalogs)
	if result.Failed > 0 {
		return fmt.Errorf("catalog sync failed for %d of %d catalogs", result.Failed, result.Catalogs)
	}
	return nil
}

// PubSubHandler feeds Pub/Sub messages to a Dispatcher.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	dispatcher       *Dispatcher
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Dispatcher       *Dispatcher
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Catalog syncs are slow and not worth running in parallel.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 1
	subscriber.ReceiveSettings.MaxExtension = 15 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		dispatcher:       cfg.Dispatcher,
		logger:           cfg.Logger,
	}, nil
}

// Start processes messages until ctx is cancelled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if Settle(ctx, h.dispatcher, h.logger, msg.ID, msg.Data) {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

// Settle dispatches one message and reports whether it should be acked.
// Unknown job types are acked so that they are not redelivered.
func Settle(ctx context.Context, d *Dispatcher, logger zerolog.Logger, messageID string, data []byte) bool {
	start := time.Now()
	logger = logger.With().Str("message_id", messageID).Logger()
	logger.Debug().Msg("received pubsub message")

	err := d.Dispatch(ctx, data)
	switch {
	case err == nil:
		logger.Info().Dur("duration", time.Since(start)).Msg("job completed successfully")
		return true
	case errors.Is(err, ErrUnknownJob):
		logger.Warn().Err(err).Msg("ignoring message")
		return true
	default:
		logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("job failed")
		return false
	}
}
