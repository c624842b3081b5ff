package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/fantasylifeleague/healthapi/internal/resilience"
)

// EventType is the "event" attribute set on published audit messages.
const EventType = "health.submission.decided"

// PubSubPublisher forwards audit records to a Pub/Sub topic.
type PubSubPublisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topic     string
	guard     *resilience.Guard[string]
	logger    zerolog.Logger
}

// PubSubPublisherConfig holds configuration for the publisher.
type PubSubPublisherConfig struct {
	ProjectID string
	Topic     string
	Guard     resilience.GuardConfig
	Logger    zerolog.Logger
}

// NewPubSubPublisher creates a publisher for the configured topic.
func NewPubSubPublisher(ctx context.Context, cfg PubSubPublisherConfig) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	if cfg.Guard.Name == "" {
		cfg.Guard = resilience.DefaultGuardConfig("audit-pubsub")
	}

	return &PubSubPublisher{
		client:    client,
		publisher: client.Publisher(cfg.Topic),
		topic:     cfg.Topic,
		guard:     resilience.NewGuard[string](cfg.Guard),
		logger:    cfg.Logger,
	}, nil
}

// Record publishes rec and waits for the server acknowledgement.
func (p *PubSubPublisher) Record(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding audit record: %w", err)
	}

	serverID, err := p.guard.Do(ctx, func(ctx context.Context) (string, error) {
		result := p.publisher.Publish(ctx, &pubsub.Message{
			Data: data,
			Attributes: map[string]string{
				"event":   EventType,
				"user_id": rec.UserID,
			},
		})
		return result.Get(ctx)
	})
	if err != nil {
		return fmt.Errorf("publishing audit record: %w", err)
	}

	p.logger.Debug().
		Str("audit_id", rec.ID).
		Str("message_id", serverID).
		Str("topic", p.topic).
		Msg("audit record published")
	return nil
}

// Guard exposes the publish guard for health reporting.
func (p *PubSubPublisher) Guard() *resilience.Guard[string] {
	return p.guard
}

// Close flushes pending messages and closes the client.
func (p *PubSubPublisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}

// Consumer receives audit records from a subscription and stores them.
type Consumer struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	handler          *MessageHandler
	logger           zerolog.Logger
}

// ConsumerConfig holds configuration for the consumer.
type ConsumerConfig struct {
	ProjectID        string
	SubscriptionName string
	Store            Recorder
	Logger           zerolog.Logger
}

// NewConsumer creates a new audit consumer.
func NewConsumer(ctx context.Context, cfg ConsumerConfig) (*Consumer, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 50
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &Consumer{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		handler:          NewMessageHandler(cfg.Store, cfg.Logger),
		logger:           cfg.Logger,
	}, nil
}

// Start receives messages until ctx is canceled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info().
		Str("subscription", c.subscriptionName).
		Msg("starting audit consumer")

	return c.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		logger := c.logger.With().
			Str("message_id", msg.ID).
			Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
			Logger()

		switch err := c.handler.Handle(ctx, msg.Attributes["event"], msg.Data); {
		case err == nil:
			msg.Ack()
		case IsPoison(err):
			logger.Error().Err(err).Msg("dropping undecodable audit message")
			msg.Ack()
		default:
			logger.Error().Err(err).Msg("failed to store audit record")
			msg.Nack()
		}
	})
}

// Close closes the Pub/Sub client.
func (c *Consumer) Close() error {
	return c.client.Close()
}
