package pubsub

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Channels and payloads consumed by the downstream ingestion workers. The
// payload is a signal to re-read the aggregate, not a data diff.
const (
	ChannelSymbolUpdates = "dtn:ingestion:symbol_updates"
	ChannelConfigUpdates = "dtn:system:config_updates"

	MessageSymbolsUpdated = "symbols_updated"
	MessageConfigUpdated  = "config_updated"
)

// Publisher announces store mutations over the backend's pub/sub mechanism
// with fire-and-forget semantics. When a Kafka writer is configured the same
// signal is mirrored to its topic; the mirror is best-effort and never
// required for correctness.
type Publisher struct {
	db     *redis.Client
	writer *kafka.Writer
	logger *zap.Logger
}

// NewPublisher creates a publisher over the shared backend. writer may be nil.
func NewPublisher(db *redis.Client, writer *kafka.Writer, logger *zap.Logger) *Publisher {
	return &Publisher{
		db:     db,
		writer: writer,
		logger: logger,
	}
}

// Publish delivers a message to a channel. Delivery is not acknowledged and
// subscribers that are offline miss the message; failures are logged and
// swallowed.
func (p *Publisher) Publish(ctx context.Context, channel, message string) {
	if err := p.db.Publish(ctx, channel, message).Err(); err != nil {
		p.logger.Error("failed to publish notification",
			zap.String("channel", channel),
			zap.Error(err))
	}

	if p.writer == nil {
		return
	}

	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(channel),
		Value: []byte(message),
		Time:  time.Now(),
	})
	if err != nil {
		p.logger.Error("failed to mirror notification to kafka",
			zap.String("channel", channel),
			zap.Error(err))
	}
}

// Close closes the Kafka writer if one was configured
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
