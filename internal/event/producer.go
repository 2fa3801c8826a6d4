package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/emerginginv/crm-notifications/pkg/kafka"
)

// Kafka topic for notification feed events.
const TopicFeedUpdated = "crm.notification.feed.updated"

// Aggregate type constant.
const AggregateTypeFeed = "notification_feed"

// Source identifier for events originating from this service.
const SourceNotificationService = "notification-service"

// FeedUpdatedData is the payload for a notification.feed.updated event.
type FeedUpdatedData struct {
	UserID string `json:"user_id"`
	Total  int    `json:"total"`
	Unread int    `json:"unread"`
}

// Producer publishes notification feed events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the notification service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishFeedUpdated publishes a notification.feed.updated event after a
// user's feed has been recomputed.
func (p *Producer) PublishFeedUpdated(ctx context.Context, userID string, total, unread int) error {
	if p.kafka == nil {
		return nil
	}

	data := FeedUpdatedData{
		UserID: userID,
		Total:  total,
		Unread: unread,
	}

	event, err := pkgkafka.NewEvent(TopicFeedUpdated, userID, AggregateTypeFeed, SourceNotificationService, data)
	if err != nil {
		return fmt.Errorf("create feed.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicFeedUpdated, event); err != nil {
		return fmt.Errorf("publish feed.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published feed.updated event",
		slog.String("user_id", userID),
		slog.Int("total", total),
		slog.Int("unread", unread),
	)

	return nil
}
