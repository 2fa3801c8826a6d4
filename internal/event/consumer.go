package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/emerginginv/crm-notifications/internal/service"
	pkgkafka "github.com/emerginginv/crm-notifications/pkg/kafka"
)

// Topics consumed from the CRM core services.
const (
	TopicTaskChanged        = "crm.task.changed"
	TopicDealChanged        = "crm.deal.changed"
	TopicPreferencesChanged = "crm.preferences.changed"
)

// Consumer group ID for the notification service.
const ConsumerGroupID = "crm-notifications"

// FeedRecomputer rebuilds a user's notification feed. Satisfied by
// service.NotificationService.
type FeedRecomputer interface {
	Recompute(ctx context.Context, userID, trigger string) error
}

// PreferenceInvalidator drops a user's cached preferences so the next read
// hits the store. Satisfied by rediscache.PreferenceCache.
type PreferenceInvalidator interface {
	Invalidate(ctx context.Context, userID string)
}

// changedPayload is the shared shape of CRM change events. Only the owning
// user matters here; the feed re-reads the full snapshot anyway.
type changedPayload struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
}

// ConsumerHandler routes incoming Kafka events to feed recomputations.
type ConsumerHandler struct {
	feeds  FeedRecomputer
	prefs  PreferenceInvalidator
	logger *slog.Logger
}

// NewConsumerHandler creates a new event consumer handler.
func NewConsumerHandler(feeds FeedRecomputer, prefs PreferenceInvalidator, logger *slog.Logger) *ConsumerHandler {
	return &ConsumerHandler{
		feeds:  feeds,
		prefs:  prefs,
		logger: logger,
	}
}

// Handle processes an incoming Kafka event based on its event type.
func (h *ConsumerHandler) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicTaskChanged:
		return h.handleChanged(ctx, event, "task.changed", service.TriggerEvent)
	case TopicDealChanged:
		return h.handleChanged(ctx, event, "deal.changed", service.TriggerEvent)
	case TopicPreferencesChanged:
		return h.handlePreferencesChanged(ctx, event)
	default:
		h.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// handleChanged recomputes the owning user's feed after a task or deal change.
func (h *ConsumerHandler) handleChanged(ctx context.Context, event *pkgkafka.Event, name, trigger string) error {
	var payload changedPayload
	if err := event.UnmarshalData(&payload); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", name, err)
	}

	if payload.UserID == "" {
		h.logger.WarnContext(ctx, "change event without user id, skipping",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	if err := h.feeds.Recompute(ctx, payload.UserID, trigger); err != nil {
		return fmt.Errorf("recompute feed for %s: %w", name, err)
	}

	return nil
}

// handlePreferencesChanged drops the cached preferences before recomputing,
// so the rebuild sees the new configuration.
func (h *ConsumerHandler) handlePreferencesChanged(ctx context.Context, event *pkgkafka.Event) error {
	var payload changedPayload
	if err := event.UnmarshalData(&payload); err != nil {
		return fmt.Errorf("unmarshal preferences.changed payload: %w", err)
	}

	if payload.UserID == "" {
		h.logger.WarnContext(ctx, "preferences event without user id, skipping",
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	if h.prefs != nil {
		h.prefs.Invalidate(ctx, payload.UserID)
	}

	if err := h.feeds.Recompute(ctx, payload.UserID, service.TriggerPreferences); err != nil {
		return fmt.Errorf("recompute feed for preferences.changed: %w", err)
	}

	return nil
}

// NewConsumers creates Kafka consumers for all topics the service subscribes
// to, all sharing one consumer group. The handle func is typically a
// ConsumerHandler.Handle wrapped with idempotency.
func NewConsumers(brokers []string, handle pkgkafka.Handler, logger *slog.Logger) []*pkgkafka.Consumer {
	topics := []string{
		TopicTaskChanged,
		TopicDealChanged,
		TopicPreferencesChanged,
	}

	consumers := make([]*pkgkafka.Consumer, 0, len(topics))

	for _, topic := range topics {
		cfg := pkgkafka.ConsumerConfig{
			Brokers:   brokers,
			GroupID:   ConsumerGroupID,
			Topic:     topic,
			MinBytes:  1,
			MaxBytes:  10e6,
			EnableDLQ: true,
		}

		consumer := pkgkafka.NewConsumer(cfg, handle, logger)
		consumers = append(consumers, consumer)
	}

	return consumers
}
