// Package events fans out domain change notifications to downstream consumers.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"murmur/internal/config"
	"murmur/internal/middleware"
	"murmur/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Type names a domain change.
type Type string

// Event types
const (
	FriendRequestSent      Type = "friend_request.sent"
	FriendRequestResponded Type = "friend_request.responded"
	FriendRemoved          Type = "friend.removed"
	ConversationCreated    Type = "conversation.created"
	ConversationUpdated    Type = "conversation.updated"
	ConversationDeleted    Type = "conversation.deleted"
	MessageSent            Type = "message.sent"
	ProfileUpdated         Type = "profile.updated"
)

// Event is one change notification addressed to the users it affects.
type Event struct {
	Type       Type        `json:"type"`
	Key        string      `json:"key"`
	Recipients []uint      `json:"recipients"`
	Payload    interface{} `json:"payload,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// New builds an event with recipients de-duplicated in first-seen order.
func New(t Type, key string, recipients []uint, payload interface{}) Event {
	seen := make(map[uint]struct{}, len(recipients))
	unique := make([]uint, 0, len(recipients))
	for _, id := range recipients {
		if _, ok := seen[id]; ok || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return Event{
		Type:       t,
		Key:        key,
		Recipients: unique,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

// UserKey is the partition key for events about a user.
func UserKey(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

// ConversationKey is the partition key for events about a conversation.
func ConversationKey(conversationID uint) string {
	return fmt.Sprintf("conversation:%d", conversationID)
}

// Publisher delivers events to a backend.
type Publisher interface {
	Backend() string
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// NewPublisher returns the publisher selected by EVENTS_BACKEND. The redis
// backend degrades to a no-op when rdb is nil.
func NewPublisher(cfg *config.Config, rdb *redis.Client) (Publisher, error) {
	switch cfg.EventsBackend {
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokerList(), cfg.KafkaTopic), nil
	case "redis":
		if rdb == nil {
			middleware.Logger.Warn("EVENTS_BACKEND=redis but Redis is unavailable; events disabled")
			return NopPublisher{}, nil
		}
		return NewRedisPublisher(rdb), nil
	case "none", "":
		return NopPublisher{}, nil
	default:
		return nil, fmt.Errorf("unsupported EVENTS_BACKEND %q", cfg.EventsBackend)
	}
}

// Emit publishes evt and swallows failures after logging and counting them.
func Emit(ctx context.Context, p Publisher, evt Event) {
	if p == nil || len(evt.Recipients) == 0 {
		return
	}
	if err := p.Publish(ctx, evt); err != nil {
		observability.EventPublishErrors.WithLabelValues(p.Backend()).Inc()
		middleware.Logger.WarnContext(ctx, "failed to publish event",
			slog.String("event", string(evt.Type)),
			slog.String("key", evt.Key),
			slog.String("backend", p.Backend()),
			slog.String("error", err.Error()),
		)
	}
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Backend() string                      { return "none" }
func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
