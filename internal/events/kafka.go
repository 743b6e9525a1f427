package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"murmur/internal/middleware"
	"murmur/internal/observability"

	k "github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...k.Message) error
	Close() error
}

// KafkaPublisher writes one record per event to a topic, keyed by Event.Key.
type KafkaPublisher struct {
	w messageWriter
}

// NewKafkaPublisher creates an asynchronous writer; delivery failures are
// reported through the completion callback.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &k.Writer{
		Addr:         k.TCP(brokers...),
		Topic:        topic,
		Balancer:     &k.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: k.RequireOne,
		Async:        true,
		Completion: func(messages []k.Message, err error) {
			if err == nil {
				return
			}
			observability.EventPublishErrors.WithLabelValues("kafka").Add(float64(len(messages)))
			middleware.Logger.Warn("kafka event delivery failed",
				slog.Int("messages", len(messages)),
				slog.String("topic", topic),
				slog.String("error", err.Error()),
			)
		},
	}
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) Backend() string { return "kafka" }

func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.w.WriteMessages(ctx, k.Message{
		Key:   []byte(evt.Key),
		Value: value,
		Time:  evt.OccurredAt,
		Headers: []k.Header{
			{Key: "type", Value: []byte(evt.Type)},
		},
	})
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }
