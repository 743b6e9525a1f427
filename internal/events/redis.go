package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// UserChannel returns the Redis channel carrying events for userID.
func UserChannel(userID uint) string {
	return fmt.Sprintf("murmur:user:%d", userID)
}

// RedisPublisher publishes each event to every recipient's user channel.
type RedisPublisher struct {
	rdb *redis.Client
}

// NewRedisPublisher creates a RedisPublisher using the provided client.
func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Backend() string { return "redis" }

func (p *RedisPublisher) Publish(ctx context.Context, evt Event) error {
	if p.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = p.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range evt.Recipients {
			pipe.Publish(ctx, UserChannel(id), payload)
		}
		return nil
	})
	return err
}

// Close is a no-op; the Redis client is owned by the caller.
func (p *RedisPublisher) Close() error { return nil }
