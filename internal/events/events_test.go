package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"murmur/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	k "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDedupesRecipients(t *testing.T) {
	evt := New(MessageSent, ConversationKey(4), []uint{2, 0, 1, 2, 1}, nil)
	assert.Equal(t, []uint{2, 1}, evt.Recipients)
	assert.Equal(t, "conversation:4", evt.Key)
	assert.False(t, evt.OccurredAt.IsZero())
}

func TestRedisPublisherDeliversToEachRecipient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx := context.Background()
	sub := rdb.Subscribe(ctx, UserChannel(1), UserChannel(2))
	defer func() { _ = sub.Close() }()
	// Wait for both subscription confirmations.
	for i := 0; i < 2; i++ {
		_, err := sub.Receive(ctx)
		require.NoError(t, err)
	}

	p := NewRedisPublisher(rdb)
	require.NoError(t, p.Publish(ctx, New(FriendRemoved, UserKey(1), []uint{1, 2}, map[string]uint{"friend_id": 2})))

	got := map[string]Event{}
	ch := sub.Channel()
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case msg := <-ch:
			var evt Event
			require.NoError(t, json.Unmarshal([]byte(msg.Payload), &evt))
			got[msg.Channel] = evt
		case <-timeout:
			t.Fatalf("received %d of 2 events", len(got))
		}
	}

	assert.Equal(t, FriendRemoved, got["murmur:user:1"].Type)
	assert.Equal(t, []uint{1, 2}, got["murmur:user:2"].Recipients)
}

func TestRedisPublisherNilClient(t *testing.T) {
	assert.NoError(t, NewRedisPublisher(nil).Publish(context.Background(), New(ProfileUpdated, UserKey(1), []uint{1}, nil)))
}

type fakeWriter struct {
	msgs []k.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...k.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisherWritesKeyedRecord(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{w: w}

	evt := New(ConversationDeleted, ConversationKey(9), []uint{3}, map[string]uint{"conversation_id": 9})
	require.NoError(t, p.Publish(context.Background(), evt))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "conversation:9", string(w.msgs[0].Key))
	assert.Equal(t, "conversation.deleted", string(w.msgs[0].Headers[0].Value))

	var decoded Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, ConversationDeleted, decoded.Type)
	assert.Equal(t, []uint{3}, decoded.Recipients)
}

type recordingPublisher struct {
	calls int
	err   error
}

func (p *recordingPublisher) Backend() string { return "test" }
func (p *recordingPublisher) Publish(context.Context, Event) error {
	p.calls++
	return p.err
}
func (p *recordingPublisher) Close() error { return nil }

func TestEmit(t *testing.T) {
	ctx := context.Background()

	failing := &recordingPublisher{err: errors.New("broker down")}
	Emit(ctx, failing, New(MessageSent, ConversationKey(1), []uint{1}, nil))
	assert.Equal(t, 1, failing.calls)

	noRecipients := &recordingPublisher{}
	Emit(ctx, noRecipients, New(MessageSent, ConversationKey(1), nil, nil))
	assert.Zero(t, noRecipients.calls)

	Emit(ctx, nil, New(MessageSent, ConversationKey(1), []uint{1}, nil))
}

func TestNewPublisher(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		rdb     *redis.Client
		want    string
		wantErr bool
	}{
		{name: "none", backend: "none", want: "none"},
		{name: "redis without client", backend: "redis", want: "none"},
		{name: "redis", backend: "redis", rdb: redis.NewClient(&redis.Options{Addr: "localhost:0"}), want: "redis"},
		{name: "kafka", backend: "kafka", want: "kafka"},
		{name: "unknown", backend: "carrier-pigeon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{EventsBackend: tt.backend, KafkaBrokers: "localhost:9092", KafkaTopic: "murmur.events"}
			p, err := NewPublisher(cfg, tt.rdb)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Backend())
			assert.NoError(t, p.Close())
		})
	}
}
