package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// RedisStore keeps each user's thread in a Redis list.
type RedisStore struct {
	redis  *redis.Client
	tracer trace.Tracer
	prefix string
}

// NewRedisStore creates a store on client.
func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("chat: redis client cannot be nil")
	}
	return &RedisStore{
		redis:  client,
		tracer: otel.Tracer("docbook.internal.chat.store"),
		prefix: "docbook:chat",
	}
}

func (s *RedisStore) Append(ctx context.Context, msg *Message) error {
	ctx, span := s.tracer.Start(ctx, "chat.append_message")
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: failed to marshal message: %w", err)
	}
	if err := s.redis.RPush(ctx, s.threadKey(msg.UserID), data).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: failed to persist message: %w", err)
	}
	return nil
}

// List returns the user's thread oldest first.
func (s *RedisStore) List(ctx context.Context, userID string) ([]*Message, error) {
	ctx, span := s.tracer.Start(ctx, "chat.list_messages")
	defer span.End()

	items, err := s.redis.LRange(ctx, s.threadKey(userID), 0, -1).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chat: failed to load thread: %w", err)
	}
	out := make([]*Message, 0, len(items))
	for _, item := range items {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("chat: failed to decode message: %w", err)
		}
		out = append(out, &msg)
	}
	return out, nil
}

func (s *RedisStore) threadKey(userID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, userID)
}
