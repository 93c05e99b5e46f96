// Package redisstore keeps chat history in Redis sorted sets.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vovakirdan/dsolution-crm/internal/store"
)

// MessageStore implements store.MessageStore on Redis.
//
// Each owner has one sorted set scored by creation time in microseconds.
// Members are JSON documents that start with the ULID id, so members sharing
// a score sort by id, which is monotonic within the process.
type MessageStore struct {
	client *redis.Client
	now    func() time.Time
}

// New connects to redisURL and verifies the connection.
func New(ctx context.Context, redisURL string) (*MessageStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewFromClient(client), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *redis.Client) *MessageStore {
	return &MessageStore{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Close closes the Redis connection.
func (s *MessageStore) Close() error {
	return s.client.Close()
}

func ownerMessagesKey(ownerID string) string {
	return fmt.Sprintf("messages:%s", ownerID)
}

// SaveMessage appends a message to the owner's sorted set.
func (s *MessageStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	msg.ID = store.NewMessageID()
	// Scores have microsecond precision; equal scores must mean equal timestamps.
	msg.CreatedAt = s.now().Truncate(time.Microsecond)

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = s.client.ZAdd(ctx, ownerMessagesKey(msg.OwnerID), redis.Z{
		Score:  float64(msg.CreatedAt.UnixMicro()),
		Member: string(data),
	}).Err()
	if err != nil {
		return fmt.Errorf("zadd message: %w", err)
	}
	return nil
}

// ListMessages returns the owner's messages, oldest first.
func (s *MessageStore) ListMessages(ctx context.Context, ownerID string) ([]*store.Message, error) {
	results, err := s.client.ZRange(ctx, ownerMessagesKey(ownerID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange messages: %w", err)
	}

	messages := make([]*store.Message, 0, len(results))
	for _, data := range results {
		var msg store.Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			return nil, fmt.Errorf("unmarshal message: %w", err)
		}
		messages = append(messages, &msg)
	}
	return messages, nil
}
