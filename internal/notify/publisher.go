// Package notify is the post-commit Notification Feed: a fire-and-forget
// channel over Redis that announces committed transfers. It never
// participates in the transfer itself and a publish failure never reverses
// or blocks a commit.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CommittedListKey is the Redis list key committed-transfer notifications
// are pushed onto.
const CommittedListKey = "transfers:committed"

// CommittedMessage is the payload pushed for every committed transfer.
type CommittedMessage struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	CommittedAt   time.Time `json:"committed_at"`
}

// Publisher announces a committed transaction to the feed.
type Publisher interface {
	PublishCommitted(ctx context.Context, transactionID uuid.UUID) error
}

// RedisPublisher is the Publisher backed by a Redis list.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher builds a RedisPublisher over client.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// PublishCommitted pushes a CommittedMessage onto CommittedListKey.
func (p *RedisPublisher) PublishCommitted(ctx context.Context, transactionID uuid.UUID) error {
	msg := CommittedMessage{
		TransactionID: transactionID,
		CommittedAt:   time.Now(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := p.client.RPush(ctx, CommittedListKey, data).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	return nil
}

// FeedLength returns the current number of unconsumed notifications.
func (p *RedisPublisher) FeedLength(ctx context.Context) (int64, error) {
	return p.client.LLen(ctx, CommittedListKey).Result()
}
