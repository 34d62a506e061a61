// internal/workers/conversation/handle-message/cache.go
package handlemessage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const replyKeyPrefix = "catalog:reply:"

// ReplyCache remembers the reply sent for a message id so a redelivered
// job gets the same answer without running the workflow again.
type ReplyCache interface {
	Get(ctx context.Context, messageID string) (*Output, bool, error)
	Put(ctx context.Context, messageID string, output *Output) error
}

type RedisReplyCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisReplyCache(client redis.Cmdable, ttl time.Duration) *RedisReplyCache {
	return &RedisReplyCache{client: client, ttl: ttl}
}

func replyKey(messageID string) string {
	return replyKeyPrefix + messageID
}

func (c *RedisReplyCache) Get(ctx context.Context, messageID string) (*Output, bool, error) {
	val, err := c.client.Get(ctx, replyKey(messageID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get reply: %w", err)
	}

	var out Output
	if err := json.Unmarshal([]byte(val), &out); err != nil {
		return nil, false, fmt.Errorf("decode reply: %w", err)
	}
	return &out, true, nil
}

func (c *RedisReplyCache) Put(ctx context.Context, messageID string, output *Output) error {
	data, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}
	if err := c.client.Set(ctx, replyKey(messageID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set reply: %w", err)
	}
	return nil
}
