package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/skyward-cloud/gatehouse/core"
	"github.com/skyward-cloud/gatehouse/ports"
)

const pendingPrefix = "gatehouse:pending:"

// RedisCredentialCache is the Redis implementation of the ephemeral
// credential cache. Records expire server-side via TTL; Consume uses GETDEL
// so exactly one consumer per key wins.
type RedisCredentialCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCredentialCache creates a new Redis credential cache.
func NewRedisCredentialCache(client *redis.Client) ports.CredentialCache {
	return &RedisCredentialCache{
		client: client,
		prefix: pendingPrefix,
	}
}

// Put stores the credentials under a fresh one-time key.
func (c *RedisCredentialCache) Put(ctx context.Context, creds core.Credentials, ttl time.Duration) (string, error) {
	record := core.PendingCredential{
		Credentials: creds,
		CreatedAt:   time.Now(),
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to encode pending credential: %w", err)
	}

	key := uuid.New().String()
	if err := c.client.Set(ctx, c.prefix+key, payload, ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}

	return key, nil
}

// Peek reads the record without consuming it.
func (c *RedisCredentialCache) Peek(ctx context.Context, key string) (*core.PendingCredential, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrKeyNotFound
		}
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}

	return decodePending(data)
}

// Consume atomically reads and deletes the record.
func (c *RedisCredentialCache) Consume(ctx context.Context, key string) (*core.PendingCredential, error) {
	data, err := c.client.GetDel(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrKeyNotFound
		}
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}

	return decodePending(data)
}

// Delete removes the record if it still exists.
func (c *RedisCredentialCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	return nil
}

func decodePending(data []byte) (*core.PendingCredential, error) {
	var record core.PendingCredential
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode pending credential: %w", err)
	}
	return &record, nil
}
