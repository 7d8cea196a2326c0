package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skyward-cloud/gatehouse/core"
	"github.com/skyward-cloud/gatehouse/ports"
)

const (
	sessionPrefix  = "gatehouse:session:"
	projectsPrefix = "gatehouse:projects:"
)

// RedisSessionStore persists session records in Redis keyed by the opaque
// session ID from the browser cookie.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionStore creates a new Redis session store.
func NewRedisSessionStore(client *redis.Client) ports.SessionStore {
	return &RedisSessionStore{
		client: client,
		prefix: sessionPrefix,
	}
}

// Save writes the session record with the given TTL.
func (s *RedisSessionStore) Save(ctx context.Context, id string, session *core.Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+id, payload, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	return nil
}

// Load reads a session record. Absent or expired sessions return
// core.ErrNotFound.
func (s *RedisSessionStore) Load(ctx context.Context, id string) (*core.Session, error) {
	data, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}

	var session core.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

// Delete destroys a session record.
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.prefix+id).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	return nil
}

// RedisProjectCache purges per-token project data cached by the console.
type RedisProjectCache struct {
	client *redis.Client
	prefix string
}

// NewRedisProjectCache creates a new Redis project cache.
func NewRedisProjectCache(client *redis.Client) ports.ProjectCache {
	return &RedisProjectCache{
		client: client,
		prefix: projectsPrefix,
	}
}

// Purge removes cached project data keyed by the token being revoked.
func (c *RedisProjectCache) Purge(ctx context.Context, tokenID string) error {
	if err := c.client.Del(ctx, c.prefix+tokenID).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	return nil
}
