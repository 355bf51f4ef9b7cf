package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"ResearchPublisher/internal/ports"
	"ResearchPublisher/internal/triage"
)

// DefaultSeenKey is the Redis set holding normalized URLs.
const DefaultSeenKey = "research:seen_urls"

// RedisSeenStore keeps seen URLs in a Redis set shared by every instance.
type RedisSeenStore struct {
	client redis.UniversalClient
	key    string
}

var (
	_ triage.SeenStore   = (*RedisSeenStore)(nil)
	_ ports.SeenURLStore = (*RedisSeenStore)(nil)
)

// NewRedisSeenStore uses key, or DefaultSeenKey when blank.
func NewRedisSeenStore(client redis.UniversalClient, key string) *RedisSeenStore {
	if key == "" {
		key = DefaultSeenKey
	}
	return &RedisSeenStore{client: client, key: key}
}

// Contains reports set membership.
func (s *RedisSeenStore) Contains(ctx context.Context, url string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.key, url).Result()
	if err != nil {
		return false, fmt.Errorf("redis sismember: %w", err)
	}
	return ok, nil
}

// Add inserts the URL into the set.
func (s *RedisSeenStore) Add(ctx context.Context, url string) error {
	if err := s.client.SAdd(ctx, s.key, url).Err(); err != nil {
		return fmt.Errorf("redis sadd: %w", err)
	}
	return nil
}
