package storage

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestRedisSeenStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	t.Parallel()

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	key := "research:test:" + uuid.NewString()
	t.Cleanup(func() { _ = client.Del(context.Background(), key).Err() })

	store := NewRedisSeenStore(client, key)
	if ok, err := store.Contains(ctx, "https://example.com/a"); err != nil || ok {
		t.Fatalf("Contains before Add = %v, %v", ok, err)
	}
	if err := store.Add(ctx, "https://example.com/a"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if ok, err := store.Contains(ctx, "https://example.com/a"); err != nil || !ok {
		t.Fatalf("Contains after Add = %v, %v", ok, err)
	}
}

func TestNewRedisSeenStoreDefaultKey(t *testing.T) {
	t.Parallel()

	store := NewRedisSeenStore(redis.NewClient(&redis.Options{}), "")
	if store.key != DefaultSeenKey {
		t.Fatalf("key = %q", store.key)
	}
}
