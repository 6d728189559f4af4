package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "weatherhub:obs:"

// RedisStore keeps cache entries in Redis so multiple instances share
// one freshness window. Entries carry their own expiry; the physical
// Redis TTL is three times the logical one so a logically expired
// entry remains readable for stale serving.
type RedisStore struct {
	client      *redis.Client
	physicalTTL time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr string, db int, logicalTTL time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	slog.Info("redis cache store connected", "addr", addr, "db", db)

	return &RedisStore{
		client:      client,
		physicalTTL: 3 * logicalTTL,
	}, nil
}

// NewRedisStoreWithClient wraps an existing client; used by tests.
func NewRedisStoreWithClient(client *redis.Client, logicalTTL time.Duration) *RedisStore {
	return &RedisStore{client: client, physicalTTL: 3 * logicalTTL}
}

func (s *RedisStore) Name() string { return "redis" }

func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, bool) {
	val, err := s.client.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			slog.Error("redis get error", "error", err, "key", key)
		}
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		slog.Error("redis unmarshal error", "error", err, "key", key)
		return nil, false
	}
	return &entry, true
}

func (s *RedisStore) Set(ctx context.Context, key string, entry *Entry) {
	if entry == nil {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		slog.Error("redis marshal error", "error", err, "key", key)
		return
	}

	if err := s.client.Set(ctx, redisKeyPrefix+key, data, s.physicalTTL).Err(); err != nil {
		slog.Error("redis set error", "error", err, "key", key)
	}
}

func (s *RedisStore) Delete(ctx context.Context, key string) {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		slog.Error("redis delete error", "error", err, "key", key)
	}
}

func (s *RedisStore) Clear(ctx context.Context) {
	keys, err := s.client.Keys(ctx, redisKeyPrefix+"*").Result()
	if err != nil {
		slog.Error("redis scan error", "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		slog.Error("redis clear error", "error", err)
	}
}

func (s *RedisStore) Keys(ctx context.Context) []string {
	keys, err := s.client.Keys(ctx, redisKeyPrefix+"*").Result()
	if err != nil {
		slog.Error("redis scan error", "error", err)
		return nil
	}

	out := make([]string, 0, len(keys))
	for _, key := range keys {
		out = append(out, strings.TrimPrefix(key, redisKeyPrefix))
	}
	return out
}

func (s *RedisStore) Len(ctx context.Context) int {
	return len(s.Keys(ctx))
}
