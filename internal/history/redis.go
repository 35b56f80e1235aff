package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/lovedemo/seedManage/internal/domain"
)

const defaultRedisKey = "seedmanage:history"

// RedisStore keeps history in a capped Redis list, newest at the head.
type RedisStore struct {
	client redis.UniversalClient
	key    string
	limit  int
}

func NewRedisStore(client redis.UniversalClient, key string, limit int) *RedisStore {
	storeKey := strings.TrimSpace(key)
	if storeKey == "" {
		storeKey = defaultRedisKey
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &RedisStore{client: client, key: storeKey, limit: limit}
}

// ConnectRedis parses url and verifies the server answers.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (s *RedisStore) Name() string { return "redis" }

func (s *RedisStore) Record(ctx context.Context, entry domain.HistoryEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.key, payload)
		pipe.LTrim(ctx, s.key, 0, int64(s.limit-1))
		return nil
	})
	return err
}

func (s *RedisStore) List(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	limit = clampLimit(limit, s.limit)
	items, err := s.client.LRange(ctx, s.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]domain.HistoryEntry, 0, len(items))
	for _, item := range items {
		var entry domain.HistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
