package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"instagram-feed/domain/model"

	"github.com/redis/go-redis/v9"
)

const (
	snapshotKeyPrefix = "instagram:snapshot:"
	// Snapshots outlive the in-memory TTL; a week caps how old a fallback
	// served after a restart can be.
	defaultSnapshotRetention = 7 * 24 * time.Hour
)

type snapshotValue struct {
	Items     []model.DisplayItem `json:"items"`
	FetchedAt time.Time           `json:"fetched_at"`
}

// FeedSnapshotRedis keeps the last good feed in Redis.
type FeedSnapshotRedis struct {
	client    redis.Cmdable
	retention time.Duration
}

func NewFeedSnapshotRedis(client redis.Cmdable) *FeedSnapshotRedis {
	return &FeedSnapshotRedis{client: client, retention: defaultSnapshotRetention}
}

// WithRetention sets how long a snapshot is kept in Redis (fluent).
func (s *FeedSnapshotRedis) WithRetention(d time.Duration) *FeedSnapshotRedis {
	s.retention = d
	return s
}

func (s *FeedSnapshotRedis) LoadSnapshot(ctx context.Context, key string) (*model.CacheEntry, error) {
	if s.client == nil {
		return nil, nil
	}
	raw, err := s.client.Get(ctx, snapshotKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot %s: %w", key, err)
	}
	var v snapshotValue
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", key, err)
	}
	return &model.CacheEntry{Key: key, Items: v.Items, FetchedAt: v.FetchedAt}, nil
}

func (s *FeedSnapshotRedis) SaveSnapshot(ctx context.Context, entry *model.CacheEntry) error {
	if s.client == nil || entry == nil {
		return nil
	}
	raw, err := json.Marshal(snapshotValue{Items: entry.Items, FetchedAt: entry.FetchedAt.UTC()})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, snapshotKeyPrefix+entry.Key, raw, s.retention).Err(); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", entry.Key, err)
	}
	return nil
}

func (s *FeedSnapshotRedis) DeleteSnapshot(ctx context.Context, key string) error {
	if s.client == nil {
		return nil
	}
	return s.client.Del(ctx, snapshotKeyPrefix+key).Err()
}
