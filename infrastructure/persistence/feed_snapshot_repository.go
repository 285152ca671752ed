package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"instagram-feed/domain/model"
)

// FeedSnapshotRepository keeps the last good normalized feed per cache key.
// Items are stored as JSONB; the TTL is decided by the caller at read time.
type FeedSnapshotRepository struct{ db *sql.DB }

func NewFeedSnapshotRepository(db *sql.DB) *FeedSnapshotRepository {
	return &FeedSnapshotRepository{db: db}
}

func (r *FeedSnapshotRepository) LoadSnapshot(ctx context.Context, key string) (*model.CacheEntry, error) {
	if r.db == nil {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx, `SELECT data, fetched_at FROM instagram_feed_snapshots WHERE cache_key=$1`, key)
	var raw []byte
	var fetchedAt time.Time
	if err := row.Scan(&raw, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return decodeSnapshot(key, raw, fetchedAt)
}

func (r *FeedSnapshotRepository) SaveSnapshot(ctx context.Context, entry *model.CacheEntry) error {
	if r.db == nil || entry == nil {
		return nil
	}
	raw, err := json.Marshal(entry.Items)
	if err != nil {
		return err
	}
	q := `INSERT INTO instagram_feed_snapshots(cache_key, data, fetched_at, updated_at)
          VALUES ($1,$2,$3,$4)
          ON CONFLICT (cache_key) DO UPDATE SET data=EXCLUDED.data, fetched_at=EXCLUDED.fetched_at, updated_at=EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, q, entry.Key, raw, entry.FetchedAt.UTC(), time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert instagram_feed_snapshots: %w", err)
	}
	return nil
}

func (r *FeedSnapshotRepository) DeleteSnapshot(ctx context.Context, key string) error {
	if r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM instagram_feed_snapshots WHERE cache_key=$1`, key)
	return err
}

func decodeSnapshot(key string, raw []byte, fetchedAt time.Time) (*model.CacheEntry, error) {
	var items []model.DisplayItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return &model.CacheEntry{Key: key, Items: items, FetchedAt: fetchedAt}, nil
}
