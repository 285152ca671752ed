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

// FeedSnapshotRepositoryMSSQL stores the snapshot JSON in NVARCHAR(MAX).
type FeedSnapshotRepositoryMSSQL struct{ db *sql.DB }

func NewFeedSnapshotRepositoryMSSQL(db *sql.DB) *FeedSnapshotRepositoryMSSQL {
	return &FeedSnapshotRepositoryMSSQL{db: db}
}

func (r *FeedSnapshotRepositoryMSSQL) LoadSnapshot(ctx context.Context, key string) (*model.CacheEntry, error) {
	if r.db == nil {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx, `SELECT data, fetched_at FROM dbo.[instagram_feed_snapshots] WHERE cache_key=@p1`, key)
	var raw string
	var fetchedAt time.Time
	if err := row.Scan(&raw, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return decodeSnapshot(key, []byte(raw), fetchedAt)
}

func (r *FeedSnapshotRepositoryMSSQL) SaveSnapshot(ctx context.Context, entry *model.CacheEntry) error {
	if r.db == nil || entry == nil {
		return nil
	}
	raw, err := json.Marshal(entry.Items)
	if err != nil {
		return err
	}
	q := `MERGE dbo.[instagram_feed_snapshots] AS target
USING (VALUES (@p1)) AS src(cache_key)
ON target.cache_key = src.cache_key
WHEN MATCHED THEN UPDATE SET data=@p2, fetched_at=@p3, updated_at=@p4
WHEN NOT MATCHED THEN
    INSERT (cache_key, data, fetched_at, updated_at) VALUES (@p1,@p2,@p3,@p4);`
	if _, err := r.db.ExecContext(ctx, q, entry.Key, string(raw), entry.FetchedAt.UTC(), time.Now().UTC()); err != nil {
		return fmt.Errorf("merge instagram_feed_snapshots (mssql): %w", err)
	}
	return nil
}

func (r *FeedSnapshotRepositoryMSSQL) DeleteSnapshot(ctx context.Context, key string) error {
	if r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM dbo.[instagram_feed_snapshots] WHERE cache_key=@p1`, key)
	return err
}
