package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"instagram-feed/domain/model"
	"instagram-feed/domain/repository"
	"instagram-feed/infrastructure/logger"

	"golang.org/x/sync/singleflight"
)

const (
	defaultRetryBackoff = 2 * time.Second
	defaultMaxBackoff   = 15 * time.Second
)

// LoadFunc produces a fresh feed for a cache key.
type LoadFunc func(ctx context.Context) ([]model.DisplayItem, error)

// CacheResult is what GetFeed hands back. Callers share the Items slice and
// must not modify it.
type CacheResult struct {
	Items     []model.DisplayItem
	FetchedAt time.Time
	Stale     bool
}

// FeedCache is a TTL cache with one in-flight refresh per key. Fresh entries
// are read without locking; refresh failures fall back to the last good entry.
type FeedCache struct {
	entries  sync.Map // key -> *model.CacheEntry, never mutated after Store
	group    singleflight.Group
	snapshot repository.IFeedSnapshot // optional

	backoff    time.Duration
	maxBackoff time.Duration
	now        func() time.Time
}

func NewFeedCache() *FeedCache {
	return &FeedCache{
		backoff:    defaultRetryBackoff,
		maxBackoff: defaultMaxBackoff,
		now:        time.Now,
	}
}

// WithSnapshot keeps the last good feed outside the process (fluent).
func (c *FeedCache) WithSnapshot(snapshot repository.IFeedSnapshot) *FeedCache {
	c.snapshot = snapshot
	return c
}

// WithBackoff sets the retry delay used when the provider gives no hint and the
// cap applied to provider hints (fluent).
func (c *FeedCache) WithBackoff(base, max time.Duration) *FeedCache {
	c.backoff = base
	c.maxBackoff = max
	return c
}

// WithClock replaces the time source (fluent).
func (c *FeedCache) WithClock(now func() time.Time) *FeedCache {
	c.now = now
	return c
}

// GetFeed returns the entry for key, refreshing it through load when it is
// absent or older than ttl.
func (c *FeedCache) GetFeed(ctx context.Context, key string, ttl time.Duration, load LoadFunc) (*CacheResult, error) {
	if entry := c.entry(key); entry != nil && !entry.Stale(c.now()) {
		return &CacheResult{Items: entry.Items, FetchedAt: entry.FetchedAt}, nil
	}

	// The shared refresh outlives any single caller; each HTTP call inside
	// load carries its own timeout.
	refreshCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.refresh(refreshCtx, key, ttl, load)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*CacheResult), nil
	case <-ctx.Done():
		if entry := c.entry(key); entry != nil {
			return &CacheResult{Items: entry.Items, FetchedAt: entry.FetchedAt, Stale: true}, nil
		}
		return nil, &model.FetchError{Kind: model.FetchUnavailable, Message: "request cancelled", Err: ctx.Err()}
	}
}

// Expire forces the next GetFeed for key to refresh while keeping the current
// items as a fallback.
func (c *FeedCache) Expire(key string) {
	if entry := c.entry(key); entry != nil {
		expired := *entry
		expired.TTL = 0
		c.entries.Store(key, &expired)
	}
}

// ExpireAll expires every key.
func (c *FeedCache) ExpireAll() {
	c.entries.Range(func(k, _ interface{}) bool {
		c.Expire(k.(string))
		return true
	})
}

func (c *FeedCache) entry(key string) *model.CacheEntry {
	v, ok := c.entries.Load(key)
	if !ok {
		return nil
	}
	return v.(*model.CacheEntry)
}

func (c *FeedCache) refresh(ctx context.Context, key string, ttl time.Duration, load LoadFunc) (*CacheResult, error) {
	prior := c.entry(key)
	// Another refresh may have finished between the fast-path check and here.
	if prior != nil && !prior.Stale(c.now()) {
		return &CacheResult{Items: prior.Items, FetchedAt: prior.FetchedAt}, nil
	}
	if prior == nil {
		if snap := c.loadSnapshot(ctx, key); snap != nil {
			snap.TTL = ttl
			if !snap.Stale(c.now()) {
				c.entries.Store(key, snap)
				return &CacheResult{Items: snap.Items, FetchedAt: snap.FetchedAt}, nil
			}
			prior = snap
		}
	}

	items, err := c.loadWithRetry(ctx, key, load)
	if err == nil {
		entry := &model.CacheEntry{Key: key, Items: items, FetchedAt: c.now(), TTL: ttl}
		c.entries.Store(key, entry)
		c.saveSnapshot(ctx, entry)
		return &CacheResult{Items: entry.Items, FetchedAt: entry.FetchedAt}, nil
	}

	if prior == nil {
		return nil, err
	}
	c.entries.LoadOrStore(key, prior)
	logger.GetLogger().WithFields(map[string]interface{}{
		"key":       key,
		"errorKind": model.FetchErrorKindOf(err),
		"error":     err.Error(),
		"ageSec":    int64(c.now().Sub(prior.FetchedAt).Seconds()),
	}).Warn("feed refresh failed, serving stale entry")
	return &CacheResult{Items: prior.Items, FetchedAt: prior.FetchedAt, Stale: true}, nil
}

// loadWithRetry retries rate-limited and unavailable failures once. A cancelled
// caller context is never retried.
func (c *FeedCache) loadWithRetry(ctx context.Context, key string, load LoadFunc) ([]model.DisplayItem, error) {
	items, err := load(ctx)
	if err == nil {
		return items, nil
	}
	delay, ok := c.retryDelay(ctx, err)
	if !ok {
		return nil, err
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"key":       key,
		"errorKind": model.FetchErrorKindOf(err),
		"delayMs":   delay.Milliseconds(),
	}).Info("retrying feed refresh")

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, err
	case <-timer.C:
	}
	return load(ctx)
}

func (c *FeedCache) retryDelay(ctx context.Context, err error) (time.Duration, bool) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return 0, false
	}
	var fe *model.FetchError
	if !errors.As(err, &fe) || !fe.Retryable() {
		return 0, false
	}
	delay := c.backoff
	if fe.RetryAfter > 0 {
		delay = fe.RetryAfter
	}
	if delay > c.maxBackoff {
		logger.GetLogger().WithField("retryAfterSec", int64(delay.Seconds())).Info("provider retry hint exceeds backoff budget, capping wait")
		delay = c.maxBackoff
	}
	return delay, true
}

func (c *FeedCache) loadSnapshot(ctx context.Context, key string) *model.CacheEntry {
	if c.snapshot == nil {
		return nil
	}
	entry, err := c.snapshot.LoadSnapshot(ctx, key)
	if err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{"key": key, "error": err}).Warn("failed loading feed snapshot")
		return nil
	}
	return entry
}

func (c *FeedCache) saveSnapshot(ctx context.Context, entry *model.CacheEntry) {
	if c.snapshot == nil {
		return
	}
	if err := c.snapshot.SaveSnapshot(ctx, entry); err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{"key": entry.Key, "error": err}).Warn("failed saving feed snapshot")
	}
}
