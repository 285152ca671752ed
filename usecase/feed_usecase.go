package usecase

import (
	"context"
	"fmt"
	"time"

	"instagram-feed/domain/dto"
	"instagram-feed/domain/model"
	"instagram-feed/domain/repository"
	"instagram-feed/infrastructure/logger"
)

const (
	defaultFeedLimit = 6
	maxFeedLimit     = 50
	defaultFeedTTL   = time.Hour

	// EventFeedUpdated is emitted after a refresh stores new items.
	EventFeedUpdated = "feed_updated"
)

type IFeedUsecase interface {
	GetFeed(ctx context.Context, limit int) dto.FeedResponse
	Refresh(ctx context.Context, limit int) dto.FeedResponse
}

type FeedOptions struct {
	Provider     string
	TTL          time.Duration
	DefaultLimit int
	MaxLimit     int
}

type FeedUsecase struct {
	store   repository.ICredentialStore
	fetcher repository.IFeedFetcher
	cache   *FeedCache
	opts    FeedOptions

	broadcasters []func(model.FeedEvent)
}

func NewFeedUsecase(store repository.ICredentialStore, fetcher repository.IFeedFetcher, cache *FeedCache, opts FeedOptions) *FeedUsecase {
	if opts.Provider == "" {
		opts.Provider = "Instagram"
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultFeedTTL
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = maxFeedLimit
	}
	if opts.DefaultLimit <= 0 || opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = defaultFeedLimit
	}
	if cache == nil {
		cache = NewFeedCache()
	}
	return &FeedUsecase{store: store, fetcher: fetcher, cache: cache, opts: opts}
}

// WithBroadcaster registers a listener for feed-updated events (fluent).
// Listeners run synchronously on the refresh path and must not block.
func (u *FeedUsecase) WithBroadcaster(fn func(model.FeedEvent)) *FeedUsecase {
	if fn != nil {
		u.broadcasters = append(u.broadcasters, fn)
	}
	return u
}

// GetFeed serves the feed for limit from the cache. It never panics or returns
// an error; failures become a neutral error code in the response.
func (u *FeedUsecase) GetFeed(ctx context.Context, limit int) (res dto.FeedResponse) {
	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().WithField("panic", fmt.Sprint(r)).Error("feed request panicked")
			res = failure(model.FetchUnavailable)
		}
	}()

	limit = u.clamp(limit)
	key := feedKey(limit)
	result, err := u.cache.GetFeed(ctx, key, u.opts.TTL, func(ctx context.Context) (items []model.DisplayItem, err error) {
		// load runs on the cache's refresh goroutine, out of reach of the recover above.
		defer func() {
			if r := recover(); r != nil {
				items, err = nil, model.NewFetchError(model.FetchUnavailable, fmt.Sprintf("feed refresh panicked: %v", r), nil)
			}
		}()
		return u.load(ctx, key, limit)
	})
	if err != nil {
		kind := model.FetchErrorKindOf(err)
		logger.GetLogger().WithFields(map[string]interface{}{
			"key":       key,
			"errorKind": kind,
			"error":     err.Error(),
		}).Error("feed unavailable")
		return failure(kind)
	}
	return dto.FeedResponse{
		Success: true,
		Items:   result.Items,
		Count:   len(result.Items),
		Stale:   result.Stale,
	}
}

// Refresh expires the cached entry for limit and loads it again.
func (u *FeedUsecase) Refresh(ctx context.Context, limit int) dto.FeedResponse {
	u.cache.Expire(feedKey(u.clamp(limit)))
	return u.GetFeed(ctx, limit)
}

// ExpireAll drops every cached feed, e.g. after the credential changes.
func (u *FeedUsecase) ExpireAll() {
	u.cache.ExpireAll()
}

func (u *FeedUsecase) load(ctx context.Context, key string, limit int) ([]model.DisplayItem, error) {
	cred, usable := u.store.Get(ctx)
	if !usable {
		msg := "no credential"
		if cred != nil {
			msg = "credential expired"
		}
		return nil, model.NewFetchError(model.FetchUnauthorized, msg, nil)
	}

	raw, err := u.fetcher.FetchRawFeed(ctx, cred, limit)
	if err != nil {
		if model.IsFetchError(err, model.FetchUnauthorized) {
			if _, invErr := u.store.InvalidateIfCurrent(ctx, cred); invErr != nil {
				logger.GetLogger().WithField("error", invErr).Warn("failed removing rejected credential")
			}
		}
		return nil, err
	}

	items := NormalizeFeed(raw, u.opts.Provider)
	if len(items) > limit {
		items = items[:limit]
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"key":     key,
		"fetched": len(raw),
		"kept":    len(items),
	}).Info("feed refreshed")

	evt := model.FeedEvent{Type: EventFeedUpdated, Key: key, Count: len(items), FetchedAt: time.Now().UTC()}
	for _, fn := range u.broadcasters {
		fn(evt)
	}
	return items, nil
}

func (u *FeedUsecase) clamp(limit int) int {
	if limit <= 0 {
		return u.opts.DefaultLimit
	}
	if limit > u.opts.MaxLimit {
		return u.opts.MaxLimit
	}
	return limit
}

func feedKey(limit int) string {
	return fmt.Sprintf("feed:%d", limit)
}

func failure(kind model.FetchErrorKind) dto.FeedResponse {
	return dto.FeedResponse{
		Success: false,
		Items:   []model.DisplayItem{},
		Error:   string(kind),
	}
}
