package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"instagram-feed/domain/model"
	"instagram-feed/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleItems(ids ...string) []model.DisplayItem {
	items := make([]model.DisplayItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, model.DisplayItem{ID: id, DisplayImageURL: id + ".jpg", Permalink: "https://instagram.com/p/" + id})
	}
	return items
}

// countingLoader returns results from steps in order, repeating the last one.
type countingLoader struct {
	calls atomic.Int32
	steps []func() ([]model.DisplayItem, error)
}

func (l *countingLoader) load(ctx context.Context) ([]model.DisplayItem, error) {
	n := int(l.calls.Add(1)) - 1
	if n >= len(l.steps) {
		n = len(l.steps) - 1
	}
	return l.steps[n]()
}

func ok(items []model.DisplayItem) func() ([]model.DisplayItem, error) {
	return func() ([]model.DisplayItem, error) { return items, nil }
}

func fail(err error) func() ([]model.DisplayItem, error) {
	return func() ([]model.DisplayItem, error) { return nil, err }
}

func TestFeedCache_ConcurrentColdCallsShareOneFetch(t *testing.T) {
	cache := usecase.NewFeedCache()
	release := make(chan struct{})
	var calls atomic.Int32
	load := func(ctx context.Context) ([]model.DisplayItem, error) {
		calls.Add(1)
		<-release
		return sampleItems("1", "2", "3"), nil
	}

	const callers = 20
	results := make([]*usecase.CacheResult, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.GetFeed(context.Background(), "feed:6", time.Hour, load)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].Items, results[i].Items)
		assert.Equal(t, results[0].FetchedAt, results[i].FetchedAt)
		assert.False(t, results[i].Stale)
	}
}

func TestFeedCache_FreshEntryServedWithoutLoad(t *testing.T) {
	now := fixedNow
	cache := usecase.NewFeedCache().WithClock(func() time.Time { return now })
	loader := &countingLoader{steps: []func() ([]model.DisplayItem, error){ok(sampleItems("a"))}}

	_, err := cache.GetFeed(context.Background(), "k", time.Hour, loader.load)
	require.NoError(t, err)
	now = now.Add(59 * time.Minute)
	res, err := cache.GetFeed(context.Background(), "k", time.Hour, loader.load)
	require.NoError(t, err)

	assert.Equal(t, int32(1), loader.calls.Load())
	assert.Equal(t, "a", res.Items[0].ID)

	now = now.Add(time.Minute)
	_, err = cache.GetFeed(context.Background(), "k", time.Hour, loader.load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), loader.calls.Load())
}

func TestFeedCache_ColdUnauthorizedSurfaces(t *testing.T) {
	cache := usecase.NewFeedCache().WithBackoff(time.Millisecond, time.Second)
	loader := &countingLoader{steps: []func() ([]model.DisplayItem, error){
		fail(&model.FetchError{Kind: model.FetchUnauthorized, StatusCode: 401}),
	}}

	res, err := cache.GetFeed(context.Background(), "k", time.Hour, loader.load)

	assert.Nil(t, res)
	assert.True(t, model.IsFetchError(err, model.FetchUnauthorized))
	assert.Equal(t, int32(1), loader.calls.Load(), "unauthorized is never retried")
}

func TestFeedCache_StaleEntryServedOnFailure(t *testing.T) {
	now := fixedNow
	cache := usecase.NewFeedCache().WithClock(func() time.Time { return now }).WithBackoff(time.Millisecond, time.Second)
	loader := &countingLoader{steps: []func() ([]model.DisplayItem, error){
		ok(sampleItems("old")),
		fail(&model.FetchError{Kind: model.FetchUnauthorized, StatusCode: 401}),
	}}

	_, err := cache.GetFeed(context.Background(), "k", time.Hour, loader.load)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	res, err := cache.GetFeed(context.Background(), "k", time.Hour, loader.load)

	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Equal(t, "old", res.Items[0].ID)
	assert.Equal(t, fixedNow, res.FetchedAt)
}

func TestFeedCache_RetriesTransientFailureOnce(t *testing.T) {
	cache := usecase.NewFeedCache().WithBackoff(time.Millisecond, time.Second)
	loader := &countingLoader{steps: []func() ([]model.DisplayItem, error){
		fail(&model.FetchError{Kind: model.FetchUnavailable, StatusCode: 502}),
		ok(sampleItems("x")),
	}}

	res, err := cache.GetFeed(context.Background(), "k", time.Hour, loader.load)

	require.NoError(t, err)
	assert.Equal(t, "x", res.Items[0].ID)
	assert.Equal(t, int32(2), loader.calls.Load())
}

func TestFeedCache_RetryGivesUpAfterSecondFailure(t *testing.T) {
	cache := usecase.NewFeedCache().WithBackoff(time.Millisecond, time.Second)
	loader := &countingLoader{steps: []func() ([]model.DisplayItem, error){
		fail(&model.FetchError{Kind: model.FetchRateLimited, StatusCode: 429, RetryAfter: 5 * time.Millisecond}),
	}}

	_, err := cache.GetFeed(context.Background(), "k", time.Hour, loader.load)

	assert.True(t, model.IsFetchError(err, model.FetchRateLimited))
	assert.Equal(t, int32(2), loader.calls.Load())
}

func TestFeedCache_LongRetryHintIsCapped(t *testing.T) {
	cache := usecase.NewFeedCache().WithBackoff(time.Millisecond, 10*time.Millisecond)
	loader := &countingLoader{steps: []func() ([]model.DisplayItem, error){
		fail(&model.FetchError{Kind: model.FetchRateLimited, StatusCode: 429, RetryAfter: 60 * time.Second}),
		ok(sampleItems("after-wait")),
	}}

	start := time.Now()
	res, err := cache.GetFeed(context.Background(), "k", time.Hour, loader.load)

	require.NoError(t, err)
	assert.Equal(t, "after-wait", res.Items[0].ID)
	assert.Equal(t, int32(2), loader.calls.Load())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFeedCache_NoRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"malformed", &model.FetchError{Kind: model.FetchMalformed}},
		{"cancelled load", &model.FetchError{Kind: model.FetchUnavailable, Err: context.Canceled}},
		{"untyped error", errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := usecase.NewFeedCache().WithBackoff(time.Millisecond, time.Second)
			loader := &countingLoader{steps: []func() ([]model.DisplayItem, error){fail(tt.err)}}

			_, err := cache.GetFeed(context.Background(), "k", time.Hour, loader.load)

			assert.Error(t, err)
			assert.Equal(t, int32(1), loader.calls.Load())
		})
	}
}

func TestFeedCache_CallerCancelledWhileRefreshing(t *testing.T) {
	cache := usecase.NewFeedCache()
	release := make(chan struct{})
	defer close(release)
	load := func(ctx context.Context) ([]model.DisplayItem, error) {
		<-release
		return sampleItems("late"), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res, err := cache.GetFeed(ctx, "k", time.Hour, load)

	assert.Nil(t, res)
	assert.True(t, model.IsFetchError(err, model.FetchUnavailable))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFeedCache_ExpireForcesRefreshButKeepsFallback(t *testing.T) {
	cache := usecase.NewFeedCache().WithClock(clock).WithBackoff(time.Millisecond, time.Second)
	loader := &countingLoader{steps: []func() ([]model.DisplayItem, error){
		ok(sampleItems("v1")),
		fail(&model.FetchError{Kind: model.FetchMalformed}),
		ok(sampleItems("v2")),
	}}
	ctx := context.Background()

	_, err := cache.GetFeed(ctx, "k", time.Hour, loader.load)
	require.NoError(t, err)

	cache.ExpireAll()
	res, err := cache.GetFeed(ctx, "k", time.Hour, loader.load)
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Equal(t, "v1", res.Items[0].ID)

	cache.Expire("k")
	res, err = cache.GetFeed(ctx, "k", time.Hour, loader.load)
	require.NoError(t, err)
	assert.False(t, res.Stale)
	assert.Equal(t, "v2", res.Items[0].ID)
	assert.Equal(t, int32(3), loader.calls.Load())
}

func TestFeedCache_FreshSnapshotSkipsLoad(t *testing.T) {
	snap := new(MockFeedSnapshot)
	snap.On("LoadSnapshot", mock.Anything, "k").Return(&model.CacheEntry{
		Key: "k", Items: sampleItems("snap"), FetchedAt: fixedNow.Add(-10 * time.Minute),
	}, nil)
	cache := usecase.NewFeedCache().WithClock(clock).WithSnapshot(snap)
	loader := &countingLoader{steps: []func() ([]model.DisplayItem, error){ok(sampleItems("net"))}}

	res, err := cache.GetFeed(context.Background(), "k", time.Hour, loader.load)

	require.NoError(t, err)
	assert.Equal(t, "snap", res.Items[0].ID)
	assert.Equal(t, int32(0), loader.calls.Load())
	snap.AssertNotCalled(t, "SaveSnapshot", mock.Anything, mock.Anything)
}

func TestFeedCache_StaleSnapshotIsFallback(t *testing.T) {
	snap := new(MockFeedSnapshot)
	snap.On("LoadSnapshot", mock.Anything, "k").Return(&model.CacheEntry{
		Key: "k", Items: sampleItems("snap"), FetchedAt: fixedNow.Add(-3 * time.Hour),
	}, nil)
	cache := usecase.NewFeedCache().WithClock(clock).WithSnapshot(snap).WithBackoff(time.Millisecond, time.Second)
	loader := &countingLoader{steps: []func() ([]model.DisplayItem, error){
		fail(&model.FetchError{Kind: model.FetchUnauthorized}),
	}}

	res, err := cache.GetFeed(context.Background(), "k", time.Hour, loader.load)

	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Equal(t, "snap", res.Items[0].ID)
}

func TestFeedCache_SuccessWritesSnapshot(t *testing.T) {
	snap := new(MockFeedSnapshot)
	snap.On("LoadSnapshot", mock.Anything, "k").Return(nil, fmt.Errorf("redis: connection refused"))
	snap.On("SaveSnapshot", mock.Anything, mock.MatchedBy(func(e *model.CacheEntry) bool {
		return e.Key == "k" && len(e.Items) == 1 && e.TTL == time.Hour && e.FetchedAt.Equal(fixedNow)
	})).Return(errors.New("ignored"))
	cache := usecase.NewFeedCache().WithClock(clock).WithSnapshot(snap)
	loader := &countingLoader{steps: []func() ([]model.DisplayItem, error){ok(sampleItems("n"))}}

	res, err := cache.GetFeed(context.Background(), "k", time.Hour, loader.load)

	require.NoError(t, err)
	assert.Equal(t, "n", res.Items[0].ID)
	snap.AssertExpectations(t)
}
