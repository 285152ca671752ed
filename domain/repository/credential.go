package repository

import (
	"context"

	"instagram-feed/domain/model"
)

// ICredentialStore holds the process-wide active credential.
type ICredentialStore interface {
	Get(ctx context.Context) (*model.Credential, bool)
	Set(ctx context.Context, cred *model.Credential) error
	Invalidate(ctx context.Context) error
	// InvalidateIfCurrent discards cred only if it is still the active credential.
	InvalidateIfCurrent(ctx context.Context, cred *model.Credential) (bool, error)
}

// ICredentialRepository persists at most one credential per platform.
// GetCredential returns (nil, nil) when nothing is stored.
type ICredentialRepository interface {
	GetCredential(ctx context.Context, platform string) (*model.Credential, error)
	UpsertCredential(ctx context.Context, platform string, cred *model.Credential) error
	DeleteCredential(ctx context.Context, platform string) error
}

// IFeedSnapshot keeps the last known-good feed outside the process.
// LoadSnapshot returns (nil, nil) on a miss.
type IFeedSnapshot interface {
	LoadSnapshot(ctx context.Context, key string) (*model.CacheEntry, error)
	SaveSnapshot(ctx context.Context, entry *model.CacheEntry) error
	DeleteSnapshot(ctx context.Context, key string) error
}

// IFeedEventPublisher fans feed-updated events out to external subscribers.
type IFeedEventPublisher interface {
	PublishFeedEvent(ctx context.Context, evt model.FeedEvent) (string, error)
}
