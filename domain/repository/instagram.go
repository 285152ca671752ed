package repository

import (
	"context"

	"instagram-feed/domain/model"
)

// ITokenExchanger drives the provider OAuth token lifecycle.
type ITokenExchanger interface {
	// AuthorizeURL returns the consent URL the operator must visit.
	AuthorizeURL(state string) string
	// ExchangeCode trades an authorization code for a short-lived credential.
	ExchangeCode(ctx context.Context, code string) (*model.Credential, error)
	// PromoteToLongLived trades a non-expired short-lived credential for a long-lived one.
	PromoteToLongLived(ctx context.Context, shortLived *model.Credential) (*model.Credential, error)
	// RenewLongLived extends a long-lived credential inside its renewal window.
	RenewLongLived(ctx context.Context, current *model.Credential) (*model.Credential, error)
	// ResolveSubjectAccount returns a copy of cred with the media account filled in.
	// A nil credential with an error means the account could not be determined at
	// all; a non-nil one with an error means cred is still usable as is.
	ResolveSubjectAccount(ctx context.Context, cred *model.Credential) (*model.Credential, error)
}

// IFeedFetcher lists media for the account behind a credential.
type IFeedFetcher interface {
	FetchRawFeed(ctx context.Context, cred *model.Credential, pageSize int) ([]model.MediaItem, error)
}
