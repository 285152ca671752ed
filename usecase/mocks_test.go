package usecase_test

import (
	"context"
	"time"

	"instagram-feed/domain/model"

	"github.com/stretchr/testify/mock"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func timePtr(t time.Time) *time.Time { return &t }

func longLived(value string, expiresIn time.Duration) *model.Credential {
	return &model.Credential{
		Value:            value,
		Kind:             model.CredentialLongLived,
		IssuedAt:         fixedNow.Add(-time.Hour),
		ExpiresAt:        timePtr(fixedNow.Add(expiresIn)),
		SubjectAccountID: "1789",
	}
}

type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) Get(ctx context.Context) (*model.Credential, bool) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*model.Credential), args.Bool(1)
}

func (m *MockCredentialStore) Set(ctx context.Context, cred *model.Credential) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}

func (m *MockCredentialStore) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCredentialStore) InvalidateIfCurrent(ctx context.Context, cred *model.Credential) (bool, error) {
	args := m.Called(ctx, cred)
	return args.Bool(0), args.Error(1)
}

type MockFeedFetcher struct {
	mock.Mock
}

func (m *MockFeedFetcher) FetchRawFeed(ctx context.Context, cred *model.Credential, pageSize int) ([]model.MediaItem, error) {
	args := m.Called(ctx, cred, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.MediaItem), args.Error(1)
}

type MockTokenExchanger struct {
	mock.Mock
}

func (m *MockTokenExchanger) AuthorizeURL(state string) string {
	return m.Called(state).String(0)
}

func (m *MockTokenExchanger) ExchangeCode(ctx context.Context, code string) (*model.Credential, error) {
	args := m.Called(ctx, code)
	return credArg(args, 0), args.Error(1)
}

func (m *MockTokenExchanger) PromoteToLongLived(ctx context.Context, shortLived *model.Credential) (*model.Credential, error) {
	args := m.Called(ctx, shortLived)
	return credArg(args, 0), args.Error(1)
}

func (m *MockTokenExchanger) RenewLongLived(ctx context.Context, current *model.Credential) (*model.Credential, error) {
	args := m.Called(ctx, current)
	return credArg(args, 0), args.Error(1)
}

func (m *MockTokenExchanger) ResolveSubjectAccount(ctx context.Context, cred *model.Credential) (*model.Credential, error) {
	args := m.Called(ctx, cred)
	return credArg(args, 0), args.Error(1)
}

type MockCredentialRepository struct {
	mock.Mock
}

func (m *MockCredentialRepository) GetCredential(ctx context.Context, platform string) (*model.Credential, error) {
	args := m.Called(ctx, platform)
	return credArg(args, 0), args.Error(1)
}

func (m *MockCredentialRepository) UpsertCredential(ctx context.Context, platform string, cred *model.Credential) error {
	return m.Called(ctx, platform, cred).Error(0)
}

func (m *MockCredentialRepository) DeleteCredential(ctx context.Context, platform string) error {
	return m.Called(ctx, platform).Error(0)
}

type MockFeedSnapshot struct {
	mock.Mock
}

func (m *MockFeedSnapshot) LoadSnapshot(ctx context.Context, key string) (*model.CacheEntry, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CacheEntry), args.Error(1)
}

func (m *MockFeedSnapshot) SaveSnapshot(ctx context.Context, entry *model.CacheEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockFeedSnapshot) DeleteSnapshot(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func credArg(args mock.Arguments, i int) *model.Credential {
	if args.Get(i) == nil {
		return nil
	}
	return args.Get(i).(*model.Credential)
}
