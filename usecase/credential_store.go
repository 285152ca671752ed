package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"instagram-feed/domain/model"
	"instagram-feed/domain/repository"
	"instagram-feed/infrastructure/logger"
)

// CredentialStore holds the active credential for one platform. Reads are
// lock-free; Set and Invalidate replace the pointer atomically so concurrent
// readers observe either the previous or the new credential.
//
// The first Get loads from the repository, falling back to the bootstrap
// credential (a pre-provisioned ACCESS_TOKEN).
type CredentialStore struct {
	platform  string
	repo      repository.ICredentialRepository // optional
	bootstrap *model.Credential

	current     atomic.Pointer[model.Credential]
	initialized atomic.Bool
	initMu      sync.Mutex
	now         func() time.Time
}

func NewCredentialStore(platform string, repo repository.ICredentialRepository, bootstrap *model.Credential) *CredentialStore {
	return &CredentialStore{
		platform:  platform,
		repo:      repo,
		bootstrap: bootstrap,
		now:       time.Now,
	}
}

// WithClock replaces the time source (fluent).
func (s *CredentialStore) WithClock(now func() time.Time) *CredentialStore {
	s.now = now
	return s
}

// BootstrapCredential wraps a pre-provisioned token. Its expiry is unknown, so
// it is treated as long-lived and renewable.
func BootstrapCredential(token, accountID string, issuedAt time.Time) *model.Credential {
	if token == "" {
		return nil
	}
	return &model.Credential{
		Value:            token,
		Kind:             model.CredentialLongLived,
		IssuedAt:         issuedAt,
		SubjectAccountID: accountID,
	}
}

// Get returns the current credential and whether it is usable right now.
// An expired credential is still returned so callers can report its state.
func (s *CredentialStore) Get(ctx context.Context) (*model.Credential, bool) {
	if !s.initialized.Load() {
		s.lazyInit(ctx)
	}
	cred := s.current.Load()
	return cred, cred.Usable(s.now())
}

func (s *CredentialStore) lazyInit(ctx context.Context) {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.initialized.Load() {
		return
	}

	if s.repo != nil {
		cred, err := s.repo.GetCredential(ctx, s.platform)
		if err != nil {
			// Stay uninitialized so the next Get reads the repository again.
			logger.GetLogger().WithField("error", err).Warn("failed loading stored credential")
			if s.current.Load() == nil && s.bootstrap != nil {
				s.current.Store(s.bootstrap)
			}
			return
		}
		if cred != nil {
			s.current.Store(cred)
			s.initialized.Store(true)
			logger.GetLogger().WithFields(map[string]interface{}{
				"platform": s.platform,
				"state":    cred.State(s.now()),
			}).Info("credential loaded from repository")
			return
		}
	}
	if s.bootstrap != nil {
		s.current.Store(s.bootstrap)
		logger.GetLogger().WithField("platform", s.platform).Info("using pre-provisioned access token")
	}
	s.initialized.Store(true)
}

// Set makes cred the active credential and persists it. The in-memory swap
// happens even when persistence fails; the error is returned for the caller to report.
// Writers hold initMu through the repository call so the stored row always
// matches the last in-memory write.
func (s *CredentialStore) Set(ctx context.Context, cred *model.Credential) error {
	if cred == nil || cred.Value == "" {
		return fmt.Errorf("refusing to store an empty credential")
	}
	stored := *cred
	s.initMu.Lock()
	defer s.initMu.Unlock()
	s.current.Store(&stored)
	s.initialized.Store(true)

	if s.repo == nil {
		return nil
	}
	if err := s.repo.UpsertCredential(ctx, s.platform, &stored); err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}
	return nil
}

// Invalidate discards the active credential. A new authorization is needed
// before feeds can be fetched again.
func (s *CredentialStore) Invalidate(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	s.current.Store(nil)
	s.initialized.Store(true)
	logger.GetLogger().WithField("platform", s.platform).Warn("credential invalidated")
	return s.deleteStored(ctx)
}

// InvalidateIfCurrent discards cred only when no renewal or new authorization
// has replaced it in the meantime.
func (s *CredentialStore) InvalidateIfCurrent(ctx context.Context, cred *model.Credential) (bool, error) {
	if cred == nil {
		return false, nil
	}
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if !s.current.CompareAndSwap(cred, nil) {
		return false, nil
	}
	logger.GetLogger().WithField("platform", s.platform).Warn("credential rejected by provider, invalidated")
	return true, s.deleteStored(ctx)
}

func (s *CredentialStore) deleteStored(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.DeleteCredential(ctx, s.platform); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}
