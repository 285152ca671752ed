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

type IAuthUsecase interface {
	AuthorizeURL(state string) string
	CompleteAuthorization(ctx context.Context, code string) (*model.Credential, error)
	Renew(ctx context.Context) (*model.Credential, error)
	RenewIfDue(ctx context.Context) error
	Invalidate(ctx context.Context) error
	Status(ctx context.Context) dto.CredentialStatus
}

type AuthOptions struct {
	Strategy      string
	RenewalWindow time.Duration
}

type AuthUsecase struct {
	exchanger repository.ITokenExchanger
	store     repository.ICredentialStore
	opts      AuthOptions
	listeners []func()
	now       func() time.Time
}

func NewAuthUsecase(exchanger repository.ITokenExchanger, store repository.ICredentialStore, opts AuthOptions) *AuthUsecase {
	if opts.RenewalWindow <= 0 {
		opts.RenewalWindow = 7 * 24 * time.Hour
	}
	return &AuthUsecase{exchanger: exchanger, store: store, opts: opts, now: time.Now}
}

// WithCredentialListener registers fn to run whenever the active credential
// is replaced or removed (fluent).
func (u *AuthUsecase) WithCredentialListener(fn func()) *AuthUsecase {
	if fn != nil {
		u.listeners = append(u.listeners, fn)
	}
	return u
}

// WithClock replaces the time source (fluent).
func (u *AuthUsecase) WithClock(now func() time.Time) *AuthUsecase {
	u.now = now
	return u
}

func (u *AuthUsecase) AuthorizeURL(state string) string {
	return u.exchanger.AuthorizeURL(state)
}

// CompleteAuthorization runs the callback half of the flow: code exchange,
// promotion to a long-lived credential and account resolution.
func (u *AuthUsecase) CompleteAuthorization(ctx context.Context, code string) (*model.Credential, error) {
	short, err := u.exchanger.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	long, err := u.exchanger.PromoteToLongLived(ctx, short)
	if err != nil {
		return nil, err
	}
	resolved, err := u.exchanger.ResolveSubjectAccount(ctx, long)
	if resolved == nil {
		return nil, err
	}
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("could not confirm account id, keeping credential as is")
	}

	if err := u.store.Set(ctx, resolved); err != nil {
		logger.GetLogger().WithField("error", err).Error("credential active in memory only")
	}
	u.notify()
	logger.GetLogger().WithFields(map[string]interface{}{
		"account":   resolved.SubjectAccountID,
		"expiresAt": resolved.ExpiresAt,
	}).Info("instagram account connected")
	return resolved, nil
}

// Renew asks the provider to extend the active credential.
func (u *AuthUsecase) Renew(ctx context.Context) (*model.Credential, error) {
	cred, _ := u.store.Get(ctx)
	if cred == nil {
		return nil, model.NewAuthError(model.AuthExchangeRejected, "no credential to renew", nil)
	}
	renewed, err := u.exchanger.RenewLongLived(ctx, cred)
	if err != nil {
		return nil, err
	}
	if err := u.store.Set(ctx, renewed); err != nil {
		logger.GetLogger().WithField("error", err).Error("renewed credential active in memory only")
	}
	u.notify()
	return renewed, nil
}

// RenewIfDue renews only when the credential is inside its renewal window.
// It is what the background ticker calls.
func (u *AuthUsecase) RenewIfDue(ctx context.Context) error {
	cred, _ := u.store.Get(ctx)
	now := u.now()
	if cred == nil {
		logger.GetLogger().Debug("no credential, skipping renewal check")
		return nil
	}
	if cred.Expired(now) {
		return model.NewAuthError(model.AuthExpired, "credential expired, re-authorization required", nil)
	}
	if !cred.InRenewalWindow(now, u.opts.RenewalWindow) {
		return nil
	}
	if _, err := u.Renew(ctx); err != nil {
		return fmt.Errorf("failed to renew credential: %w", err)
	}
	return nil
}

func (u *AuthUsecase) Invalidate(ctx context.Context) error {
	err := u.store.Invalidate(ctx)
	u.notify()
	return err
}

// Status reports the credential lifecycle state without the token value.
func (u *AuthUsecase) Status(ctx context.Context) dto.CredentialStatus {
	cred, usable := u.store.Get(ctx)
	now := u.now()
	status := dto.CredentialStatus{
		Connected: usable,
		State:     cred.State(now),
		Strategy:  u.opts.Strategy,
	}
	if cred == nil {
		return status
	}
	issued := cred.IssuedAt
	status.Kind = cred.Kind
	status.SubjectAccountID = cred.SubjectAccountID
	status.IssuedAt = &issued
	status.ExpiresAt = cred.ExpiresAt
	if cred.ExpiresAt != nil && cred.Kind == model.CredentialLongLived {
		from := cred.ExpiresAt.Add(-u.opts.RenewalWindow)
		status.RenewableFrom = &from
	}
	return status
}

func (u *AuthUsecase) notify() {
	for _, fn := range u.listeners {
		fn()
	}
}
