package model

import (
	"errors"
	"fmt"
	"time"
)

type AuthErrorKind string

const (
	AuthInvalidCode         AuthErrorKind = "invalid_code"
	AuthExchangeRejected    AuthErrorKind = "exchange_rejected"
	AuthNotYetRenewable     AuthErrorKind = "not_yet_renewable"
	AuthExpired             AuthErrorKind = "expired"
	AuthProviderUnavailable AuthErrorKind = "provider_unavailable"
)

// AuthError is returned by token exchange and renewal operations.
type AuthError struct {
	Kind       AuthErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *AuthError) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }

func NewAuthError(kind AuthErrorKind, message string, err error) *AuthError {
	return &AuthError{Kind: kind, Message: message, Err: err}
}

// IsAuthError reports whether err is an AuthError of the given kind.
func IsAuthError(err error, kind AuthErrorKind) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Kind == kind
}

type FetchErrorKind string

const (
	FetchUnauthorized FetchErrorKind = "unauthorized"
	FetchRateLimited  FetchErrorKind = "rate_limited"
	FetchUnavailable  FetchErrorKind = "unavailable"
	FetchMalformed    FetchErrorKind = "malformed"
)

// FetchError is returned by feed retrieval. RetryAfter is only set for
// rate limiting and may be zero when the provider gave no hint.
type FetchError struct {
	Kind       FetchErrorKind
	StatusCode int
	RetryAfter time.Duration
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	msg := string(e.Kind)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether the failure may succeed on a later attempt.
func (e *FetchError) Retryable() bool {
	return e.Kind == FetchRateLimited || e.Kind == FetchUnavailable
}

func NewFetchError(kind FetchErrorKind, message string, err error) *FetchError {
	return &FetchError{Kind: kind, Message: message, Err: err}
}

// IsFetchError reports whether err is a FetchError of the given kind.
func IsFetchError(err error, kind FetchErrorKind) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == kind
}

// FetchErrorKindOf returns the kind of a FetchError, or Unavailable for any other error.
func FetchErrorKindOf(err error) FetchErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return FetchUnavailable
}
