package model

import "time"

type CredentialKind string

const (
	CredentialShortLived CredentialKind = "short_lived"
	CredentialLongLived  CredentialKind = "long_lived"
)

// Credential is a provider access token together with its lifecycle metadata.
// Renewal produces a new Credential; an existing one is never mutated.
type Credential struct {
	Value            string         `json:"access_token"`
	Kind             CredentialKind `json:"kind"`
	IssuedAt         time.Time      `json:"issued_at"`
	ExpiresAt        *time.Time     `json:"expires_at,omitempty"` // nil when the provider did not report a lifetime
	SubjectAccountID string         `json:"subject_account_id,omitempty"`
}

// Expired reports whether the credential is past its expiry at now.
func (c *Credential) Expired(now time.Time) bool {
	if c == nil {
		return true
	}
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// Usable reports whether the credential can be used for a fetch at now.
func (c *Credential) Usable(now time.Time) bool {
	return c != nil && c.Value != "" && !c.Expired(now)
}

// InRenewalWindow reports whether a long-lived credential is inside the trailing
// window before expiry. A credential without a known expiry is always renewable.
func (c *Credential) InRenewalWindow(now time.Time, window time.Duration) bool {
	if c == nil || c.Kind != CredentialLongLived || c.Expired(now) {
		return false
	}
	if c.ExpiresAt == nil {
		return true
	}
	return !now.Before(c.ExpiresAt.Add(-window))
}

// CredentialState is the lifecycle state reported to operators.
type CredentialState string

const (
	StateUnauthenticated  CredentialState = "unauthenticated"
	StateShortLivedActive CredentialState = "short_lived_active"
	StateLongLivedActive  CredentialState = "long_lived_active"
	StateExpired          CredentialState = "expired"
)

func (c *Credential) State(now time.Time) CredentialState {
	switch {
	case c == nil || c.Value == "":
		return StateUnauthenticated
	case c.Expired(now):
		return StateExpired
	case c.Kind == CredentialShortLived:
		return StateShortLivedActive
	default:
		return StateLongLivedActive
	}
}
