package dto

import (
	"time"

	"instagram-feed/domain/model"
)

// FeedResponse is the presentation boundary shape for a feed request.
// Stale is internal only and never serialized.
type FeedResponse struct {
	Success bool                `json:"success"`
	Items   []model.DisplayItem `json:"items"`
	Count   int                 `json:"count"`
	Error   string              `json:"error,omitempty"`
	Stale   bool                `json:"-"`
}

// CredentialStatus describes the stored credential without exposing its value.
type CredentialStatus struct {
	Connected        bool                  `json:"connected"`
	State            model.CredentialState `json:"state"`
	Kind             model.CredentialKind  `json:"kind,omitempty"`
	SubjectAccountID string                `json:"account_id,omitempty"`
	IssuedAt         *time.Time            `json:"issued_at,omitempty"`
	ExpiresAt        *time.Time            `json:"expires_at,omitempty"`
	RenewableFrom    *time.Time            `json:"renewable_from,omitempty"`
	Strategy         string                `json:"strategy"`
}

type Res struct {
	ResponseCode    string      `json:"responseCode"`
	ResponseMessage string      `json:"responseMessage"`
	Data            interface{} `json:"data,omitempty"`
}
