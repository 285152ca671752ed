package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"instagram-feed/domain/dto"
	"instagram-feed/domain/model"
	"instagram-feed/infrastructure/logger"

	"golang.org/x/oauth2"
)

// tokenQuery covers the three GET grants: ig_exchange_token, ig_refresh_token
// and fb_exchange_token.
type tokenQuery struct {
	GrantType       string `url:"grant_type"`
	ClientID        string `url:"client_id,omitempty"`
	ClientSecret    string `url:"client_secret,omitempty"`
	AccessToken     string `url:"access_token,omitempty"`
	FBExchangeToken string `url:"fb_exchange_token,omitempty"`
}

type fieldsQuery struct {
	Fields      string `url:"fields"`
	AccessToken string `url:"access_token"`
}

// AuthorizeURL builds the consent URL. Scopes are comma separated as the
// provider expects.
func (c *Client) AuthorizeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("scope", strings.Join(c.cfg.Scopes, ",")))
}

// ExchangeCode posts the authorization code and returns a short-lived credential.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*model.Credential, error) {
	if strings.TrimSpace(code) == "" {
		return nil, model.NewAuthError(model.AuthInvalidCode, "empty authorization code", nil)
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			status := 0
			if re.Response != nil {
				status = re.Response.StatusCode
			}
			return nil, classifyAuth(status, re.Body, model.AuthInvalidCode, err)
		}
		return nil, model.NewAuthError(model.AuthProviderUnavailable, "code exchange failed", err)
	}

	now := c.now().UTC()
	cred := &model.Credential{
		Value:            tok.AccessToken,
		Kind:             model.CredentialShortLived,
		IssuedAt:         now,
		SubjectAccountID: extraString(tok, "user_id"),
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		cred.ExpiresAt = &exp
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"strategy": c.cfg.Strategy.Name,
		"account":  cred.SubjectAccountID,
	}).Info("authorization code exchanged")
	return cred, nil
}

// PromoteToLongLived exchanges a non-expired short-lived credential.
func (c *Client) PromoteToLongLived(ctx context.Context, shortLived *model.Credential) (*model.Credential, error) {
	now := c.now().UTC()
	if shortLived == nil || shortLived.Value == "" || shortLived.Kind != model.CredentialShortLived {
		return nil, model.NewAuthError(model.AuthExchangeRejected, "credential is not short-lived", nil)
	}
	if shortLived.Expired(now) {
		return nil, model.NewAuthError(model.AuthExchangeRejected, "short-lived credential expired", nil)
	}

	cred, err := c.tokenGrant(ctx, c.cfg.Strategy.ExchangeURL, c.grantQuery(c.cfg.Strategy.ExchangeGrant, shortLived.Value))
	if err != nil {
		return nil, err
	}
	cred.SubjectAccountID = shortLived.SubjectAccountID
	return cred, nil
}

// RenewLongLived extends a long-lived credential. Expired credentials never
// reach the provider; they require a fresh authorization.
func (c *Client) RenewLongLived(ctx context.Context, current *model.Credential) (*model.Credential, error) {
	now := c.now().UTC()
	if current == nil || current.Value == "" {
		return nil, model.NewAuthError(model.AuthExchangeRejected, "no credential to renew", nil)
	}
	if current.Expired(now) {
		return nil, model.NewAuthError(model.AuthExpired, "credential expired, re-authorization required", nil)
	}
	if current.Kind != model.CredentialLongLived {
		return nil, model.NewAuthError(model.AuthExchangeRejected, "only long-lived credentials can be renewed", nil)
	}
	if !current.InRenewalWindow(now, c.cfg.RenewalWindow) {
		return nil, model.NewAuthError(model.AuthNotYetRenewable, "outside renewal window", nil)
	}

	cred, err := c.tokenGrant(ctx, c.cfg.Strategy.RefreshURL, c.grantQuery(c.cfg.Strategy.RefreshGrant, current.Value))
	if err != nil {
		return nil, err
	}
	cred.SubjectAccountID = current.SubjectAccountID
	logger.GetLogger().WithFields(map[string]interface{}{
		"strategy":  c.cfg.Strategy.Name,
		"expiresAt": cred.ExpiresAt,
	}).Info("long-lived credential renewed")
	return cred, nil
}

// ResolveSubjectAccount fills SubjectAccountID. The personal family asks /me for
// the exact id; the page-linked family walks the managed pages for a linked
// business account unless one is pinned in config.
func (c *Client) ResolveSubjectAccount(ctx context.Context, cred *model.Credential) (*model.Credential, error) {
	if cred == nil || cred.Value == "" {
		return nil, model.NewAuthError(model.AuthExchangeRejected, "no credential", nil)
	}
	resolved := *cred
	if c.cfg.Strategy.PageLinked {
		if c.cfg.AccountID != "" {
			resolved.SubjectAccountID = c.cfg.AccountID
			return &resolved, nil
		}
		id, err := c.businessAccountID(ctx, cred.Value)
		if err != nil {
			return nil, err
		}
		resolved.SubjectAccountID = id
		return &resolved, nil
	}

	resp, err := c.get(ctx, strings.TrimRight(c.cfg.Strategy.GraphBaseURL, "/")+"/me", fieldsQuery{Fields: "id,username", AccessToken: cred.Value})
	if err != nil {
		return cred, model.NewAuthError(model.AuthProviderUnavailable, "profile lookup failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		return cred, classifyAuth(resp.StatusCode, resp.Body, model.AuthExchangeRejected, nil)
	}
	var me struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(resp.Body, &me); err != nil || me.ID == "" {
		return cred, model.NewAuthError(model.AuthProviderUnavailable, "unreadable profile response", err)
	}
	resolved.SubjectAccountID = me.ID
	return &resolved, nil
}

func (c *Client) businessAccountID(ctx context.Context, token string) (string, error) {
	resp, err := c.get(ctx, c.cfg.Strategy.AccountsURL(), fieldsQuery{Fields: "id,name,instagram_business_account", AccessToken: token})
	if err != nil {
		return "", model.NewAuthError(model.AuthProviderUnavailable, "pages lookup failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyAuth(resp.StatusCode, resp.Body, model.AuthExchangeRejected, nil)
	}
	var pages dto.GraphPagesResponse
	if err := json.Unmarshal(resp.Body, &pages); err != nil {
		return "", model.NewAuthError(model.AuthProviderUnavailable, "unreadable pages response", err)
	}
	for _, p := range pages.Data {
		if p.InstagramBusinessAccount != nil && p.InstagramBusinessAccount.ID != "" {
			logger.GetLogger().WithFields(map[string]interface{}{"page": p.Name, "account": p.InstagramBusinessAccount.ID}).Info("resolved business account")
			return p.InstagramBusinessAccount.ID, nil
		}
	}
	return "", model.NewAuthError(model.AuthExchangeRejected, "no page with a linked instagram business account", nil)
}

func (c *Client) grantQuery(grant, token string) tokenQuery {
	q := tokenQuery{GrantType: grant}
	switch grant {
	case "fb_exchange_token":
		q.ClientID = c.cfg.ClientID
		q.ClientSecret = c.cfg.ClientSecret
		q.FBExchangeToken = token
	case "ig_exchange_token":
		q.ClientSecret = c.cfg.ClientSecret
		q.AccessToken = token
	default:
		q.AccessToken = token
	}
	return q
}

// tokenGrant performs a GET grant and returns a long-lived credential.
func (c *Client) tokenGrant(ctx context.Context, endpoint string, q tokenQuery) (*model.Credential, error) {
	resp, err := c.get(ctx, endpoint, q)
	if err != nil {
		return nil, model.NewAuthError(model.AuthProviderUnavailable, q.GrantType+" request failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyAuth(resp.StatusCode, resp.Body, model.AuthExchangeRejected, nil)
	}
	var tok dto.GraphTokenResponse
	if err := json.Unmarshal(resp.Body, &tok); err != nil {
		return nil, model.NewAuthError(model.AuthProviderUnavailable, "unreadable token response", err)
	}
	if tok.AccessToken == "" {
		return nil, model.NewAuthError(model.AuthExchangeRejected, "token response without access_token", nil)
	}
	now := c.now().UTC()
	lifetime := c.cfg.LongLivedTTL
	if tok.ExpiresIn > 0 {
		lifetime = time.Duration(tok.ExpiresIn) * time.Second
	}
	exp := now.Add(lifetime)
	return &model.Credential{
		Value:     tok.AccessToken,
		Kind:      model.CredentialLongLived,
		IssuedAt:  now,
		ExpiresAt: &exp,
	}, nil
}

// extraString reads a token response field that may arrive as a JSON number.
func extraString(tok *oauth2.Token, key string) string {
	switch v := tok.Extra(key).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
