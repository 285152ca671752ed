package instagram

import (
	"fmt"
	"strings"
)

// Strategy captures the endpoints and grants of one provider token family.
// Both families share the same short-lived -> long-lived -> renew lifecycle.
type Strategy struct {
	Name string

	AuthURL  string // consent dialog
	TokenURL string // authorization_code exchange

	ExchangeURL   string // short-lived -> long-lived
	ExchangeGrant string
	RefreshURL    string // long-lived renewal
	RefreshGrant  string

	GraphBaseURL string
	Scopes       []string

	// PageLinked marks the business token family where the media account must be
	// resolved through the pages the user manages.
	PageLinked bool
}

// InstagramStrategy is the personal long-lived token family.
func InstagramStrategy() Strategy {
	return Strategy{
		Name:          "instagram",
		AuthURL:       "https://api.instagram.com/oauth/authorize",
		TokenURL:      "https://api.instagram.com/oauth/access_token",
		ExchangeURL:   "https://graph.instagram.com/access_token",
		ExchangeGrant: "ig_exchange_token",
		RefreshURL:    "https://graph.instagram.com/refresh_access_token",
		RefreshGrant:  "ig_refresh_token",
		GraphBaseURL:  "https://graph.instagram.com",
		Scopes:        []string{"user_profile", "user_media"},
	}
}

// FacebookStrategy is the page-linked business token family.
func FacebookStrategy(version string) Strategy {
	if version == "" {
		version = "v19.0"
	}
	graph := "https://graph.facebook.com/" + version
	return Strategy{
		Name:          "facebook",
		AuthURL:       fmt.Sprintf("https://www.facebook.com/%s/dialog/oauth", version),
		TokenURL:      graph + "/oauth/access_token",
		ExchangeURL:   graph + "/oauth/access_token",
		ExchangeGrant: "fb_exchange_token",
		RefreshURL:    graph + "/oauth/access_token",
		RefreshGrant:  "fb_exchange_token",
		GraphBaseURL:  graph,
		Scopes:        []string{"instagram_basic", "pages_show_list", "pages_read_engagement"},
		PageLinked:    true,
	}
}

// StrategyFor maps a configured strategy name to its endpoints.
func StrategyFor(name, graphVersion string) (Strategy, error) {
	switch strings.ToLower(name) {
	case "", "instagram":
		return InstagramStrategy(), nil
	case "facebook":
		return FacebookStrategy(graphVersion), nil
	default:
		return Strategy{}, fmt.Errorf("unknown token strategy %q", name)
	}
}

// MediaURL is the listing endpoint for the given account. The personal family
// always reads the token owner's media.
func (s Strategy) MediaURL(accountID string) string {
	base := strings.TrimRight(s.GraphBaseURL, "/")
	if !s.PageLinked || accountID == "" {
		return base + "/me/media"
	}
	return base + "/" + accountID + "/media"
}

// AccountsURL lists the pages managed by the token owner.
func (s Strategy) AccountsURL() string {
	return strings.TrimRight(s.GraphBaseURL, "/") + "/me/accounts"
}
