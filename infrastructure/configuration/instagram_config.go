package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StrategyInstagram = "instagram"
	StrategyFacebook  = "facebook"
)

// InstagramConfig is the effective provider configuration after env overrides and defaults.
type InstagramConfig struct {
	Strategy             string
	ClientID             string
	ClientSecret         string
	RedirectURL          string
	AccessToken          string
	AccountID            string
	GraphVersion         string
	Provider             string
	Scopes               []string
	FeedTTL              time.Duration
	DefaultLimit         int
	MaxLimit             int
	RequestTimeout       time.Duration
	RenewalWindow        time.Duration
	RenewalCheckInterval time.Duration
	AutoRenew            bool
}

// Configured reports whether the OAuth client credentials are present.
func (c *InstagramConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURL != ""
}

// GetInstagramConfig resolves the Instagram configuration. Environment wins over
// the JSON config; the bare CLIENT_ID style names are checked before the
// INSTAGRAM_ prefixed ones.
func GetInstagramConfig() *InstagramConfig {
	ig := C.Instagram
	scheme := "http"
	if C.App.TLSEnabled {
		scheme = "https"
	}
	port := C.App.Port
	if port == 0 {
		port = 10001
	}
	defaultRedirect := fmt.Sprintf("%s://localhost:%d/auth/instagram/callback", scheme, port)

	cfg := &InstagramConfig{
		Strategy:     strings.ToLower(getConfigValue(ig.Strategy, StrategyInstagram, "INSTAGRAM_STRATEGY")),
		ClientID:     getConfigValue(ig.ClientID, "", "CLIENT_ID", "INSTAGRAM_CLIENT_ID"),
		ClientSecret: getConfigValue(ig.ClientSecret, "", "CLIENT_SECRET", "INSTAGRAM_CLIENT_SECRET"),
		RedirectURL:  getConfigValue(ig.RedirectURI, defaultRedirect, "REDIRECT_URI", "INSTAGRAM_REDIRECT_URI"),
		AccessToken:  getConfigValue(ig.AccessToken, "", "ACCESS_TOKEN", "INSTAGRAM_ACCESS_TOKEN"),
		AccountID:    getConfigValue(ig.AccountID, "", "INSTAGRAM_ACCOUNT_ID"),
		GraphVersion: getConfigValue(ig.GraphVersion, "v19.0", "INSTAGRAM_GRAPH_VERSION"),
		Provider:     getConfigValue(ig.Provider, "Instagram", "INSTAGRAM_PROVIDER_NAME"),
		Scopes:       ig.Scopes,

		FeedTTL:              getDuration(ig.FeedTTLSeconds, time.Second, time.Hour, "INSTAGRAM_FEED_TTL"),
		RequestTimeout:       getDuration(ig.RequestTimeoutSeconds, time.Second, 10*time.Second, "INSTAGRAM_REQUEST_TIMEOUT"),
		RenewalWindow:        getDuration(ig.RenewalWindowHours, time.Hour, 7*24*time.Hour, "INSTAGRAM_RENEWAL_WINDOW"),
		RenewalCheckInterval: getDuration(ig.RenewalCheckMinutes, time.Minute, 12*time.Hour, "INSTAGRAM_RENEWAL_CHECK_INTERVAL"),

		DefaultLimit: getInt(ig.DefaultLimit, 6, "INSTAGRAM_DEFAULT_LIMIT"),
		MaxLimit:     getInt(ig.MaxLimit, 50, "INSTAGRAM_MAX_LIMIT"),
		AutoRenew:    true,
	}
	if ig.AutoRenew != nil {
		cfg.AutoRenew = *ig.AutoRenew
	}
	if v := os.Getenv("INSTAGRAM_AUTO_RENEW"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AutoRenew = b
		}
	}
	if cfg.Strategy != StrategyInstagram && cfg.Strategy != StrategyFacebook {
		cfg.Strategy = StrategyInstagram
	}
	if cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = cfg.MaxLimit
	}
	return cfg
}

// getConfigValue returns the first set environment variable, then the config
// value unless it is a placeholder, then the default.
func getConfigValue(configValue, defaultValue string, envKeys ...string) string {
	for _, key := range envKeys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	if configValue != "" && !strings.HasPrefix(configValue, "YOUR_") {
		return configValue
	}
	return defaultValue
}

// getDuration reads a Go duration string (e.g. "90m") from env, else the
// config amount in unit, else the default.
func getDuration(configAmount int, unit time.Duration, defaultValue time.Duration, envKey string) time.Duration {
	if v := os.Getenv(envKey); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	if configAmount > 0 {
		return time.Duration(configAmount) * unit
	}
	return defaultValue
}

func getInt(configValue, defaultValue int, envKey string) int {
	if v := os.Getenv(envKey); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	if configValue > 0 {
		return configValue
	}
	return defaultValue
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
