package instagram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"instagram-feed/infrastructure/logger"

	"github.com/google/go-querystring/query"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultLongLivedTTL  = 60 * 24 * time.Hour
	defaultRenewalWindow = 7 * 24 * time.Hour
	maxResponseBytes     = 4 << 20
	requestIDHeader      = "X-Request-ID"
)

// Config configures a Client.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// AccountID pins the media account for page-linked tokens.
	AccountID string
	Strategy  Strategy
	// Scopes overrides the strategy default scopes when set.
	Scopes []string

	Timeout       time.Duration
	RenewalWindow time.Duration
	LongLivedTTL  time.Duration
	HTTPClient    *http.Client
	Now           func() time.Time
}

// Client talks to the Graph API. It implements both the token exchange and the
// media listing contracts.
type Client struct {
	cfg        Config
	httpClient *http.Client
	oauth      *oauth2.Config
	now        func() time.Time
}

// NewClient creates a Client, filling defaults for unset durations.
func NewClient(cfg Config) *Client {
	if cfg.Strategy.Name == "" {
		cfg.Strategy = InstagramStrategy()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RenewalWindow <= 0 {
		cfg.RenewalWindow = defaultRenewalWindow
	}
	if cfg.LongLivedTTL <= 0 {
		cfg.LongLivedTTL = defaultLongLivedTTL
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = cfg.Strategy.Scopes
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		now:        now,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.Strategy.AuthURL,
				TokenURL:  cfg.Strategy.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

// StrategyName reports the configured token family.
func (c *Client) StrategyName() string { return c.cfg.Strategy.Name }

type rawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// get issues a GET with params encoded by go-querystring. A non-nil error
// means the exchange never produced an HTTP response.
func (c *Client) get(ctx context.Context, endpoint string, params interface{}) (*rawResponse, error) {
	values, err := query.Values(params)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.New().String()
	req.Header.Set(requestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"requestId": requestID,
			"endpoint":  redactEndpoint(endpoint),
			"error":     err,
		}).Warn("graph request failed")
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"requestId": requestID,
		"endpoint":  redactEndpoint(endpoint),
		"status":    resp.StatusCode,
		"elapsedMs": c.now().Sub(start).Milliseconds(),
	}).Debug("graph request completed")

	return &rawResponse{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// redactEndpoint keeps the path only; query strings carry tokens.
func redactEndpoint(endpoint string) string {
	if i := strings.Index(endpoint, "?"); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}
