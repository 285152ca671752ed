package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"instagram-feed/domain/dto"
	"instagram-feed/domain/model"
)

const (
	// MediaFields is always sent; provider defaults omit most of these.
	MediaFields = "id,media_type,media_url,thumbnail_url,permalink,timestamp,caption"

	defaultPageSize = 25
	maxPageSize     = 100
	maxPages        = 10

	graphTimestampLayout = "2006-01-02T15:04:05-0700"
)

type mediaQuery struct {
	Fields      string `url:"fields"`
	Limit       int    `url:"limit"`
	After       string `url:"after,omitempty"`
	AccessToken string `url:"access_token"`
}

// FetchRawFeed lists up to pageSize media items, newest first. When pageSize
// exceeds what one page returns, the after cursor is followed.
func (c *Client) FetchRawFeed(ctx context.Context, cred *model.Credential, pageSize int) ([]model.MediaItem, error) {
	if !cred.Usable(c.now()) {
		return nil, model.NewFetchError(model.FetchUnauthorized, "missing or expired credential", nil)
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	accountID := cred.SubjectAccountID
	if accountID == "" {
		accountID = c.cfg.AccountID
	}
	endpoint := c.cfg.Strategy.MediaURL(accountID)

	items := make([]model.MediaItem, 0, pageSize)
	after := ""
	for page := 0; page < maxPages && len(items) < pageSize; page++ {
		limit := pageSize - len(items)
		if limit > maxPageSize {
			limit = maxPageSize
		}
		body, err := c.fetchPage(ctx, endpoint, mediaQuery{
			Fields:      MediaFields,
			Limit:       limit,
			After:       after,
			AccessToken: cred.Value,
		})
		if err != nil {
			return nil, err
		}
		for _, m := range body.Data {
			item, err := toMediaItem(m)
			if err != nil {
				return nil, model.NewFetchError(model.FetchMalformed, "media "+m.ID, err)
			}
			items = append(items, item)
		}
		if len(body.Data) == 0 || body.Paging == nil || body.Paging.Next == "" || body.Paging.Cursors.After == "" {
			break
		}
		after = body.Paging.Cursors.After
	}
	if len(items) > pageSize {
		items = items[:pageSize]
	}
	return items, nil
}

func (c *Client) fetchPage(ctx context.Context, endpoint string, q mediaQuery) (*dto.GraphMediaResponse, error) {
	resp, err := c.get(ctx, endpoint, q)
	if err != nil {
		return nil, &model.FetchError{Kind: model.FetchUnavailable, Message: transportMessage(err), Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyFetch(resp, c.now())
	}
	var body dto.GraphMediaResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, &model.FetchError{Kind: model.FetchMalformed, StatusCode: resp.StatusCode, Message: "undecodable body", Err: err}
	}
	if body.Data == nil {
		if parseGraphError(resp.Body) != nil {
			return nil, classifyFetch(resp, c.now())
		}
		return nil, &model.FetchError{Kind: model.FetchMalformed, StatusCode: resp.StatusCode, Message: "response without data"}
	}
	return &body, nil
}

func transportMessage(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	default:
		return "request failed"
	}
}

func toMediaItem(m dto.GraphMedia) (model.MediaItem, error) {
	item := model.MediaItem{
		ID:                m.ID,
		MediaType:         model.MediaType(strings.ToUpper(m.MediaType)),
		PrimaryAssetURL:   m.MediaURL,
		ThumbnailAssetURL: m.ThumbnailURL,
		Permalink:         m.Permalink,
		Caption:           m.Caption,
	}
	if m.ID == "" {
		return item, fmt.Errorf("missing id")
	}
	if m.Timestamp != "" {
		t, err := parseTimestamp(m.Timestamp)
		if err != nil {
			return item, err
		}
		item.CapturedAt = t
	}
	return item, nil
}

func parseTimestamp(value string) (time.Time, error) {
	if t, err := time.Parse(graphTimestampLayout, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", value, err)
	}
	return t.UTC(), nil
}
