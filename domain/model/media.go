package model

import "time"

type MediaType string

const (
	MediaTypeImage    MediaType = "IMAGE"
	MediaTypeVideo    MediaType = "VIDEO"
	MediaTypeCarousel MediaType = "CAROUSEL_ALBUM"
)

// MediaItem is a media record as returned by the provider.
type MediaItem struct {
	ID                string    `json:"id"`
	MediaType         MediaType `json:"media_type"`
	PrimaryAssetURL   string    `json:"media_url,omitempty"`
	ThumbnailAssetURL string    `json:"thumbnail_url,omitempty"`
	Permalink         string    `json:"permalink"`
	CapturedAt        time.Time `json:"timestamp"`
	Caption           string    `json:"caption,omitempty"`
}

// DisplayItem is the render-ready shape served to the presentation layer.
type DisplayItem struct {
	ID              string    `json:"id"`
	DisplayImageURL string    `json:"imageUrl"`
	AltText         string    `json:"alt"`
	Permalink       string    `json:"permalink"`
	MediaType       MediaType `json:"media_type"`
	CapturedAt      time.Time `json:"timestamp"`
	Caption         string    `json:"caption,omitempty"`
}

// AsMediaItem turns a display item back into a raw record carrying a single asset.
func (d DisplayItem) AsMediaItem() MediaItem {
	return MediaItem{
		ID:              d.ID,
		MediaType:       d.MediaType,
		PrimaryAssetURL: d.DisplayImageURL,
		Permalink:       d.Permalink,
		CapturedAt:      d.CapturedAt,
		Caption:         d.Caption,
	}
}

// CacheEntry holds one normalized feed for a cache key.
type CacheEntry struct {
	Key       string        `json:"key"`
	Items     []DisplayItem `json:"items"`
	FetchedAt time.Time     `json:"fetched_at"`
	TTL       time.Duration `json:"ttl"`
}

// Stale reports whether now - FetchedAt >= TTL.
func (e *CacheEntry) Stale(now time.Time) bool {
	if e == nil {
		return true
	}
	return now.Sub(e.FetchedAt) >= e.TTL
}

// FeedEvent is published whenever a feed refresh stores new items.
type FeedEvent struct {
	Type      string    `json:"type"`
	Key       string    `json:"key"`
	Count     int       `json:"count"`
	FetchedAt time.Time `json:"fetched_at"`
}
