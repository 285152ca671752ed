package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"instagram-feed/domain/model"
)

const altTextMaxRunes = 100

// NormalizeFeed maps raw provider records to display items. Records without
// any asset URL are dropped and the provider order is kept. The positional
// fallback counts only kept items, so normalizing the output again yields the
// same result.
func NormalizeFeed(raw []model.MediaItem, provider string) []model.DisplayItem {
	out := make([]model.DisplayItem, 0, len(raw))
	for _, item := range raw {
		imageURL := displayImageURL(item)
		if imageURL == "" {
			continue
		}
		out = append(out, model.DisplayItem{
			ID:              item.ID,
			DisplayImageURL: imageURL,
			AltText:         altText(item.Caption, provider, len(out)+1),
			Permalink:       item.Permalink,
			MediaType:       item.MediaType,
			CapturedAt:      item.CapturedAt,
			Caption:         item.Caption,
		})
	}
	return out
}

// displayImageURL picks a renderable still. Videos prefer the thumbnail since
// the primary asset is the video file itself; images and carousel covers use
// the primary asset. Any asset present is better than dropping the item.
func displayImageURL(item model.MediaItem) string {
	primary := strings.TrimSpace(item.PrimaryAssetURL)
	thumb := strings.TrimSpace(item.ThumbnailAssetURL)
	if item.MediaType == model.MediaTypeVideo && thumb != "" {
		return thumb
	}
	if primary != "" {
		return primary
	}
	return thumb
}

// altText reads "<provider> post: <caption, at most 100 runes>..." or
// "<provider> post <n>" when there is no caption.
func altText(caption, provider string, position int) string {
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return fmt.Sprintf("%s post %d", provider, position)
	}
	if utf8.RuneCountInString(caption) > altTextMaxRunes {
		caption = strings.TrimSpace(string([]rune(caption)[:altTextMaxRunes]))
	}
	return fmt.Sprintf("%s post: %s...", provider, caption)
}
