package twitter

import (
	"xbookmarks/pkg/models"
)

const mp4ContentType = "video/mp4"

// NormalizeEntry converts one raw tweet entry into an export record.
// Pure: derived deterministically from the entry, missing fields carried
// through as absent.
func NormalizeEntry(entry Entry) models.Record {
	record := models.Record{ID: entry.EntryID}

	legacy := tweetLegacy(entry)
	if legacy == nil {
		return record
	}

	record.FullText = legacy.FullText
	record.Timestamp = legacy.CreatedAt
	record.Media = mediaInfo(legacy)
	return record
}

// tweetLegacy digs out the legacy tweet payload, checking both nesting
// depths (result.tweet for limited-visibility result types, plain result
// otherwise).
func tweetLegacy(entry Entry) *TweetLegacy {
	if entry.Content.ItemContent == nil {
		return nil
	}
	result := entry.Content.ItemContent.TweetResults.Result
	if result == nil {
		return nil
	}
	if result.Tweet != nil {
		return result.Tweet.Legacy
	}
	return result.Legacy
}

// mediaInfo extracts the export media descriptor from the first legacy
// media attachment, if any.
func mediaInfo(legacy *TweetLegacy) *models.Media {
	if len(legacy.Entities.Media) == 0 {
		return nil
	}
	media := legacy.Entities.Media[0]

	source := media.MediaURLHTTPS
	if media.Type == string(models.MediaTypeVideo) || media.Type == string(models.MediaTypeAnimatedGIF) {
		// Playable media carries its variant list on the extended
		// entities; the plain entity URL is only a static preview.
		if variant := bestVideoVariant(extendedVideoVariants(legacy)); variant != nil {
			source = variant.URL
		}
	}

	return &models.Media{
		Type:   models.MediaType(media.Type),
		Source: source,
	}
}

func extendedVideoVariants(legacy *TweetLegacy) []VideoVariant {
	if len(legacy.ExtendedEntities.Media) == 0 {
		return nil
	}
	info := legacy.ExtendedEntities.Media[0].VideoInfo
	if info == nil {
		return nil
	}
	return info.Variants
}

// bestVideoVariant selects the highest-bitrate MP4 variant. The format
// filter is applied before the bitrate comparison; ties keep the
// first-seen variant (strictly-greater, left-to-right). Variants without
// a bitrate are never selected.
func bestVideoVariant(variants []VideoVariant) *VideoVariant {
	var best *VideoVariant
	for i := range variants {
		v := &variants[i]
		if v.ContentType != mp4ContentType || v.Bitrate == 0 {
			continue
		}
		if best == nil || v.Bitrate > best.Bitrate {
			best = v
		}
	}
	return best
}
