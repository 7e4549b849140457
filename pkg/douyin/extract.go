package douyin

import (
	"strings"

	"dyscraper/pkg/errors"
)

// watermarkMarker is the CDN path component selecting the watermarked
// variant; rewriting it to "play" requests the clean one.
const watermarkMarker = "playwm"

// TierPolicy is an ordered list of url_list index preferences. The first
// in-bounds index wins. The upstream CDN puts the least-processed variant
// at index 2 when it is present.
type TierPolicy []int

// DefaultTierPolicy prefers index 2 and falls back to the first entry.
var DefaultTierPolicy = TierPolicy{2, 0}

// Select returns the preferred candidate URL, or false for an empty list.
func (p TierPolicy) Select(urls []string) (string, bool) {
	if len(urls) == 0 {
		return "", false
	}
	for _, idx := range p {
		if idx >= 0 && idx < len(urls) {
			return urls[idx], true
		}
	}
	return urls[0], true
}

// StripWatermark rewrites every watermark marker in a CDN URL.
func StripWatermark(u string) string {
	return strings.ReplaceAll(u, watermarkMarker, "play")
}

// ResolvePlaybackURL applies tier selection and watermark removal to a
// play-address list.
func ResolvePlaybackURL(urls []string) (string, error) {
	if len(urls) == 0 {
		return "", errors.New(errors.TypeNoPlaybackURL, "play_addr url_list is empty")
	}
	chosen, _ := DefaultTierPolicy.Select(urls)
	resolved := StripWatermark(chosen)
	if resolved == "" {
		return "", errors.New(errors.TypeEmptyResolvedURL, "resolved URL is empty after watermark substitution")
	}
	return resolved, nil
}

// PlaybackURLFromDetail walks the detail payload down to its url_list and
// resolves the playback URL. Any missing link in the chain is a
// NoPlaybackUrl failure.
func PlaybackURLFromDetail(detail *DetailResponse) (string, error) {
	if detail == nil || detail.AwemeDetail == nil {
		return "", errors.New(errors.TypeNoPlaybackURL, "aweme_detail missing from payload")
	}
	v := detail.AwemeDetail.Video
	if v == nil || v.PlayAddr == nil {
		return "", errors.New(errors.TypeNoPlaybackURL, "video.play_addr missing from payload")
	}
	return ResolvePlaybackURL(v.PlayAddr.URLList)
}

// BuildVideoRecord maps one raw feed item to a VideoRecord. A missing
// required nested field (statistics block, play-address list) fails the
// item with MalformedRecord; the caller skips it and continues.
func BuildVideoRecord(item *FeedItem, base string) (VideoRecord, error) {
	if item.AwemeID == "" {
		return VideoRecord{}, errors.New(errors.TypeMalformedRecord, "aweme_id is empty")
	}
	if item.Statistics == nil {
		return VideoRecord{}, errors.Newf(errors.TypeMalformedRecord, "item %s has no statistics block", item.AwemeID)
	}
	if item.Video == nil || item.Video.PlayAddr == nil || len(item.Video.PlayAddr.URLList) == 0 {
		return VideoRecord{}, errors.Newf(errors.TypeMalformedRecord, "item %s has no play_addr url_list", item.AwemeID)
	}

	download, err := ResolvePlaybackURL(item.Video.PlayAddr.URLList)
	if err != nil {
		return VideoRecord{}, errors.Newf(errors.TypeMalformedRecord, "item %s: %v", item.AwemeID, err)
	}

	return VideoRecord{
		VideoID:      item.AwemeID,
		CanonicalURL: VideoPageURL(base, item.AwemeID),
		Title:        item.Desc,
		CreatedAt:    item.CreateTime,
		Duration:     item.Duration,
		LikeCount:    item.Statistics.DiggCount,
		CommentCount: item.Statistics.CommentCount,
		CollectCount: item.Statistics.CollectCount,
		ShareCount:   item.Statistics.ShareCount,
		DownloadURL:  download,
	}, nil
}
