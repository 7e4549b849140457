package douyin

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// BaseURL is the canonical site origin.
	BaseURL = "https://www.douyin.com"

	// DetailEndpoint matches the single-video detail API.
	DetailEndpoint = "/aweme/v1/web/aweme/detail/"

	// FeedEndpoint matches the paginated profile feed API.
	FeedEndpoint = "aweme/v1/web/aweme/post/"
)

// VideoPageURL builds the detail-page URL for a video ID under base. An
// empty base falls back to the canonical origin.
func VideoPageURL(base, videoID string) string {
	if base == "" {
		base = BaseURL
	}
	return fmt.Sprintf("%s/video/%s", strings.TrimSuffix(base, "/"), videoID)
}

// ExtractVideoID pulls the video identifier out of a (possibly
// redirected) page URL. Precedence: the vid query parameter, then the
// path segment immediately following a literal "video" component.
func ExtractVideoID(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	if vid := u.Query().Get("vid"); vid != "" {
		return vid, true
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if seg == "video" && i+1 < len(segments) && segments[i+1] != "" {
			return segments[i+1], true
		}
	}

	return "", false
}
