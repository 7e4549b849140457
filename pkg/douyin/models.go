package douyin

// Payload models for the two observed web API endpoints. Nested blocks
// that the extraction requires are pointers so their absence is
// distinguishable from a zero value.

// DetailResponse is the body of the single-video detail endpoint.
type DetailResponse struct {
	AwemeDetail *AwemeDetail `json:"aweme_detail"`
}

// AwemeDetail describes one video on its detail page.
type AwemeDetail struct {
	AwemeID string     `json:"aweme_id"`
	Desc    string     `json:"desc"`
	Video   *VideoMeta `json:"video"`
}

// VideoMeta carries the playback addresses of a video.
type VideoMeta struct {
	PlayAddr *PlayAddr `json:"play_addr"`
}

// PlayAddr holds the ordered CDN URL candidates for one video.
type PlayAddr struct {
	URLList []string `json:"url_list"`
}

// FeedResponse is the body of the paginated profile feed endpoint.
type FeedResponse struct {
	AwemeList []FeedItem `json:"aweme_list"`
	HasMore   int        `json:"has_more"`
	MaxCursor int64      `json:"max_cursor"`
}

// FeedItem is one video entry in a feed page.
type FeedItem struct {
	AwemeID    string      `json:"aweme_id"`
	Desc       string      `json:"desc"`
	CreateTime int64       `json:"create_time"`
	Duration   int64       `json:"duration"`
	Statistics *Statistics `json:"statistics"`
	Video      *VideoMeta  `json:"video"`
}

// Statistics is the engagement block of a feed item.
type Statistics struct {
	DiggCount    int64 `json:"digg_count"`
	CommentCount int64 `json:"comment_count"`
	CollectCount int64 `json:"collect_count"`
	ShareCount   int64 `json:"share_count"`
}

// VideoRecord is the harvested output unit: metadata plus the resolved
// direct media URL for one published video.
type VideoRecord struct {
	VideoID      string `json:"video_id"`
	CanonicalURL string `json:"canonical_url"`
	Title        string `json:"title"`
	CreatedAt    int64  `json:"created_at"`
	Duration     int64  `json:"duration"`
	LikeCount    int64  `json:"like_count"`
	CommentCount int64  `json:"comment_count"`
	CollectCount int64  `json:"collect_count"`
	ShareCount   int64  `json:"share_count"`
	DownloadURL  string `json:"download_url"`
}
