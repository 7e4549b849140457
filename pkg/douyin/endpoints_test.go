package douyin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractVideoIDFromVidParam(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "vid only",
			url:  "https://www.iesdouyin.com/share/video/?vid=7412345678901234567",
			want: "7412345678901234567",
		},
		{
			name: "vid among other params",
			url:  "https://www.douyin.com/discover?modal_id=x&vid=123&from=share",
			want: "123",
		},
		{
			name: "vid wins over video path segment",
			url:  "https://www.douyin.com/video/999?vid=111",
			want: "111",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractVideoID(tt.url)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractVideoIDFromPath(t *testing.T) {
	got, ok := ExtractVideoID("https://www.douyin.com/video/7412345678901234567")
	assert.True(t, ok)
	assert.Equal(t, "7412345678901234567", got)

	got, ok = ExtractVideoID("https://www.douyin.com/user/abc/video/42/")
	assert.True(t, ok)
	assert.Equal(t, "42", got)
}

func TestExtractVideoIDNotFound(t *testing.T) {
	for _, u := range []string{
		"https://www.douyin.com/user/MS4wLjABAAAA",
		"https://www.douyin.com/video/",
		"https://www.douyin.com/?modal_id=123",
		"://bad",
	} {
		_, ok := ExtractVideoID(u)
		assert.False(t, ok, u)
	}
}

func TestVideoPageURL(t *testing.T) {
	assert.Equal(t, "https://www.douyin.com/video/123", VideoPageURL("", "123"))
	assert.Equal(t, "https://mirror.example/video/123", VideoPageURL("https://mirror.example", "123"))
	// A trailing slash on the base must not double up.
	assert.Equal(t, "https://mirror.example/video/123", VideoPageURL("https://mirror.example/", "123"))
}
