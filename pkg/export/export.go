package export

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dyscraper/pkg/douyin"
)

// Result is one harvest written to disk.
type Result struct {
	ProfileURL  string               `json:"profile_url"`
	HarvestedAt time.Time            `json:"harvested_at"`
	Total       int                  `json:"total"`
	Videos      []douyin.VideoRecord `json:"videos"`
}

// Writer saves harvest results as JSON files under one output directory.
type Writer struct {
	outputDir string
}

// NewWriter creates the output directory if needed.
func NewWriter(outputDir string) (*Writer, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Writer{outputDir: outputDir}, nil
}

// Write saves the records for profileURL and returns the file path.
func (w *Writer) Write(profileURL string, records []douyin.VideoRecord) (string, error) {
	result := Result{
		ProfileURL:  profileURL,
		HarvestedAt: time.Now().UTC(),
		Total:       len(records),
		Videos:      records,
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}

	name := fmt.Sprintf("%s_%s.json", profileSlug(profileURL), result.HarvestedAt.Format("20060102T150405Z"))
	path := filepath.Join(w.outputDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write result file: %w", err)
	}
	return path, nil
}

// profileSlug derives a filename-safe identifier from the profile URL,
// preferring its last path segment.
func profileSlug(profileURL string) string {
	slug := "profile"
	if u, err := url.Parse(profileURL); err == nil {
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		if last := segments[len(segments)-1]; last != "" {
			slug = last
		}
	}
	var b strings.Builder
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
