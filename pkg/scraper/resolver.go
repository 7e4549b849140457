package scraper

import (
	"context"
	"encoding/json"
	"strings"

	"dyscraper/pkg/browser"
	"dyscraper/pkg/config"
	"dyscraper/pkg/douyin"
	"dyscraper/pkg/errors"
	"dyscraper/pkg/logger"
)

// LinkResolver maps one share/short link to one direct, playable,
// watermark-free media URL by letting the browser follow redirects and
// observing the detail API response.
type LinkResolver struct {
	driver browser.Driver
	cfg    *config.Config
	log    logger.Logger
}

// NewLinkResolver creates a resolver bound to one browser session.
func NewLinkResolver(driver browser.Driver, cfg *config.Config, log logger.Logger) *LinkResolver {
	return &LinkResolver{driver: driver, cfg: cfg, log: log}
}

// Resolve follows the share link to its canonical detail page, captures
// the one detail API response, and derives the best direct media URL.
// Any step failure aborts the call; the caller releases the session.
func (r *LinkResolver) Resolve(ctx context.Context, inputURL string) (string, error) {
	inputURL = strings.TrimSpace(inputURL)
	if inputURL == "" {
		return "", errors.New(errors.TypeIdentifierNotFound, "input URL is empty")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.log.WithField("url", inputURL).Info("resolving share link")

	if err := r.driver.Navigate(inputURL); err != nil {
		return "", err
	}
	redirected, err := r.driver.CurrentURL()
	if err != nil {
		return "", err
	}
	r.log.WithField("redirected_url", redirected).Debug("share link redirected")

	videoID, ok := douyin.ExtractVideoID(redirected)
	if !ok {
		return "", errors.New(errors.TypeIdentifierNotFound,
			"redirected URL carries no video identifier").WithURL(redirected)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// The listener must be in place before the detail page loads, or the
	// one response describing the video is lost.
	if err := r.driver.StartNetworkListener(r.cfg.Douyin.DetailEndpoint); err != nil {
		return "", err
	}

	detailURL := douyin.VideoPageURL(r.cfg.Douyin.BaseURL, videoID)
	r.log.WithFields(map[string]interface{}{
		"video_id":   videoID,
		"detail_url": detailURL,
	}).Debug("navigating to detail page")

	if err := r.driver.Navigate(detailURL); err != nil {
		return "", err
	}

	responses, err := r.driver.WaitForResponses(1, r.cfg.Harvest.ResolveTimeout)
	if err != nil {
		return "", err
	}
	if len(responses) == 0 {
		// Single-shot wait: there is no next round to fall back on.
		return "", errors.New(errors.TypeCaptureExhausted,
			"no detail API response observed").WithURL(detailURL)
	}

	var detail douyin.DetailResponse
	if err := json.Unmarshal(responses[0].Body, &detail); err != nil {
		return "", errors.Newf(errors.TypeNoPlaybackURL,
			"detail payload is not valid JSON: %v", err).WithURL(responses[0].URL)
	}

	resolved, err := douyin.PlaybackURLFromDetail(&detail)
	if err != nil {
		return "", err
	}

	r.log.WithFields(map[string]interface{}{
		"video_id":  videoID,
		"media_url": resolved,
	}).Info("share link resolved")
	return resolved, nil
}
