package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"dyscraper/pkg/browser"
	"dyscraper/pkg/config"
	"dyscraper/pkg/douyin"
	"dyscraper/pkg/errors"
	"dyscraper/pkg/logger"
)

// FeedHarvester collects the full set of a profile's published videos by
// repeatedly provoking the page's infinite-scroll pagination and
// extracting the feed API responses each scroll triggers.
type FeedHarvester struct {
	driver browser.Driver
	cfg    *config.Config
	log    logger.Logger
}

// NewFeedHarvester creates a harvester bound to one browser session.
func NewFeedHarvester(driver browser.Driver, cfg *config.Config, log logger.Logger) *FeedHarvester {
	return &FeedHarvester{driver: driver, cfg: cfg, log: log}
}

// endMarkerXPath matches any element whose text is exactly the
// end-of-list marker the page renders at the feed's bottom.
func (h *FeedHarvester) endMarkerXPath() string {
	return fmt.Sprintf(`//*[text()=%q]`, h.cfg.Douyin.EndMarkerText)
}

// Harvest navigates to the profile page and loops: probe for the
// end-of-list marker, capture queued feed responses, extract records,
// decide, scroll. Records are deduplicated by video ID in first-seen
// order. Exhaustion of any kind ends the loop and returns whatever was
// accumulated; only setup failures surface as errors.
func (h *FeedHarvester) Harvest(ctx context.Context, profileURL string) ([]douyin.VideoRecord, error) {
	profileURL = strings.TrimSpace(profileURL)
	if profileURL == "" {
		return nil, errors.New(errors.TypeDriverFailure, "profile URL is empty")
	}

	if err := h.driver.StartNetworkListener(h.cfg.Douyin.FeedEndpoint); err != nil {
		return nil, err
	}
	if err := h.driver.Navigate(profileURL); err != nil {
		return nil, err
	}
	h.log.WithField("profile_url", profileURL).Info("harvesting profile feed")

	var records []douyin.VideoRecord
	seen := make(map[string]bool)
	stop := false

	for round := 1; round <= h.cfg.Harvest.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			h.log.WithField("round", round).Warn("harvest cancelled")
			break
		}
		log := h.log.WithField("round", round)

		// The marker can appear before the final batch of already-loaded
		// items has been captured, so a hit only arms the stop flag.
		if _, found, err := h.driver.FindElement(h.endMarkerXPath(), h.cfg.Harvest.ProbeTimeout); err == nil && found {
			log.Debug("end-of-list marker visible")
			stop = true
		}

		responses, err := h.driver.WaitForResponses(h.cfg.Harvest.MaxResponses, h.cfg.Harvest.CaptureTimeout)
		if err != nil {
			// Capture trouble of any kind is exhaustion, not a fault to
			// retry: leave with what we have.
			log.WithError(err).Warn("capture failed, treating as end of feed")
			break
		}
		if len(responses) == 0 {
			log.Info("no new feed responses, feed exhausted")
			break
		}

		newRecords, processed := h.extractRound(responses, seen, &records, log)
		log.WithFields(map[string]interface{}{
			"responses":   len(responses),
			"processed":   processed,
			"new_records": newRecords,
			"total":       len(records),
		}).Info("round complete")

		// Guards feeds without a visible end marker: responses arrived
		// but yielded nothing new.
		if newRecords == 0 && processed > 0 {
			break
		}
		if stop {
			break
		}

		anchor, found, err := h.driver.FindElement(h.cfg.Douyin.ScrollAnchorPath, h.cfg.Harvest.ProbeTimeout)
		if err != nil || !found {
			log.Warn("scroll anchor not found, stopping")
			break
		}
		if err := anchor.ScrollIntoView(); err != nil {
			log.WithError(err).Warn("scroll failed, stopping")
			break
		}
	}

	h.log.WithField("total", len(records)).Info("harvest finished")
	return records, nil
}

// extractRound decodes every captured response that matches the feed
// endpoint and appends new records. Per-response and per-item failures
// are logged and skipped, never escalated.
func (h *FeedHarvester) extractRound(responses []browser.CapturedResponse, seen map[string]bool, records *[]douyin.VideoRecord, log logger.Logger) (newRecords, processed int) {
	for _, resp := range responses {
		if !strings.Contains(resp.URL, h.cfg.Douyin.FeedEndpoint) {
			continue
		}
		processed++

		var feed douyin.FeedResponse
		if err := json.Unmarshal(resp.Body, &feed); err != nil {
			log.WithError(err).WithField("url", resp.URL).Warn("skipping undecodable feed response")
			continue
		}
		if len(feed.AwemeList) == 0 {
			log.WithField("url", resp.URL).Debug("feed response carries no aweme_list")
			continue
		}

		for i := range feed.AwemeList {
			rec, err := douyin.BuildVideoRecord(&feed.AwemeList[i], h.cfg.Douyin.BaseURL)
			if err != nil {
				log.WithError(err).Warn("skipping malformed feed item")
				continue
			}
			if seen[rec.VideoID] {
				continue
			}
			seen[rec.VideoID] = true
			*records = append(*records, rec)
			newRecords++
		}
	}
	return newRecords, processed
}
