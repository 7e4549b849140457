package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dyscraper/pkg/browser"
	"dyscraper/pkg/config"
	"dyscraper/pkg/errors"
	"dyscraper/pkg/logger"
)

func harvestConfig() *config.Config {
	cfg := config.Default()
	cfg.Harvest.CaptureTimeout = 50 * time.Millisecond
	cfg.Harvest.ProbeTimeout = 10 * time.Millisecond
	return cfg
}

func feedItemJSON(id string) map[string]interface{} {
	return map[string]interface{}{
		"aweme_id":    id,
		"desc":        "video " + id,
		"create_time": 1714000000,
		"duration":    12000,
		"statistics": map[string]interface{}{
			"digg_count": 1, "comment_count": 2, "collect_count": 3, "share_count": 4,
		},
		"video": map[string]interface{}{
			"play_addr": map[string]interface{}{
				"url_list": []string{"a/playwm/" + id, "b/playwm/" + id, "c/playwm/" + id},
			},
		},
	}
}

func feedResponse(items ...map[string]interface{}) browser.CapturedResponse {
	body, _ := json.Marshal(map[string]interface{}{"aweme_list": items, "has_more": 1})
	return browser.CapturedResponse{
		URL:  "https://www.douyin.com/aweme/v1/web/aweme/post/?sec_user_id=x",
		Body: body,
	}
}

func feedResponseOf(ids ...string) browser.CapturedResponse {
	items := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		items = append(items, feedItemJSON(id))
	}
	return feedResponse(items...)
}

// harvestDriver scripts rounds of captured responses plus the two page
// probes (end marker, scroll anchor).
type harvestDriver struct {
	fakeDriver
	rounds     [][]browser.CapturedResponse
	waitErrs   map[int]error
	markerFrom int // probe round at which the end marker appears; 0 = never
	anchorGone bool
	anchor     fakeElement

	probeCalls  int
	anchorCalls int
}

func newHarvestDriver(rounds ...[]browser.CapturedResponse) *harvestDriver {
	d := &harvestDriver{rounds: rounds}
	d.waitFn = func(maxCount int, timeout time.Duration) ([]browser.CapturedResponse, error) {
		call := d.waitCalls
		if err, ok := d.waitErrs[call]; ok {
			return nil, err
		}
		if call > len(d.rounds) {
			return nil, nil
		}
		return d.rounds[call-1], nil
	}
	d.findFn = func(xpath string, timeout time.Duration) (browser.Element, bool, error) {
		if strings.Contains(xpath, "text()") {
			d.probeCalls++
			return nil, d.markerFrom > 0 && d.probeCalls >= d.markerFrom, nil
		}
		d.anchorCalls++
		if d.anchorGone {
			return nil, false, nil
		}
		return &d.anchor, true, nil
	}
	return d
}

func recordIDs(t *testing.T, h *FeedHarvester, ctx context.Context, url string) []string {
	t.Helper()
	records, err := h.Harvest(ctx, url)
	require.NoError(t, err)
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.VideoID)
	}
	return out
}

func TestHarvestMultipleRounds(t *testing.T) {
	d := newHarvestDriver(
		[]browser.CapturedResponse{feedResponseOf("1", "2")},
		[]browser.CapturedResponse{feedResponseOf("3"), feedResponseOf("4", "5")},
	)
	d.markerFrom = 3 // marker visible on the third probe

	h := NewFeedHarvester(d, harvestConfig(), logger.Nop())
	records, err := h.Harvest(context.Background(), "https://www.douyin.com/user/abc")
	require.NoError(t, err)

	got := make([]string, 0, len(records))
	for _, r := range records {
		got = append(got, r.VideoID)
	}
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, got)

	// Listener registered before the profile navigation.
	require.GreaterOrEqual(t, len(d.events), 2)
	assert.Equal(t, "listen:aweme/v1/web/aweme/post/", d.events[0])
	assert.True(t, strings.HasPrefix(d.events[1], "navigate:"))

	// Two data rounds, then the marker round returned nothing and ended
	// the loop; the anchor was scrolled after each full round.
	assert.Equal(t, 2, d.anchor.scrolls)

	// Records carry the resolved, watermark-free download URL.
	assert.Equal(t, "c/play/1", records[0].DownloadURL)
	assert.Equal(t, "https://www.douyin.com/video/1", records[0].CanonicalURL)
}

func TestHarvestStopsOnMarkerButProcessesFinalRound(t *testing.T) {
	d := newHarvestDriver(
		[]browser.CapturedResponse{feedResponseOf("1")},
	)
	d.markerFrom = 1 // marker already visible on the first probe

	h := NewFeedHarvester(d, harvestConfig(), logger.Nop())
	got := recordIDs(t, h, context.Background(), "https://www.douyin.com/user/abc")

	// The round that saw the marker still yielded its records.
	assert.Equal(t, []string{"1"}, got)
	// No scroll after the stop flag.
	assert.Equal(t, 0, d.anchor.scrolls)
	assert.Equal(t, 1, d.waitCalls)
}

func TestHarvestDeduplicatesAcrossRounds(t *testing.T) {
	d := newHarvestDriver(
		[]browser.CapturedResponse{feedResponseOf("1", "2")},
		[]browser.CapturedResponse{feedResponseOf("2", "3")},
		[]browser.CapturedResponse{feedResponseOf("3", "2", "1")}, // all duplicates
	)

	h := NewFeedHarvester(d, harvestConfig(), logger.Nop())
	got := recordIDs(t, h, context.Background(), "https://www.douyin.com/user/abc")

	// First-seen order, duplicates dropped; the all-duplicate round
	// counts as zero new records and terminates the harvest.
	assert.Equal(t, []string{"1", "2", "3"}, got)
	assert.Equal(t, 3, d.waitCalls)
}

func TestHarvestSkipsMalformedItem(t *testing.T) {
	broken := feedItemJSON("2")
	delete(broken, "statistics")

	d := newHarvestDriver(
		[]browser.CapturedResponse{feedResponse(feedItemJSON("1"), broken, feedItemJSON("3"))},
		nil, // second round: nothing arrives
	)

	h := NewFeedHarvester(d, harvestConfig(), logger.Nop())
	got := recordIDs(t, h, context.Background(), "https://www.douyin.com/user/abc")

	assert.Equal(t, []string{"1", "3"}, got)
}

func TestHarvestSkipsEmptyAwemeList(t *testing.T) {
	d := newHarvestDriver(
		[]browser.CapturedResponse{feedResponse(), feedResponseOf("1")},
		nil,
	)

	h := NewFeedHarvester(d, harvestConfig(), logger.Nop())
	got := recordIDs(t, h, context.Background(), "https://www.douyin.com/user/abc")

	// The empty response is skipped without failing the round.
	assert.Equal(t, []string{"1"}, got)
}

func TestHarvestIgnoresNonFeedResponses(t *testing.T) {
	other := browser.CapturedResponse{
		URL:  "https://www.douyin.com/aweme/v1/web/comment/list/",
		Body: []byte(`{"comments":[]}`),
	}
	d := newHarvestDriver(
		[]browser.CapturedResponse{other, feedResponseOf("1")},
		nil,
	)

	h := NewFeedHarvester(d, harvestConfig(), logger.Nop())
	got := recordIDs(t, h, context.Background(), "https://www.douyin.com/user/abc")
	assert.Equal(t, []string{"1"}, got)
}

func TestHarvestZeroResponsesEndsWithAccumulated(t *testing.T) {
	d := newHarvestDriver(
		[]browser.CapturedResponse{feedResponseOf("1", "2")},
		nil, nil, nil, // consecutive empty rounds
	)

	h := NewFeedHarvester(d, harvestConfig(), logger.Nop())
	got := recordIDs(t, h, context.Background(), "https://www.douyin.com/user/abc")

	// The first empty round ends the harvest without raising.
	assert.Equal(t, []string{"1", "2"}, got)
	assert.Equal(t, 2, d.waitCalls)
}

func TestHarvestCaptureErrorTreatedAsEndOfFeed(t *testing.T) {
	d := newHarvestDriver(
		[]browser.CapturedResponse{feedResponseOf("1")},
	)
	d.waitErrs = map[int]error{2: errors.New(errors.TypeCaptureExhausted, "wait timed out")}

	h := NewFeedHarvester(d, harvestConfig(), logger.Nop())
	got := recordIDs(t, h, context.Background(), "https://www.douyin.com/user/abc")

	assert.Equal(t, []string{"1"}, got)
}

func TestHarvestStopsWhenAnchorMissing(t *testing.T) {
	d := newHarvestDriver(
		[]browser.CapturedResponse{feedResponseOf("1")},
		[]browser.CapturedResponse{feedResponseOf("2")},
	)
	d.anchorGone = true

	h := NewFeedHarvester(d, harvestConfig(), logger.Nop())
	got := recordIDs(t, h, context.Background(), "https://www.douyin.com/user/abc")

	// Nothing left to scroll toward after the first round.
	assert.Equal(t, []string{"1"}, got)
	assert.Equal(t, 1, d.waitCalls)
}

func TestHarvestBoundedByMaxRounds(t *testing.T) {
	// Endless fresh data, anchor always present, marker never shown: the
	// round ceiling must end the loop.
	var n int
	d := newHarvestDriver()
	d.waitFn = func(maxCount int, timeout time.Duration) ([]browser.CapturedResponse, error) {
		n++
		return []browser.CapturedResponse{feedResponseOf(fmt.Sprintf("id-%d", n))}, nil
	}

	cfg := harvestConfig()
	cfg.Harvest.MaxRounds = 4

	h := NewFeedHarvester(d, cfg, logger.Nop())
	records, err := h.Harvest(context.Background(), "https://www.douyin.com/user/abc")
	require.NoError(t, err)
	assert.Len(t, records, 4)
	assert.Equal(t, 4, d.waitCalls)
}

func TestHarvestSetupFailureSurfaces(t *testing.T) {
	d := newHarvestDriver()
	d.listenFn = func(pattern string) error {
		return errors.New(errors.TypeDriverFailure, "session gone")
	}

	h := NewFeedHarvester(d, harvestConfig(), logger.Nop())
	_, err := h.Harvest(context.Background(), "https://www.douyin.com/user/abc")
	assert.True(t, errors.IsType(err, errors.TypeDriverFailure))
}

func TestHarvestEmptyProfileURL(t *testing.T) {
	h := NewFeedHarvester(newHarvestDriver(), harvestConfig(), logger.Nop())
	_, err := h.Harvest(context.Background(), "  ")
	assert.Error(t, err)
}

func TestHarvestCancelledContextReturnsAccumulated(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	d := newHarvestDriver(
		[]browser.CapturedResponse{feedResponseOf("1")},
		[]browser.CapturedResponse{feedResponseOf("2")},
	)
	// Cancel after the first capture round.
	inner := d.waitFn
	d.waitFn = func(maxCount int, timeout time.Duration) ([]browser.CapturedResponse, error) {
		defer cancel()
		return inner(maxCount, timeout)
	}

	h := NewFeedHarvester(d, harvestConfig(), logger.Nop())
	records, err := h.Harvest(ctx, "https://www.douyin.com/user/abc")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
