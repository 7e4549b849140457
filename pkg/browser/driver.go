package browser

import "time"

// CapturedResponse is one network response observed by the session's
// listener: the request URL (used for endpoint-substring filtering) and
// the raw JSON body. Ephemeral: consumed immediately by extraction.
type CapturedResponse struct {
	URL  string
	Body []byte
}

// Element is a handle to a located page element.
type Element interface {
	ScrollIntoView() error
}

// Driver is the capability interface the scraping core needs from a
// browser session. One session serves one resolve/harvest call; its
// listener and navigation state are single-subscriber, so concurrent
// calls must each hold their own session.
type Driver interface {
	// Navigate opens the URL and suspends until the initial load signal.
	Navigate(url string) error

	// CurrentURL returns the page URL after any redirects.
	CurrentURL() (string, error)

	// FindElement looks an element up by XPath, polling up to timeout.
	// Absence is not an error: it returns (nil, false, nil).
	FindElement(xpath string, timeout time.Duration) (Element, bool, error)

	// StartNetworkListener begins capturing responses whose request URL
	// contains pattern. Must be called before the navigation whose
	// responses are to be captured.
	StartNetworkListener(pattern string) error

	// WaitForResponses drains captured responses, blocking until maxCount
	// have arrived or timeout elapses, whichever is first. Non-strict: it
	// returns whatever arrived, possibly nothing.
	WaitForResponses(maxCount int, timeout time.Duration) ([]CapturedResponse, error)

	// Close releases all browser resources. Idempotent; safe after a
	// prior failure.
	Close() error
}
