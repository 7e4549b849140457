package scraper

import (
	"sync"
	"time"

	"dyscraper/pkg/browser"
)

// fakeDriver scripts the browser session for tests. Hooks default to
// benign behavior; tests override the ones they care about.
type fakeDriver struct {
	mu sync.Mutex

	navigateFn   func(url string) error
	currentURLFn func() (string, error)
	findFn       func(xpath string, timeout time.Duration) (browser.Element, bool, error)
	listenFn     func(pattern string) error
	waitFn       func(maxCount int, timeout time.Duration) ([]browser.CapturedResponse, error)

	navigated     []string
	listenPattern string
	waitCalls     int
	closeCalls    int

	// events records the call order for listener-before-navigate checks.
	events []string
}

type fakeElement struct {
	scrollErr error
	scrolls   int
}

func (e *fakeElement) ScrollIntoView() error {
	e.scrolls++
	return e.scrollErr
}

func (d *fakeDriver) Navigate(url string) error {
	d.mu.Lock()
	d.navigated = append(d.navigated, url)
	d.events = append(d.events, "navigate:"+url)
	d.mu.Unlock()
	if d.navigateFn != nil {
		return d.navigateFn(url)
	}
	return nil
}

func (d *fakeDriver) CurrentURL() (string, error) {
	if d.currentURLFn != nil {
		return d.currentURLFn()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.navigated) == 0 {
		return "", nil
	}
	return d.navigated[len(d.navigated)-1], nil
}

func (d *fakeDriver) FindElement(xpath string, timeout time.Duration) (browser.Element, bool, error) {
	if d.findFn != nil {
		return d.findFn(xpath, timeout)
	}
	return nil, false, nil
}

func (d *fakeDriver) StartNetworkListener(pattern string) error {
	d.mu.Lock()
	d.listenPattern = pattern
	d.events = append(d.events, "listen:"+pattern)
	d.mu.Unlock()
	if d.listenFn != nil {
		return d.listenFn(pattern)
	}
	return nil
}

func (d *fakeDriver) WaitForResponses(maxCount int, timeout time.Duration) ([]browser.CapturedResponse, error) {
	d.mu.Lock()
	d.waitCalls++
	d.mu.Unlock()
	if d.waitFn != nil {
		return d.waitFn(maxCount, timeout)
	}
	return nil, nil
}

func (d *fakeDriver) Close() error {
	d.mu.Lock()
	d.closeCalls++
	d.mu.Unlock()
	return nil
}

var _ browser.Driver = (*fakeDriver)(nil)
