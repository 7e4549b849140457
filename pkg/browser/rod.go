package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"dyscraper/pkg/config"
	"dyscraper/pkg/errors"
	"dyscraper/pkg/logger"
)

// Session is a rod-backed Driver. It owns one Chromium instance and one
// stealth page for the lifetime of a single resolve/harvest call.
type Session struct {
	browser *rod.Browser
	page    *rod.Page
	cfg     config.BrowserConfig
	log     logger.Logger

	mu        sync.Mutex
	pattern   string
	listening bool
	pending   map[proto.NetworkRequestID]string
	queue     []CapturedResponse

	closeOnce sync.Once
	closeErr  error
}

// chrome locations probed when no binary is configured and rod's own
// lookup is not wanted.
var chromePaths = []string{
	"/usr/bin/google-chrome",
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
}

// NewSession launches a browser and opens a stealth page.
func NewSession(cfg config.BrowserConfig, log logger.Logger) (*Session, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("disable-gpu")

	bin := cfg.BinPath
	if bin == "" {
		for _, p := range chromePaths {
			if _, err := os.Stat(p); err == nil {
				bin = p
				break
			}
		}
	}
	if bin != "" {
		l = l.Bin(bin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}
	if cfg.UserDataDir != "" {
		l = l.UserDataDir(cfg.UserDataDir)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, errors.Newf(errors.TypeDriverFailure, "launch browser: %v", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, errors.Newf(errors.TypeDriverFailure, "connect browser: %v", err)
	}

	page, err := stealth.Page(b)
	if err != nil {
		_ = b.Close()
		return nil, errors.Newf(errors.TypeDriverFailure, "create stealth page: %v", err)
	}

	return &Session{
		browser: b,
		page:    page,
		cfg:     cfg,
		log:     log,
		pending: make(map[proto.NetworkRequestID]string),
	}, nil
}

// Navigate opens the URL and waits for the load event.
func (s *Session) Navigate(url string) error {
	page := s.page.Timeout(s.navTimeout())
	if err := page.Navigate(url); err != nil {
		return errors.Newf(errors.TypeDriverFailure, "navigate: %v", err).WithURL(url)
	}
	if err := page.WaitLoad(); err != nil {
		return errors.Newf(errors.TypeDriverFailure, "wait for load: %v", err).WithURL(url)
	}
	return nil
}

// CurrentURL returns the page URL after redirects.
func (s *Session) CurrentURL() (string, error) {
	info, err := s.page.Info()
	if err != nil {
		return "", errors.Newf(errors.TypeDriverFailure, "page info: %v", err)
	}
	return info.URL, nil
}

// FindElement looks up an element by XPath, polling up to timeout.
func (s *Session) FindElement(xpath string, timeout time.Duration) (Element, bool, error) {
	el, err := s.page.Timeout(timeout).ElementX(xpath)
	if err != nil {
		if isDeadline(err) || strings.Contains(err.Error(), "cannot find element") {
			return nil, false, nil
		}
		return nil, false, errors.Newf(errors.TypeDriverFailure, "find element %q: %v", xpath, err)
	}
	return el.CancelTimeout(), true, nil
}

// StartNetworkListener begins capturing response bodies whose request URL
// contains pattern. A session carries at most one listener.
func (s *Session) StartNetworkListener(pattern string) error {
	s.mu.Lock()
	if s.listening {
		s.mu.Unlock()
		return errors.New(errors.TypeDriverFailure, "network listener already started for this session")
	}
	s.pattern = pattern
	s.listening = true
	s.mu.Unlock()

	if err := (proto.NetworkEnable{}).Call(s.page); err != nil {
		return errors.Newf(errors.TypeDriverFailure, "enable network domain: %v", err)
	}

	// Bodies are only retrievable once loading finished, so track URLs on
	// responseReceived and fetch on loadingFinished.
	go s.page.EachEvent(
		func(e *proto.NetworkResponseReceived) {
			if !strings.Contains(e.Response.URL, pattern) {
				return
			}
			s.mu.Lock()
			s.pending[e.RequestID] = e.Response.URL
			s.mu.Unlock()
		},
		func(e *proto.NetworkLoadingFinished) {
			s.mu.Lock()
			url, ok := s.pending[e.RequestID]
			if ok {
				delete(s.pending, e.RequestID)
			}
			s.mu.Unlock()
			if !ok {
				return
			}
			s.captureBody(e.RequestID, url)
		},
	)()

	return nil
}

func (s *Session) captureBody(id proto.NetworkRequestID, url string) {
	res, err := proto.NetworkGetResponseBody{RequestID: id}.Call(s.page)
	if err != nil {
		s.log.WithError(err).WithField("url", url).Warn("failed to read captured response body")
		return
	}
	body := []byte(res.Body)
	if res.Base64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(res.Body)
		if err != nil {
			s.log.WithError(err).WithField("url", url).Warn("failed to decode captured response body")
			return
		}
		body = decoded
	}

	s.mu.Lock()
	s.queue = append(s.queue, CapturedResponse{URL: url, Body: body})
	s.mu.Unlock()
}

// WaitForResponses drains the capture queue, blocking until maxCount have
// arrived or timeout elapses. Returns whatever arrived.
func (s *Session) WaitForResponses(maxCount int, timeout time.Duration) ([]CapturedResponse, error) {
	s.mu.Lock()
	if !s.listening {
		s.mu.Unlock()
		return nil, errors.New(errors.TypeDriverFailure, "network listener not started")
	}
	s.mu.Unlock()

	deadline := time.Now().Add(timeout)
	for {
		s.mu.Lock()
		if len(s.queue) >= maxCount || time.Now().After(deadline) {
			n := len(s.queue)
			if n > maxCount {
				n = maxCount
			}
			drained := s.queue[:n:n]
			// Anything beyond the ceiling stays queued for the next wait.
			s.queue = s.queue[n:]
			if len(s.queue) == 0 {
				s.queue = nil
			}
			s.mu.Unlock()
			return drained, nil
		}
		s.mu.Unlock()
		time.Sleep(100 * time.Millisecond)
	}
}

// Close releases the page and browser. Idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.page != nil {
			if err := s.page.Close(); err != nil {
				s.closeErr = fmt.Errorf("close page: %w", err)
			}
		}
		if s.browser != nil {
			if err := s.browser.Close(); err != nil && s.closeErr == nil {
				s.closeErr = fmt.Errorf("close browser: %w", err)
			}
		}
	})
	return s.closeErr
}

func (s *Session) navTimeout() time.Duration {
	if s.cfg.NavTimeout > 0 {
		return s.cfg.NavTimeout
	}
	return 30 * time.Second
}

func isDeadline(err error) bool {
	return err == context.DeadlineExceeded ||
		strings.Contains(err.Error(), context.DeadlineExceeded.Error())
}

var _ Driver = (*Session)(nil)
