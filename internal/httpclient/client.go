package httpclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/maltedev/price-tracker/internal/models"
)

const (
	maxBodyBytes     = 4 << 20 // product pages past 4MB are garbage
	maxFetchAttempts = 3
)

// Statuses worth retrying at the transport level.
var retryableStatus = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// Request describes one document fetch.
type Request struct {
	URL     string
	Referer string
	Mobile  bool
}

// Client fetches product pages over plain HTTP with a rotating browser
// identity and a per-identity cookie jar. It is safe for concurrent use,
// though the monitor drives it sequentially.
type Client struct {
	mu      sync.Mutex
	hc      *http.Client
	profile Profile
	mobile  Profile
	timeout time.Duration
	logger  *slog.Logger
}

func New(timeout time.Duration) (*Client, error) {
	c := &Client{
		timeout: timeout,
		logger:  slog.Default().With("component", "httpclient"),
	}
	if err := c.resetSession(); err != nil {
		return nil, err
	}
	c.pickProfiles()
	return c, nil
}

// resetSession replaces the cookie jar. Cookies from a challenged identity
// are worthless to the next one.
func (c *Client) resetSession() error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}
	seedJar(jar)
	c.hc = &http.Client{
		Jar:     jar,
		Timeout: c.timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	return nil
}

func (c *Client) pickProfiles() {
	c.profile = desktopProfiles[rand.Intn(len(desktopProfiles))]
	c.mobile = mobileProfiles[rand.Intn(len(mobileProfiles))]
}

// RotateIdentity discards the current cookies and picks a fresh header
// profile. Called after a bot challenge.
func (c *Client) RotateIdentity() {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.profile.UserAgent
	for {
		c.pickProfiles()
		if c.profile.UserAgent != old || len(desktopProfiles) == 1 {
			break
		}
	}
	if err := c.resetSession(); err != nil {
		c.logger.Error("failed to reset session", "error", err)
		return
	}
	c.logger.Debug("rotated identity", "user_agent", c.profile.UserAgent)
}

// Fetch retrieves the URL and returns the response document. Non-2xx
// statuses are returned as pages, not errors; only transport failures error.
func (c *Client) Fetch(ctx context.Context, r Request) (*models.Page, error) {
	c.mu.Lock()
	hc := c.hc
	profile := c.profile
	if r.Mobile {
		profile = c.mobile
	}
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid request url: %w", err)
	}
	profile.apply(req, r.Referer)

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	page := &models.Page{
		URL:        r.URL,
		FinalURL:   resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       string(body),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}

	c.logger.Debug("fetched page",
		"url", r.URL,
		"status", resp.StatusCode,
		"bytes", len(body),
		"final_url", page.FinalURL,
	)

	return page, nil
}

// FetchWithRetry wraps Fetch with bounded retry on retryable statuses,
// exponential backoff with jitter, and Retry-After honoring on 429. A
// transport-level failure is a stronger blocking signal than an HTTP error,
// so it resets the session and waits longer before the next attempt.
func (c *Client) FetchWithRetry(ctx context.Context, r Request) (*models.Page, error) {
	policy := DefaultBackoff()

	var last *models.Page
	var lastErr error
	var hint time.Duration
	var transportFailed bool

	for attempt := 0; attempt < maxFetchAttempts; attempt++ {
		if attempt > 0 {
			delay := policy.Delay(attempt-1, hint)
			if transportFailed {
				delay = policy.TransportDelay(attempt - 1)
			}
			c.logger.Debug("retrying fetch", "url", r.URL, "attempt", attempt+1, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		page, err := c.Fetch(ctx, r)
		if err != nil {
			lastErr = err
			hint = 0
			transportFailed = true
			c.RotateIdentity()
			continue
		}
		transportFailed = false

		if !retryableStatus[page.StatusCode] {
			return page, nil
		}

		last = page
		lastErr = nil
		hint = page.RetryAfter
	}

	if last != nil {
		return last, nil
	}
	return nil, lastErr
}

// Warm visits a site homepage so the jar carries session cookies before the
// product page is requested. Errors are non-fatal; the caller proceeds
// either way.
func (c *Client) Warm(ctx context.Context, homepageURL string) error {
	page, err := c.Fetch(ctx, Request{URL: homepageURL})
	if err != nil {
		return err
	}
	if !page.OK() {
		return fmt.Errorf("homepage returned status %d", page.StatusCode)
	}
	return nil
}

// ResolveShortURL follows redirects from a share link and returns the final
// location without downloading the target page body.
func (c *Client) ResolveShortURL(ctx context.Context, shortURL string) (string, error) {
	c.mu.Lock()
	hc := c.hc
	profile := c.profile
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, shortURL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid short url: %w", err)
	}
	profile.apply(req, "")

	resp, err := hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to resolve short url: %w", err)
	}
	defer resp.Body.Close()

	final := resp.Request.URL.String()
	if final == shortURL {
		return "", fmt.Errorf("short url did not redirect")
	}
	return final, nil
}

// seedJar plants plausible session cookies before first contact. A request
// arriving with locale and currency already set looks like a returning
// visitor rather than a cold client.
func seedJar(jar http.CookieJar) {
	sid := newSessionID()

	seeds := map[string][]*http.Cookie{
		"https://www.amazon.in": {
			{Name: "session-id", Value: sid},
			{Name: "i18n-prefs", Value: "INR"},
			{Name: "lc-main", Value: "en_IN"},
		},
		"https://www.flipkart.com": {
			{Name: "T", Value: "TI" + sid},
		},
	}

	for raw, cookies := range seeds {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		jar.SetCookies(u, cookies)
	}
}

// newSessionID mimics the NNN-NNNNNNN-NNNNNNN shape of storefront session
// ids.
func newSessionID() string {
	return fmt.Sprintf("%03d-%07d-%07d",
		rand.Intn(1000), rand.Intn(10000000), rand.Intn(10000000))
}

func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
