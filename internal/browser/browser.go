package browser

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/price-tracker/internal/models"
)

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ExtraHeaders   map[string]string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "en-IN,en;q=0.9",
		TimezoneID:     "Asia/Kolkata",
		Locale:         "en-IN",
		ExtraHeaders: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Encoding": "gzip, deflate, br",
			"DNT":             "1",
		},
	}
}

// Session is one live browser context. Sessions are created and recycled by
// the pool; callers only render pages through them.
type Session struct {
	browser   playwright.Browser
	context   playwright.BrowserContext
	createdAt time.Time
	timeout   time.Duration
	logger    *slog.Logger
}

func newSession(pw *playwright.Playwright, opts *Options) (*Session, error) {
	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			fmt.Sprintf("--window-size=%d,%d", opts.ViewportWidth, opts.ViewportHeight),
			"--user-agent=" + opts.UserAgent,
		},
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent:         &opts.UserAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &opts.Locale,
		TimezoneId:        &opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		ExtraHttpHeaders: opts.ExtraHeaders,
	}

	context, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	return &Session{
		browser:   browser,
		context:   context,
		createdAt: time.Now(),
		timeout:   opts.Timeout,
		logger:    slog.Default().With("component", "browser"),
	}, nil
}

// Render navigates to the URL and returns the settled document. The page is
// closed afterwards; the context (and its cookies) lives on in the session.
func (s *Session) Render(url string) (*models.Page, error) {
	page, err := s.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	page.SetDefaultTimeout(float64(s.timeout.Milliseconds()))

	resp, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.timeout.Milliseconds())),
	})
	if err != nil {
		return nil, fmt.Errorf("navigation failed: %w", err)
	}

	// Give late scripts a moment to settle price blocks.
	time.Sleep(2 * time.Second)

	content, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}

	status := 200
	if resp != nil {
		status = resp.Status()
	}

	return &models.Page{
		URL:        url,
		FinalURL:   page.URL(),
		StatusCode: status,
		Body:       content,
	}, nil
}

// ResolveURL navigates a share link and reads back the settled URL.
func (s *Session) ResolveURL(shortURL string) (string, error) {
	page, err := s.context.NewPage()
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	page.SetDefaultTimeout(float64(s.timeout.Milliseconds()))

	if _, err := page.Goto(shortURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return "", fmt.Errorf("failed to resolve short url: %w", err)
	}

	return page.URL(), nil
}

// Alive is the liveness probe: a crashed browser fails here and the pool
// discards the session instead of reusing it.
func (s *Session) Alive() bool {
	if s.browser == nil || !s.browser.IsConnected() {
		return false
	}
	_, err := s.context.Cookies()
	return err == nil
}

func (s *Session) Age() time.Duration {
	return time.Since(s.createdAt)
}

func (s *Session) Close() {
	if s.context != nil {
		if err := s.context.Close(); err != nil {
			s.logger.Debug("failed to close context", "error", err)
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			s.logger.Debug("failed to close browser", "error", err)
		}
	}
}

func (s *Session) cookies() ([]playwright.Cookie, error) {
	return s.context.Cookies()
}

func (s *Session) addCookies(cookies []playwright.OptionalCookie) error {
	if len(cookies) == 0 {
		return nil
	}
	return s.context.AddCookies(cookies)
}
