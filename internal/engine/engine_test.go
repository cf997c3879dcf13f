package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/price-tracker/internal/browser"
	"github.com/maltedev/price-tracker/internal/httpclient"
	"github.com/maltedev/price-tracker/internal/models"
)

const testProductURL = "https://www.amazon.in/dp/B0ABCDE123"

func productPage() *models.Page {
	return &models.Page{
		URL:        testProductURL,
		StatusCode: 200,
		Body: `<html><body>
			<h1 id="productTitle">Sony WH-1000XM5</h1>
			<div id="corePriceDisplay_desktop_feature_div">
				<span class="a-price"><span class="a-offscreen">₹24,999</span></span>
			</div>
			<button id="add-to-cart-button">Add to Cart</button>
		</body></html>`,
	}
}

func challengePage() *models.Page {
	return &models.Page{
		URL:        testProductURL,
		StatusCode: 200,
		Body:       `<html><body><p>Enter the characters you see below</p></body></html>`,
	}
}

func serverErrorPage() *models.Page {
	return &models.Page{URL: testProductURL, StatusCode: 503, Body: "service unavailable"}
}

func searchResultsPage() *models.Page {
	return &models.Page{
		URL:        testProductURL,
		StatusCode: 200,
		Body: `<html><body><div class="s-main-slot">results</div>` +
			strings.Repeat("<!-- filler -->", 400) + `</body></html>`,
	}
}

func outOfStockPage() *models.Page {
	return &models.Page{
		URL:        testProductURL,
		StatusCode: 200,
		Body: `<html><body>
			<h1 id="productTitle">Sony WH-1000XM5</h1>
			<div id="availability">Currently unavailable.</div>
		</body></html>`,
	}
}

// fakeFetcher replays a scripted sequence of pages, then falls back to its
// default page for every further call.
type fakeFetcher struct {
	pages      []*models.Page
	defaultTo  *models.Page
	calls      []httpclient.Request
	rotations  int
	warms      int
	resolveTo  string
	resolveErr error
}

func (f *fakeFetcher) next() (*models.Page, error) {
	if len(f.pages) > 0 {
		page := f.pages[0]
		f.pages = f.pages[1:]
		return page, nil
	}
	if f.defaultTo != nil {
		return f.defaultTo, nil
	}
	return nil, errors.New("no scripted page left")
}

func (f *fakeFetcher) Fetch(ctx context.Context, r httpclient.Request) (*models.Page, error) {
	f.calls = append(f.calls, r)
	return f.next()
}

func (f *fakeFetcher) FetchWithRetry(ctx context.Context, r httpclient.Request) (*models.Page, error) {
	f.calls = append(f.calls, r)
	return f.next()
}

func (f *fakeFetcher) Warm(ctx context.Context, homepageURL string) error {
	f.warms++
	return nil
}

func (f *fakeFetcher) RotateIdentity() { f.rotations++ }

func (f *fakeFetcher) ResolveShortURL(ctx context.Context, shortURL string) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return f.resolveTo, nil
}

type fakeBrowserSession struct {
	page *models.Page
}

func (s *fakeBrowserSession) Render(url string) (*models.Page, error) { return s.page, nil }
func (s *fakeBrowserSession) ResolveURL(shortURL string) (string, error) {
	return "", errors.New("not supported")
}
func (s *fakeBrowserSession) Alive() bool        { return true }
func (s *fakeBrowserSession) Age() time.Duration { return 0 }
func (s *fakeBrowserSession) Close()             {}

type fakeBrowserPool struct {
	session  *fakeBrowserSession
	acquires int
	releases int
}

func (p *fakeBrowserPool) Acquire() (browser.PooledSession, error) {
	p.acquires++
	return p.session, nil
}

func (p *fakeBrowserPool) Release(session browser.PooledSession) { p.releases++ }

type countingLimiter struct {
	waits int
}

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.waits++
	return ctx.Err()
}

func (l *countingLimiter) SetDelay(min, max time.Duration) {}

func newTestEngine(fetcher *fakeFetcher, pool SessionPool) *Engine {
	e := New(fetcher, pool, nil, Config{StrategyRetries: 1, StrategyRetryWait: time.Millisecond})
	e.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return e
}

func TestValidateURL(t *testing.T) {
	site, err := ValidateURL(testProductURL)
	require.NoError(t, err)
	assert.Equal(t, models.SiteAmazon, site)

	_, err = ValidateURL("https://example.com/dp/B0ABCDE123")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestInvalidURLFailsFast(t *testing.T) {
	fetcher := &fakeFetcher{}
	e := newTestEngine(fetcher, nil)

	result := e.Extract(context.Background(), "https://example.com/some-product")
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "invalid")
	assert.Empty(t, fetcher.calls)
}

func TestDirectStrategySucceeds(t *testing.T) {
	fetcher := &fakeFetcher{pages: []*models.Page{productPage()}}
	e := newTestEngine(fetcher, nil)

	result := e.Extract(context.Background(), testProductURL)
	require.True(t, result.Success)
	assert.Equal(t, "direct", result.Method)
	assert.Equal(t, 24999.0, result.Price)
	assert.Equal(t, "Sony WH-1000XM5", result.Title)
	assert.True(t, result.InStock)
	assert.Len(t, fetcher.calls, 1)
	assert.Empty(t, fetcher.calls[0].Referer)
}

func TestChallengeRotatesAndEscalates(t *testing.T) {
	// direct hits a challenge, referrer sees a 503 then the real page.
	fetcher := &fakeFetcher{pages: []*models.Page{
		challengePage(),
		serverErrorPage(),
		productPage(),
	}}
	e := newTestEngine(fetcher, nil)

	result := e.Extract(context.Background(), testProductURL)
	require.True(t, result.Success)
	assert.Equal(t, "referrer", result.Method)
	assert.Equal(t, 1, fetcher.rotations)
	require.Len(t, fetcher.calls, 3)
	assert.Equal(t, "https://www.google.com/", fetcher.calls[1].Referer)
	assert.Equal(t, "https://www.google.com/", fetcher.calls[2].Referer)
}

func TestRateLimitedRotatesWithoutRetry(t *testing.T) {
	fetcher := &fakeFetcher{pages: []*models.Page{
		{URL: testProductURL, StatusCode: 429, Body: "slow down"},
		productPage(),
	}}
	e := newTestEngine(fetcher, nil)

	result := e.Extract(context.Background(), testProductURL)
	require.True(t, result.Success)
	assert.Equal(t, "referrer", result.Method)
	assert.Equal(t, 1, fetcher.rotations)
	assert.Len(t, fetcher.calls, 2)
}

func TestWrongPageMovesToNextStrategy(t *testing.T) {
	fetcher := &fakeFetcher{pages: []*models.Page{
		searchResultsPage(),
		productPage(),
	}}
	e := newTestEngine(fetcher, nil)

	result := e.Extract(context.Background(), testProductURL)
	require.True(t, result.Success)
	assert.Equal(t, "referrer", result.Method)
	assert.Zero(t, fetcher.rotations)
}

func TestServerErrorBudgetThenExhaustion(t *testing.T) {
	fetcher := &fakeFetcher{defaultTo: serverErrorPage()}
	e := newTestEngine(fetcher, nil)

	result := e.Extract(context.Background(), testProductURL)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "exhausted")

	// direct, referrer, homepage_warm, mobile, and two alternate URL
	// shapes, each with one same-strategy retry.
	assert.Len(t, fetcher.calls, 12)
	// homepage_warm warms up before each of its two attempts.
	assert.Equal(t, 2, fetcher.warms)
}

func TestHomepageWarmPacesBothRequests(t *testing.T) {
	// direct and referrer hit challenges; homepage_warm lands the page.
	fetcher := &fakeFetcher{pages: []*models.Page{
		challengePage(),
		challengePage(),
		productPage(),
	}}
	limiter := &countingLimiter{}
	e := New(fetcher, nil, limiter, Config{StrategyRetryWait: time.Millisecond})
	e.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	result := e.Extract(context.Background(), testProductURL)
	require.True(t, result.Success)
	assert.Equal(t, "homepage_warm", result.Method)
	assert.Equal(t, 1, fetcher.warms)

	// One wait per strategy attempt, plus one between the homepage
	// warm-up and the product fetch.
	assert.Equal(t, 4, limiter.waits)
}

func TestMobileStrategySetsMobileFlag(t *testing.T) {
	fetcher := &fakeFetcher{pages: []*models.Page{
		challengePage(),
		challengePage(),
		challengePage(),
		productPage(),
	}}
	e := newTestEngine(fetcher, nil)

	result := e.Extract(context.Background(), testProductURL)
	require.True(t, result.Success)
	assert.Equal(t, "mobile", result.Method)
	require.Len(t, fetcher.calls, 4)
	assert.True(t, fetcher.calls[3].Mobile)
}

func TestBrowserStrategyRunsLast(t *testing.T) {
	fetcher := &fakeFetcher{defaultTo: challengePage()}
	pool := &fakeBrowserPool{session: &fakeBrowserSession{page: productPage()}}
	e := newTestEngine(fetcher, pool)

	result := e.Extract(context.Background(), testProductURL)
	require.True(t, result.Success)
	assert.Equal(t, "browser", result.Method)
	assert.Equal(t, 1, pool.acquires)
	assert.Equal(t, 1, pool.releases)
	assert.Len(t, fetcher.calls, 6)
}

func TestShortURLResolvedBeforeFetching(t *testing.T) {
	fetcher := &fakeFetcher{
		resolveTo: testProductURL,
		pages:     []*models.Page{productPage()},
	}
	e := newTestEngine(fetcher, nil)

	result := e.Extract(context.Background(), "https://amzn.in/d/h4K9xyz")
	require.True(t, result.Success)
	assert.Equal(t, testProductURL, result.URL)
	assert.Equal(t, testProductURL, fetcher.calls[0].URL)
}

func TestShortURLResolutionFailureFailsExtraction(t *testing.T) {
	fetcher := &fakeFetcher{resolveErr: errors.New("redirect loop")}
	e := newTestEngine(fetcher, nil)

	result := e.Extract(context.Background(), "https://amzn.in/d/h4K9xyz")
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "short url")
	assert.Empty(t, fetcher.calls)
}

func TestConfidentOutOfStockIsSuccess(t *testing.T) {
	fetcher := &fakeFetcher{pages: []*models.Page{outOfStockPage()}}
	e := newTestEngine(fetcher, nil)

	result := e.Extract(context.Background(), testProductURL)
	require.True(t, result.Success)
	assert.False(t, result.InStock)
	assert.Zero(t, result.Price)
}

func TestCanceledContextStopsLadder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &fakeFetcher{defaultTo: challengePage()}
	e := newTestEngine(fetcher, nil)

	result := e.Extract(ctx, testProductURL)
	assert.False(t, result.Success)
}
