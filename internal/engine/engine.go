package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/price-tracker/internal/browser"
	"github.com/maltedev/price-tracker/internal/classifier"
	"github.com/maltedev/price-tracker/internal/extract"
	"github.com/maltedev/price-tracker/internal/httpclient"
	"github.com/maltedev/price-tracker/internal/models"
	"github.com/maltedev/price-tracker/internal/ratelimit"
	"github.com/maltedev/price-tracker/internal/sites"
)

var (
	ErrInvalidURL          = errors.New("invalid or unsupported product url")
	ErrExhaustedStrategies = errors.New("all strategies exhausted")
)

// Fetcher is the plain-HTTP side of the engine. *httpclient.Client
// satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, r httpclient.Request) (*models.Page, error)
	FetchWithRetry(ctx context.Context, r httpclient.Request) (*models.Page, error)
	Warm(ctx context.Context, homepageURL string) error
	RotateIdentity()
	ResolveShortURL(ctx context.Context, shortURL string) (string, error)
}

// SessionPool is the browser side. *browser.Pool satisfies it; a nil pool
// disables the browser strategy.
type SessionPool interface {
	Acquire() (browser.PooledSession, error)
	Release(session browser.PooledSession)
}

type Config struct {
	// Same-strategy retries when a strategy sees a 5xx.
	StrategyRetries   int
	StrategyRetryWait time.Duration
}

// Engine runs the layered fetch-and-parse pipeline: cheap plain-HTTP
// strategies first, escalating to browser rendering only when needed.
type Engine struct {
	fetcher    Fetcher
	pool       SessionPool
	classifier *classifier.Classifier
	limiter    ratelimit.RateLimiter
	cfg        Config
	logger     *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

func New(fetcher Fetcher, pool SessionPool, limiter ratelimit.RateLimiter, cfg Config) *Engine {
	if cfg.StrategyRetryWait <= 0 {
		cfg.StrategyRetryWait = 5 * time.Second
	}
	return &Engine{
		fetcher:    fetcher,
		pool:       pool,
		classifier: classifier.New(),
		limiter:    limiter,
		cfg:        cfg,
		logger:     slog.Default().With("component", "engine"),
		sleep:      sleepCtx,
	}
}

// ValidateURL checks a URL at item-creation time without any network call.
func ValidateURL(rawURL string) (models.Site, error) {
	adapter, err := sites.ForURL(rawURL)
	if err != nil {
		return "", ErrInvalidURL
	}
	return adapter.Site(), nil
}

// Extract runs the full strategy ladder for one product URL. It never
// returns an error for extraction trouble; failures come back as a result
// with Success=false so the polling loop can log and move on.
func (e *Engine) Extract(ctx context.Context, rawURL string) *models.ExtractionResult {
	adapter, err := sites.ForURL(rawURL)
	if err != nil {
		return models.NewFailedResult(rawURL, ErrInvalidURL.Error())
	}

	if adapter.IsShortURL(rawURL) {
		resolved, err := e.resolveShortURL(ctx, rawURL)
		if err != nil {
			return models.NewFailedResult(rawURL, fmt.Sprintf("failed to resolve short url: %v", err))
		}
		rawURL = resolved
		if adapter, err = sites.ForURL(rawURL); err != nil {
			return models.NewFailedResult(rawURL, ErrInvalidURL.Error())
		}
	}

	canonical := adapter.CanonicalURL(rawURL)
	expectedID := adapter.CanonicalID(rawURL)

	for _, strat := range e.buildStrategies(adapter, canonical) {
		result := e.runStrategy(ctx, strat, adapter, canonical, expectedID)
		if result != nil {
			return result
		}
		if ctx.Err() != nil {
			return models.NewFailedResult(canonical, ctx.Err().Error())
		}
	}

	e.logger.Warn("extraction failed", "url", canonical, "error", ErrExhaustedStrategies)
	return models.NewFailedResult(canonical, ErrExhaustedStrategies.Error())
}

// runStrategy executes one strategy with its bounded 5xx retry budget.
// A nil return means the strategy gave up and the next one should run.
func (e *Engine) runStrategy(ctx context.Context, strat boundStrategy, adapter sites.Adapter, canonical, expectedID string) *models.ExtractionResult {
	log := e.logger.With("strategy", strat.name, "url", canonical)

	for attempt := 0; attempt <= e.cfg.StrategyRetries; attempt++ {
		if attempt > 0 {
			// 5xx is transient infrastructure trouble, not targeted
			// blocking; fixed delay, same identity.
			if err := e.sleep(ctx, e.cfg.StrategyRetryWait); err != nil {
				return nil
			}
			log.Debug("retrying strategy after server error", "attempt", attempt+1)
		}

		if err := e.pace(ctx); err != nil {
			return nil
		}

		page, err := strat.fetch(ctx)
		if err != nil {
			log.Warn("strategy fetch failed", "error", err)
			return nil
		}

		if page.ServerError() {
			continue
		}
		if page.StatusCode == 429 {
			log.Info("rate limited, rotating identity")
			e.fetcher.RotateIdentity()
			return nil
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Body))
		if err != nil {
			log.Warn("failed to parse page", "error", err)
			return nil
		}

		switch e.classifier.Classify(doc, page.Body, expectedID, adapter.Hints()) {
		case models.PageBotChallenge:
			log.Info("bot challenge detected, rotating identity")
			e.fetcher.RotateIdentity()
			return nil
		case models.PageWrongPage, models.PageUnknown:
			log.Debug("page is not a product page")
			return nil
		}

		if result := e.extractFields(doc, adapter, canonical, strat.name); result != nil {
			log.Info("extraction succeeded",
				"title", result.Title,
				"price", result.Price,
				"in_stock", result.InStock,
			)
			return result
		}

		log.Debug("page looked normal but no price found")
		return nil
	}

	log.Warn("strategy exhausted its server-error retries")
	return nil
}

// extractFields runs the field extractors over a normal page. Success is a
// positive price, or a confident out-of-stock (explicit signals fired, so
// the page is readable even without a displayed price).
func (e *Engine) extractFields(doc *goquery.Document, adapter sites.Adapter, canonical, method string) *models.ExtractionResult {
	sel := adapter.Selectors()

	priceInfo := extract.Price(doc, sel)
	inStock := extract.Stock(doc, sel)

	if priceInfo.Current <= 0 && inStock {
		return nil
	}

	title := extract.Title(doc, sel)
	if title == "" {
		title = models.UnknownTitle
	}

	return &models.ExtractionResult{
		Title:         title,
		Price:         priceInfo.Current,
		OriginalPrice: priceInfo.Original,
		Discount:      priceInfo.Discount,
		Coupon:        extract.Coupon(doc, sel),
		InStock:       inStock,
		URL:           canonical,
		ImageURL:      extract.Image(doc, sel),
		Success:       true,
		Method:        method,
		FetchedAt:     time.Now(),
	}
}

func (e *Engine) resolveShortURL(ctx context.Context, shortURL string) (string, error) {
	resolved, err := e.fetcher.ResolveShortURL(ctx, shortURL)
	if err == nil {
		return resolved, nil
	}

	if e.pool == nil {
		return "", err
	}

	// Some shorteners only redirect for real browsers.
	session, poolErr := e.pool.Acquire()
	if poolErr != nil {
		return "", err
	}
	defer e.pool.Release(session)

	return session.ResolveURL(shortURL)
}

// pace applies the limiter gap before a network request. Every request
// counts, including warm-up visits inside a strategy.
func (e *Engine) pace(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Wait(ctx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
