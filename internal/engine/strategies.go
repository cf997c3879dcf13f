package engine

import (
	"context"
	"fmt"

	"github.com/maltedev/price-tracker/internal/httpclient"
	"github.com/maltedev/price-tracker/internal/models"
	"github.com/maltedev/price-tracker/internal/sites"
)

// boundStrategy is one fetch approach bound to a concrete URL. Order
// matters: cheapest and least conspicuous first, full browser rendering
// last.
type boundStrategy struct {
	name  string
	fetch func(ctx context.Context) (*models.Page, error)
}

func (e *Engine) buildStrategies(adapter sites.Adapter, canonical string) []boundStrategy {
	strategies := []boundStrategy{
		{
			name: "direct",
			fetch: func(ctx context.Context) (*models.Page, error) {
				return e.fetcher.FetchWithRetry(ctx, httpclient.Request{URL: canonical})
			},
		},
		{
			name: "referrer",
			fetch: func(ctx context.Context) (*models.Page, error) {
				return e.fetcher.FetchWithRetry(ctx, httpclient.Request{
					URL:     canonical,
					Referer: adapter.Referer(),
				})
			},
		},
		{
			name: "homepage_warm",
			fetch: func(ctx context.Context) (*models.Page, error) {
				if err := e.fetcher.Warm(ctx, adapter.Homepage()); err != nil {
					e.logger.Debug("homepage warmup failed", "error", err)
				}
				// The warm-up was its own request; pace again before
				// hitting the product page.
				if err := e.pace(ctx); err != nil {
					return nil, err
				}
				return e.fetcher.FetchWithRetry(ctx, httpclient.Request{
					URL:     canonical,
					Referer: adapter.Homepage(),
				})
			},
		},
		{
			name: "mobile",
			fetch: func(ctx context.Context) (*models.Page, error) {
				return e.fetcher.FetchWithRetry(ctx, httpclient.Request{
					URL:    canonical,
					Mobile: true,
				})
			},
		},
	}

	for i, variant := range adapter.URLVariants(canonical) {
		if variant == canonical {
			continue
		}
		variant := variant
		strategies = append(strategies, boundStrategy{
			name: fmt.Sprintf("alt_url_%d", i+1),
			fetch: func(ctx context.Context) (*models.Page, error) {
				return e.fetcher.FetchWithRetry(ctx, httpclient.Request{URL: variant})
			},
		})
	}

	if e.pool != nil {
		strategies = append(strategies, boundStrategy{
			name: "browser",
			fetch: func(ctx context.Context) (*models.Page, error) {
				session, err := e.pool.Acquire()
				if err != nil {
					return nil, fmt.Errorf("browser session unavailable: %w", err)
				}
				defer e.pool.Release(session)
				return session.Render(canonical)
			},
		})
	}

	return strategies
}
