package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/maltedev/price-tracker/internal/browser"
	"github.com/maltedev/price-tracker/internal/config"
	"github.com/maltedev/price-tracker/internal/engine"
	"github.com/maltedev/price-tracker/internal/httpclient"
	"github.com/maltedev/price-tracker/internal/ratelimit"
)

// One-shot extraction of a single product URL. Useful for verifying
// selectors against a live page without touching the tracked set.
func main() {
	useBrowser := flag.Bool("browser", false, "enable the browser rendering strategy")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall timeout")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: check [-browser] [-timeout 2m] <product-url>")
		os.Exit(2)
	}
	rawURL := flag.Arg(0)

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	fetcher, err := httpclient.New(cfg.Engine.FetchTimeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create http client:", err)
		os.Exit(1)
	}

	var sessionPool engine.SessionPool
	if *useBrowser {
		opts := browser.DefaultOptions()
		opts.Headless = cfg.Browser.Headless
		pool, err := browser.NewPool(opts, 1, cfg.Browser.SessionTTL, cfg.Engine.UserAgents, nil, nil)
		if err != nil {
			fmt.Fprintln(os.Stderr, "browser engine unavailable:", err)
			os.Exit(1)
		}
		defer pool.Close()
		sessionPool = pool
	}

	limiter := ratelimit.NewSimpleRateLimiter(cfg.Engine.RequestDelayMin, cfg.Engine.RequestDelayMax)
	eng := engine.New(fetcher, sessionPool, limiter, engine.Config{
		StrategyRetries:   cfg.Engine.StrategyRetries,
		StrategyRetryWait: cfg.Engine.StrategyRetryWait,
	})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result := eng.Extract(ctx, rawURL)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to render result:", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	if !result.Success {
		os.Exit(1)
	}
}
