package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/maltedev/price-tracker/internal/api"
	"github.com/maltedev/price-tracker/internal/browser"
	"github.com/maltedev/price-tracker/internal/config"
	"github.com/maltedev/price-tracker/internal/engine"
	"github.com/maltedev/price-tracker/internal/httpclient"
	"github.com/maltedev/price-tracker/internal/monitor"
	"github.com/maltedev/price-tracker/internal/notify"
	"github.com/maltedev/price-tracker/internal/ratelimit"
	"github.com/maltedev/price-tracker/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	itemStore, err := buildStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open item store", "error", err)
		os.Exit(1)
	}
	defer itemStore.Close()

	fetcher, err := httpclient.New(cfg.Engine.FetchTimeout)
	if err != nil {
		logger.Error("failed to create http client", "error", err)
		os.Exit(1)
	}

	// A browser that cannot start is not fatal for the whole process; the
	// plain-HTTP strategies still run.
	pool := buildBrowserPool(cfg, logger)
	if pool != nil {
		defer pool.Close()
	}

	requestLimiter := ratelimit.NewSimpleRateLimiter(cfg.Engine.RequestDelayMin, cfg.Engine.RequestDelayMax)

	var sessionPool engine.SessionPool
	if pool != nil {
		sessionPool = pool
	}
	eng := engine.New(fetcher, sessionPool, requestLimiter, engine.Config{
		StrategyRetries:   cfg.Engine.StrategyRetries,
		StrategyRetryWait: cfg.Engine.StrategyRetryWait,
	})

	fanout := buildNotifier(cfg, logger)

	mon := monitor.New(itemStore, eng, fanout, monitor.Config{
		Schedule:     cfg.Monitor.Schedule,
		ItemTimeout:  cfg.Monitor.ItemTimeout,
		ItemDelayMin: cfg.Monitor.ItemDelayMin,
		ItemDelayMax: cfg.Monitor.ItemDelayMax,
	})
	if err := mon.Start(ctx); err != nil {
		logger.Error("failed to start monitor", "error", err)
		os.Exit(1)
	}
	defer mon.Stop()

	handlers := api.NewHandlers(itemStore, mon, cancel)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handlers),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigChan:
			logger.Info("shutdown signal received")
			cancel()
		case <-ctx.Done():
			// Restart requested over the admin API.
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("tracker starting",
		"addr", server.Addr,
		"schedule", cfg.Monitor.Schedule,
		"store", cfg.Store.Backend,
	)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("tracker stopped")
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func buildStore(ctx context.Context, cfg *config.Config) (store.ItemStore, error) {
	if cfg.Store.Backend == "postgres" {
		return store.NewPostgresStore(ctx, cfg.Store.Postgres.DSN())
	}
	return store.NewJSONStore(cfg.Store.FilePath)
}

func buildBrowserPool(cfg *config.Config, logger *slog.Logger) *browser.Pool {
	cookies, err := browser.NewCookieStore(cfg.DataDir)
	if err != nil {
		logger.Error("failed to prepare cookie store", "error", err)
		cookies = nil
	}

	opts := browser.DefaultOptions()
	opts.Headless = cfg.Browser.Headless
	opts.Timeout = cfg.Browser.Timeout
	opts.ViewportWidth = cfg.Browser.ViewportWidth
	opts.ViewportHeight = cfg.Browser.ViewportHeight
	opts.AcceptLanguage = cfg.Browser.AcceptLanguage
	opts.TimezoneID = cfg.Browser.TimezoneID
	opts.Locale = cfg.Browser.Locale

	pool, err := browser.NewPool(opts, cfg.Browser.PoolSize, cfg.Browser.SessionTTL,
		cfg.Engine.UserAgents, cookies, []string{"amazon", "flipkart"})
	if err != nil {
		logger.Error("browser engine unavailable, running without browser strategy", "error", err)
		return nil
	}
	return pool
}

func buildNotifier(cfg *config.Config, logger *slog.Logger) *notify.Fanout {
	notifiers := []notify.Notifier{notify.NewLogNotifier()}

	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != 0 {
		tg, err := notify.NewTelegramNotifier(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID)
		if err != nil {
			logger.Error("telegram notifier unavailable", "error", err)
		} else {
			notifiers = append(notifiers, tg)
		}
	}

	if cfg.Notify.RedisAddr != "" {
		notifiers = append(notifiers, notify.NewStreamNotifier(cfg.Notify.RedisAddr, cfg.Notify.RedisStream))
	}

	return notify.NewFanout(cfg.Notify.Timeout, notifiers...)
}
