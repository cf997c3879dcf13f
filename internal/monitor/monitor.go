package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/maltedev/price-tracker/internal/models"
	"github.com/maltedev/price-tracker/internal/notify"
	"github.com/maltedev/price-tracker/internal/ratelimit"
	"github.com/maltedev/price-tracker/internal/store"
)

// Extractor runs one extraction cycle. *engine.Engine satisfies it.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) *models.ExtractionResult
}

// Notifier fans a drop event out to the configured channels.
type Notifier interface {
	Notify(ctx context.Context, event notify.Event)
}

type Config struct {
	Schedule     string
	ItemTimeout  time.Duration
	ItemDelayMin time.Duration
	ItemDelayMax time.Duration
}

// Monitor runs polling passes over the tracked items on a cron cadence.
// Items are processed sequentially; concurrent requests against the same
// site sharply raise bot-detection risk.
type Monitor struct {
	store    store.ItemStore
	engine   Extractor
	notifier Notifier
	limiter  *ratelimit.AdaptiveRateLimiter
	cfg      Config
	cron     *cron.Cron
	running  atomic.Bool
	logger   *slog.Logger
}

func New(itemStore store.ItemStore, engine Extractor, notifier Notifier, cfg Config) *Monitor {
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = 90 * time.Second
	}
	return &Monitor{
		store:    itemStore,
		engine:   engine,
		notifier: notifier,
		limiter:  ratelimit.NewAdaptiveRateLimiter(cfg.ItemDelayMin, cfg.ItemDelayMax),
		cfg:      cfg,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "monitor"),
	}
}

// Start schedules polling passes. The first pass runs on the first tick,
// not immediately, so startup stays quiet.
func (m *Monitor) Start(ctx context.Context) error {
	_, err := m.cron.AddFunc(m.cfg.Schedule, func() {
		if err := m.RunPass(ctx); err != nil {
			m.logger.Error("polling pass failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", m.cfg.Schedule, err)
	}

	m.cron.Start()
	m.logger.Info("monitor started", "schedule", m.cfg.Schedule)
	return nil
}

func (m *Monitor) Stop() {
	stopCtx := m.cron.Stop()
	<-stopCtx.Done()
	m.logger.Info("monitor stopped")
}

// RunPass processes every tracked item once. One item's failure never
// aborts the rest of the pass. Overlapping passes are skipped outright.
func (m *Monitor) RunPass(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		m.logger.Warn("previous pass still running, skipping")
		return nil
	}
	defer m.running.Store(false)

	// Reload first: the store file may have been edited externally.
	if err := m.store.Reload(ctx); err != nil {
		return fmt.Errorf("failed to reload store: %w", err)
	}

	items, err := m.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}

	m.logger.Info("polling pass started", "items", len(items))
	start := time.Now()

	var checked, dropped int
	for i, item := range items {
		if ctx.Err() != nil {
			m.logger.Info("polling pass cancelled")
			break
		}

		if i > 0 {
			if err := m.limiter.Wait(ctx); err != nil {
				break
			}
		}

		wasDrop := m.checkItem(ctx, item)
		checked++
		if wasDrop {
			dropped++
		}
	}

	m.logger.Info("polling pass finished",
		"checked", checked,
		"drops", dropped,
		"duration", time.Since(start),
	)
	return nil
}

// checkItem runs one item's extraction cycle end to end and reports whether
// a drop notification fired.
func (m *Monitor) checkItem(ctx context.Context, item *models.TrackedItem) (wasDrop bool) {
	log := m.logger.With("item_id", item.ID, "url", item.URL)

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while checking item", "panic", r)
		}
	}()

	itemCtx, cancel := context.WithTimeout(ctx, m.cfg.ItemTimeout)
	defer cancel()

	result := m.engine.Extract(itemCtx, item.URL)
	if !result.Success {
		// Observed state stays untouched; a failed cycle must not zero a
		// previously known price.
		log.Warn("extraction cycle failed", "error", result.Error)
		m.limiter.RecordError()
		return false
	}
	m.limiter.RecordSuccess()

	dropped := PriceDropped(result.Price, item.TargetPrice)

	if err := m.store.UpdateObserved(ctx, item.ID, updateFromResult(result)); err != nil {
		log.Error("failed to persist observed state", "error", err)
	}

	if dropped {
		log.Info("target price reached", "price", result.Price, "target", item.TargetPrice)
		m.notifier.Notify(ctx, notify.NewEvent(item, result))
		return true
	}
	return false
}

// CheckNow runs one immediate extraction cycle for a single item, outside
// the schedule. Used by the admin API.
func (m *Monitor) CheckNow(ctx context.Context, id string) (*models.ExtractionResult, error) {
	item, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	itemCtx, cancel := context.WithTimeout(ctx, m.cfg.ItemTimeout)
	defer cancel()

	result := m.engine.Extract(itemCtx, item.URL)
	if result.Success {
		if err := m.store.UpdateObserved(ctx, item.ID, updateFromResult(result)); err != nil {
			m.logger.Error("failed to persist observed state", "item_id", id, "error", err)
		}
		if PriceDropped(result.Price, item.TargetPrice) {
			m.notifier.Notify(ctx, notify.NewEvent(item, result))
		}
	}
	return result, nil
}

// PriceDropped is the sole drop trigger: a real price at or below a real
// target. Unknown prices (0) never trigger.
func PriceDropped(currentPrice, targetPrice float64) bool {
	return currentPrice > 0 && targetPrice > 0 && currentPrice <= targetPrice
}

func updateFromResult(result *models.ExtractionResult) models.ObservedUpdate {
	update := models.ObservedUpdate{
		InStock: &result.InStock,
	}
	if result.Title != "" && result.Title != models.UnknownTitle {
		update.Title = &result.Title
	}
	if result.Price > 0 {
		update.Price = &result.Price
	}
	if result.Coupon != nil {
		update.Coupon = result.Coupon
		final := result.Coupon.FinalPrice(result.Price)
		if final > 0 {
			update.FinalPrice = &final
		}
	}
	return update
}
