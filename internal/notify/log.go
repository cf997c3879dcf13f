package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes drop events to the process log. Always configured, so
// a deployment with no delivery channels still records every drop.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: slog.Default().With("component", "log_notifier")}
}

func (l *LogNotifier) Name() string { return "log" }

func (l *LogNotifier) Notify(ctx context.Context, event Event) error {
	l.logger.Info("price drop",
		"item_id", event.ItemID,
		"title", event.Title,
		"price", event.Price,
		"target_price", event.TargetPrice,
		"coupon", event.Coupon,
		"url", event.URL,
	)
	return nil
}
