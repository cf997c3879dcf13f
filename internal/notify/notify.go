package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/maltedev/price-tracker/internal/models"
)

// Event is one price-drop notification.
type Event struct {
	EventID     string    `json:"event_id"`
	ItemID      string    `json:"item_id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Site        string    `json:"site"`
	Price       float64   `json:"price"`
	TargetPrice float64   `json:"target_price"`
	FinalPrice  float64   `json:"final_price,omitempty"`
	Coupon      string    `json:"coupon,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewEvent builds the drop event for an item and the result that triggered it.
func NewEvent(item *models.TrackedItem, result *models.ExtractionResult) Event {
	e := Event{
		EventID:     uuid.New().String(),
		ItemID:      item.ID,
		Title:       result.Title,
		URL:         item.URL,
		Site:        string(item.Site),
		Price:       result.Price,
		TargetPrice: item.TargetPrice,
		Timestamp:   time.Now(),
	}
	if result.Coupon != nil && result.Coupon.Available {
		e.Coupon = result.Coupon.Description
		e.FinalPrice = result.Coupon.FinalPrice(result.Price)
	}
	return e
}

// Message renders the human-readable alert text.
func (e Event) Message() string {
	msg := fmt.Sprintf("Price drop: %s\nNow ₹%.2f (target ₹%.2f)", e.Title, e.Price, e.TargetPrice)
	if e.Coupon != "" {
		msg += fmt.Sprintf("\nCoupon: %s", e.Coupon)
		if e.FinalPrice > 0 {
			msg += fmt.Sprintf(" → ₹%.2f after coupon", e.FinalPrice)
		}
	}
	return msg + "\n" + e.URL
}

// Notifier delivers one event to one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, event Event) error
}

// Fanout delivers to every configured channel, best effort. A failing
// channel is logged and skipped; delivery trouble never propagates into the
// extraction pipeline.
type Fanout struct {
	notifiers []Notifier
	timeout   time.Duration
	logger    *slog.Logger
}

func NewFanout(timeout time.Duration, notifiers ...Notifier) *Fanout {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fanout{
		notifiers: notifiers,
		timeout:   timeout,
		logger:    slog.Default().With("component", "notifier"),
	}
}

func (f *Fanout) Notify(ctx context.Context, event Event) {
	for _, n := range f.notifiers {
		nctx, cancel := context.WithTimeout(ctx, f.timeout)
		if err := n.Notify(nctx, event); err != nil {
			f.logger.Warn("notification delivery failed",
				"channel", n.Name(),
				"item_id", event.ItemID,
				"error", err,
			)
		}
		cancel()
	}
}
