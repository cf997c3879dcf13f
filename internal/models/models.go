package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// UnknownTitle is the sentinel title for extractions that never located
// the product name.
const UnknownTitle = "Unknown Product"

// Site identifies the store an item is tracked on.
type Site string

const (
	SiteAmazon   Site = "amazon"
	SiteFlipkart Site = "flipkart"
)

// Classification is the transient judgment about one fetched document.
type Classification int

const (
	PageUnknown Classification = iota
	PageNormal
	PageBotChallenge
	PageWrongPage
)

func (c Classification) String() string {
	switch c {
	case PageNormal:
		return "normal"
	case PageBotChallenge:
		return "bot_challenge"
	case PageWrongPage:
		return "wrong_page"
	default:
		return "unknown"
	}
}

// Coupon describes a coupon or promotional discount attached to the main
// product. Value is a flat rupee amount unless Percent is set.
type Coupon struct {
	Available   bool    `json:"available"`
	Value       float64 `json:"value"`
	Percent     bool    `json:"percent,omitempty"`
	Description string  `json:"description,omitempty"`
}

// FinalPrice returns the effective price after applying the coupon to the
// given current price. Percentage coupons reduce proportionally, flat coupons
// subtract. A nil or unusable coupon leaves the price unchanged.
func (c *Coupon) FinalPrice(current float64) float64 {
	if c == nil || !c.Available || c.Value <= 0 || current <= 0 {
		return current
	}
	if c.Percent {
		final := current * (1 - c.Value/100)
		if final < 0 {
			return 0
		}
		return final
	}
	final := current - c.Value
	if final < 0 {
		return 0
	}
	return final
}

// ExtractionResult is the engine's output for one fetch cycle. It is
// constructed once per attempt and never mutated afterwards; the caller folds
// it into the tracked item's observed state and discards it.
type ExtractionResult struct {
	Title         string    `json:"title"`
	Price         float64   `json:"price"`
	OriginalPrice float64   `json:"original_price,omitempty"`
	Discount      float64   `json:"discount,omitempty"`
	Coupon        *Coupon   `json:"coupon,omitempty"`
	InStock       bool      `json:"in_stock"`
	URL           string    `json:"url"`
	ImageURL      string    `json:"image_url,omitempty"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
	Method        string    `json:"method,omitempty"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// NewFailedResult builds the terminal failure result returned when every
// strategy has been exhausted.
func NewFailedResult(url, errMsg string) *ExtractionResult {
	return &ExtractionResult{
		Title:     UnknownTitle,
		Price:     0,
		InStock:   false,
		URL:       url,
		Success:   false,
		Error:     errMsg,
		FetchedAt: time.Now(),
	}
}

// HasPrice reports whether the result carries a real price. A price of
// exactly 0 always means "unknown", never "free".
func (r *ExtractionResult) HasPrice() bool {
	return r.Price > 0
}

// TrackedItem is a user's monitoring subscription plus the observed state
// last folded in by the engine.
type TrackedItem struct {
	ID          string  `json:"id"`
	URL         string  `json:"url"`
	Site        Site    `json:"site"`
	TargetPrice float64 `json:"target_price"`
	Tag         string  `json:"tag,omitempty"`

	// Observed state, written only from extraction results.
	Title       string     `json:"title,omitempty"`
	Price       float64    `json:"current_price,omitempty"`
	InStock     *bool      `json:"in_stock,omitempty"`
	Coupon      *Coupon    `json:"coupon_info,omitempty"`
	FinalPrice  float64    `json:"final_price,omitempty"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewTrackedItem creates a subscription with a fresh id. The caller is
// responsible for having validated the URL against a site adapter first.
func NewTrackedItem(url string, site Site, targetPrice float64, tag string) *TrackedItem {
	return &TrackedItem{
		ID:          uuid.New().String(),
		URL:         url,
		Site:        site,
		TargetPrice: targetPrice,
		Tag:         tag,
		CreatedAt:   time.Now(),
	}
}

// ObservedUpdate is the subset of TrackedItem state the engine may change
// after a successful cycle. Nil fields are left untouched so a partial
// extraction never erases previously known values.
type ObservedUpdate struct {
	Title      *string
	Price      *float64
	InStock    *bool
	Coupon     *Coupon
	FinalPrice *float64
}

// Apply folds the update into the item and stamps LastUpdated.
func (u ObservedUpdate) Apply(item *TrackedItem) {
	if u.Title != nil && *u.Title != "" && *u.Title != UnknownTitle {
		item.Title = *u.Title
	}
	if u.Price != nil && *u.Price > 0 {
		item.Price = *u.Price
	}
	if u.InStock != nil {
		item.InStock = u.InStock
	}
	if u.Coupon != nil {
		item.Coupon = u.Coupon
	}
	if u.FinalPrice != nil && *u.FinalPrice > 0 {
		item.FinalPrice = *u.FinalPrice
	}
	now := time.Now()
	item.LastUpdated = &now
}

// trackedItemJSON mirrors TrackedItem but keeps the coupon field loose:
// records written by old releases stored the coupon as a flat string.
type trackedItemJSON struct {
	ID          string          `json:"id"`
	URL         string          `json:"url"`
	Site        Site            `json:"site"`
	StoreType   Site            `json:"store_type,omitempty"` // legacy name for Site
	TargetPrice float64         `json:"target_price"`
	Tag         string          `json:"tag,omitempty"`
	Title       string          `json:"title,omitempty"`
	Price       float64         `json:"current_price,omitempty"`
	InStock     *bool           `json:"in_stock,omitempty"`
	Coupon      json.RawMessage `json:"coupon,omitempty"`
	CouponInfo  *Coupon         `json:"coupon_info,omitempty"`
	FinalPrice  float64         `json:"final_price,omitempty"`
	LastUpdated *time.Time      `json:"last_updated,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// UnmarshalJSON resolves legacy record shapes once at load time: an old flat
// "coupon" string becomes a Coupon descriptor, and the old "store_type" key
// maps onto Site. New-format fields win when both are present.
func (t *TrackedItem) UnmarshalJSON(data []byte) error {
	var raw trackedItemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	t.ID = raw.ID
	t.URL = raw.URL
	t.Site = raw.Site
	if t.Site == "" {
		t.Site = raw.StoreType
	}
	if t.Site == "" {
		t.Site = SiteAmazon
	}
	t.TargetPrice = raw.TargetPrice
	t.Tag = raw.Tag
	t.Title = raw.Title
	t.Price = raw.Price
	t.InStock = raw.InStock
	t.FinalPrice = raw.FinalPrice
	t.LastUpdated = raw.LastUpdated
	t.CreatedAt = raw.CreatedAt

	t.Coupon = raw.CouponInfo
	if t.Coupon == nil && len(raw.Coupon) > 0 {
		t.Coupon = migrateLegacyCoupon(raw.Coupon)
	}

	return nil
}

func migrateLegacyCoupon(raw json.RawMessage) *Coupon {
	// Some very old records stored the structured form under "coupon".
	var structured Coupon
	if err := json.Unmarshal(raw, &structured); err == nil && (structured.Available || structured.Value > 0) {
		return &structured
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil || text == "" {
		return nil
	}
	return &Coupon{Available: true, Description: text}
}
