package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/price-tracker/internal/models"
)

var (
	flatCouponPattern    = regexp.MustCompile(`(?i)(?:₹|Rs\.?\s?)\s*([\d,]+)\s*(?:off\s+)?coupon`)
	percentCouponPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*%\s*(?:off\s+)?coupon`)
	couponWordPattern    = regexp.MustCompile(`(?i)\bcoupon\b`)
)

// Coupon finds a coupon attached to the main product. Coupon badges inside
// related/sponsored sections are rejected the same way prices are.
func Coupon(doc *goquery.Document, sel Selectors) *models.Coupon {
	regions := make([]*goquery.Selection, 0, 4)
	for _, selector := range sel.CouponRegions {
		doc.Find(selector).Each(func(_ int, region *goquery.Selection) {
			regions = append(regions, region)
		})
	}
	if title := titleNode(doc, sel); title != nil {
		regions = append(regions, title.Parent())
	}

	for _, region := range regions {
		if ExcludedByAncestry(region) {
			continue
		}
		if coupon := couponFromText(region.Text()); coupon != nil {
			return coupon
		}
		if coupon := couponFromBadge(region); coupon != nil {
			return coupon
		}
	}

	return nil
}

func couponFromText(text string) *models.Coupon {
	if m := flatCouponPattern.FindStringSubmatch(text); m != nil {
		if value, err := ParsePrice(m[1]); err == nil {
			return &models.Coupon{
				Available:   true,
				Value:       value,
				Description: fmt.Sprintf("₹%.0f coupon", value),
			}
		}
	}

	if m := percentCouponPattern.FindStringSubmatch(text); m != nil {
		if pct, err := ParsePercent(m[1] + "%"); err == nil {
			return &models.Coupon{
				Available:   true,
				Value:       pct,
				Percent:     true,
				Description: fmt.Sprintf("%.0f%% off coupon", pct),
			}
		}
	}

	return nil
}

// couponFromBadge handles checkbox/badge elements that carry the coupon
// value in an attribute rather than visible text.
func couponFromBadge(region *goquery.Selection) *models.Coupon {
	var coupon *models.Coupon
	region.Find("input[type=checkbox], [data-coupon], [data-coupon-value]").EachWithBreak(func(_ int, node *goquery.Selection) bool {
		value := firstAttr(node, "data-coupon-value", "data-coupon", "value")
		label := node.AttrOr("aria-label", "")
		if value == "" && !couponWordPattern.MatchString(label) {
			return true
		}

		text := value
		if text == "" {
			text = label
		}
		if parsed, err := ParsePrice(text); err == nil {
			desc := strings.TrimSpace(label)
			if desc == "" {
				desc = fmt.Sprintf("₹%.0f coupon", parsed)
			}
			coupon = &models.Coupon{Available: true, Value: parsed, Description: desc}
			return false
		}
		return true
	})
	return coupon
}

func firstAttr(node *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := node.Attr(name); ok && v != "" {
			return v
		}
	}
	return ""
}
