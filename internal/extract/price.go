package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PriceInfo is the disambiguated pricing for the main product.
type PriceInfo struct {
	Current  float64
	Original float64
	Discount float64
}

var (
	// Rupee-marked price in free text. Plain numbers are too easy to
	// confuse with ratings and counts outside price-specific elements.
	rupeePattern = regexp.MustCompile(`(?:₹|Rs\.?\s?)\s*([\d,]+(?:\.\d+)?)`)

	// Price-ish keys inside inline script payloads, last resort.
	scriptPricePattern = regexp.MustCompile(`"(?:price|currentPrice|dealPrice|priceAmount)"\s*:\s*"?([\d.,]+)`)
)

// Price locates the main product's current price plus original price and
// discount when present. Candidates found inside related/sponsored sections
// are rejected regardless of how price-shaped they look.
func Price(doc *goquery.Document, sel Selectors) PriceInfo {
	info := PriceInfo{}

	info.Current = currentPrice(doc, sel)
	if info.Current <= 0 {
		return info
	}

	info.Original = originalPrice(doc, sel, info.Current)

	if info.Original > info.Current {
		info.Discount = roundDiscount((info.Original - info.Current) / info.Original * 100)
	} else if pct := discountPercent(doc, sel); pct > 0 {
		info.Discount = pct
		info.Original = roundDiscount(info.Current / (1 - pct/100))
	}

	return info
}

func currentPrice(doc *goquery.Document, sel Selectors) float64 {
	if price := structuredDataPrice(doc); price > 0 {
		return price
	}

	// Core buy-box containers.
	for _, container := range sel.PriceCore {
		var found float64
		doc.Find(container).EachWithBreak(func(_ int, region *goquery.Selection) bool {
			if ExcludedByAncestry(region) {
				return true
			}
			if price := priceInRegion(region, sel); price > 0 {
				found = price
				return false
			}
			return true
		})
		if found > 0 {
			return found
		}
	}

	if price := priceNearTitle(doc, sel); price > 0 {
		return price
	}

	// Narrow price selectors, each ancestry-validated.
	for _, selector := range sel.PriceScoped {
		var found float64
		doc.Find(selector).EachWithBreak(func(_ int, node *goquery.Selection) bool {
			if ExcludedByAncestry(node) {
				return true
			}
			if price, err := ParsePrice(node.Text()); err == nil {
				found = price
				return false
			}
			return true
		})
		if found > 0 {
			return found
		}
	}

	return scriptPrice(doc)
}

// structuredDataPrice reads schema.org product metadata. An object typed as
// Product wins over anything untyped.
func structuredDataPrice(doc *goquery.Document) float64 {
	var typed, untyped float64

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, node *goquery.Selection) {
		var payload interface{}
		if err := json.Unmarshal([]byte(node.Text()), &payload); err != nil {
			return
		}
		walkStructuredData(payload, &typed, &untyped)
	})

	if typed > 0 {
		return typed
	}
	return untyped
}

func walkStructuredData(v interface{}, typed, untyped *float64) {
	switch val := v.(type) {
	case []interface{}:
		for _, item := range val {
			walkStructuredData(item, typed, untyped)
		}
	case map[string]interface{}:
		isProduct := false
		if t, ok := val["@type"].(string); ok && strings.EqualFold(t, "Product") {
			isProduct = true
		}

		if price := offersPrice(val); price > 0 {
			if isProduct && *typed == 0 {
				*typed = price
			} else if *untyped == 0 {
				*untyped = price
			}
		}

		if graph, ok := val["@graph"]; ok {
			walkStructuredData(graph, typed, untyped)
		}
	}
}

func offersPrice(obj map[string]interface{}) float64 {
	offers, ok := obj["offers"]
	if !ok {
		return jsonPriceField(obj)
	}

	switch o := offers.(type) {
	case map[string]interface{}:
		return jsonPriceField(o)
	case []interface{}:
		for _, item := range o {
			if m, ok := item.(map[string]interface{}); ok {
				if price := jsonPriceField(m); price > 0 {
					return price
				}
			}
		}
	}
	return 0
}

func jsonPriceField(obj map[string]interface{}) float64 {
	switch p := obj["price"].(type) {
	case float64:
		if p > 0 && p <= maxPlausiblePrice {
			return p
		}
	case string:
		if price, err := ParsePrice(p); err == nil {
			return price
		}
	}
	return 0
}

// priceInRegion finds a price inside one core container: price-specific
// child selectors first, then rupee-marked text.
func priceInRegion(region *goquery.Selection, sel Selectors) float64 {
	for _, selector := range sel.PriceScoped {
		node := region.Find(selector).First()
		if node.Length() == 0 {
			continue
		}
		if price, err := ParsePrice(node.Text()); err == nil {
			return price
		}
	}

	if m := rupeePattern.FindStringSubmatch(region.Text()); m != nil {
		if price, err := ParsePrice(m[1]); err == nil {
			return price
		}
	}
	return 0
}

// priceNearTitle scans a bounded neighborhood around the title node. The
// price block almost always sits within a few siblings of the heading.
func priceNearTitle(doc *goquery.Document, sel Selectors) float64 {
	title := titleNode(doc, sel)
	if title == nil {
		return 0
	}

	scope := title
	for hop := 0; hop < 3; hop++ {
		var found float64
		scope.NextAll().Slice(0, intMin(scope.NextAll().Length(), 4)).EachWithBreak(func(_ int, sib *goquery.Selection) bool {
			if ExcludedByAncestry(sib) {
				return true
			}
			if m := rupeePattern.FindStringSubmatch(sib.Text()); m != nil {
				if price, err := ParsePrice(m[1]); err == nil {
					found = price
					return false
				}
			}
			return true
		})
		if found > 0 {
			return found
		}

		scope = scope.Parent()
		if scope.Length() == 0 {
			break
		}
	}
	return 0
}

func scriptPrice(doc *goquery.Document) float64 {
	var found float64
	doc.Find("script").EachWithBreak(func(_ int, node *goquery.Selection) bool {
		if m := scriptPricePattern.FindStringSubmatch(node.Text()); m != nil {
			if price, err := ParsePrice(m[1]); err == nil {
				found = price
				return false
			}
		}
		return true
	})
	return found
}

func originalPrice(doc *goquery.Document, sel Selectors, current float64) float64 {
	for _, selector := range sel.StrikePrice {
		var found float64
		doc.Find(selector).EachWithBreak(func(_ int, node *goquery.Selection) bool {
			if ExcludedByAncestry(node) {
				return true
			}
			if price, err := ParsePrice(node.Text()); err == nil && price > current {
				found = price
				return false
			}
			return true
		})
		if found > 0 {
			return found
		}
	}
	return 0
}

func discountPercent(doc *goquery.Document, sel Selectors) float64 {
	for _, selector := range sel.Discount {
		var found float64
		doc.Find(selector).EachWithBreak(func(_ int, node *goquery.Selection) bool {
			if ExcludedByAncestry(node) {
				return true
			}
			if pct, err := ParsePercent(node.Text()); err == nil {
				found = pct
				return false
			}
			return true
		})
		if found > 0 {
			return found
		}
	}
	return 0
}

func intMin(a, b int) int {
	if a < b {
		return a
	}
	return b
}
