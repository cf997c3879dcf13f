package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Stock classifies availability. Signal priority:
//
//  1. explicit unavailable block in the main product region => out
//  2. no purchase control anywhere => out
//  3. enabled purchase control with purchase-affirming text => in
//  4. positive availability phrasing => in
//  5. quantity selector present => in
//  6. no signal => in (optimistic default)
func Stock(doc *goquery.Document, sel Selectors) bool {
	if explicitlyUnavailable(doc, sel) {
		return false
	}

	buyControl := findBuyControl(doc, sel)
	if buyControl == nil {
		return false
	}

	if !buyControlDisabled(buyControl) && purchaseAffirming(buyControl) {
		return true
	}

	body := strings.ToLower(doc.Find("body").Text())
	for _, phrase := range sel.AvailableText {
		if strings.Contains(body, strings.ToLower(phrase)) {
			return true
		}
	}

	for _, selector := range sel.Quantity {
		if doc.Find(selector).Length() > 0 {
			return true
		}
	}

	return true
}

func explicitlyUnavailable(doc *goquery.Document, sel Selectors) bool {
	for _, selector := range sel.UnavailableSel {
		var hit bool
		doc.Find(selector).EachWithBreak(func(_ int, node *goquery.Selection) bool {
			if ExcludedByAncestry(node) {
				return true
			}
			text := strings.ToLower(node.Text())
			for _, phrase := range sel.UnavailableText {
				if strings.Contains(text, strings.ToLower(phrase)) {
					hit = true
					return false
				}
			}
			return true
		})
		if hit {
			return true
		}
	}
	return false
}

func findBuyControl(doc *goquery.Document, sel Selectors) *goquery.Selection {
	for _, selector := range sel.BuyButtons {
		node := doc.Find(selector).First()
		if node.Length() > 0 {
			return node
		}
	}
	return nil
}

func buyControlDisabled(node *goquery.Selection) bool {
	if _, ok := node.Attr("disabled"); ok {
		return true
	}
	class, _ := node.Attr("class")
	return strings.Contains(strings.ToLower(class), "disabled")
}

var purchasePhrases = []string{
	"add to cart",
	"add to basket",
	"buy now",
	"go to cart",
	"place order",
}

// purchaseAffirming reports whether a buy control actually sells. Sites
// reuse the buy-button slot for "Notify Me" and "See Similar Items" when a
// listing is dead, so an enabled control alone proves nothing.
func purchaseAffirming(node *goquery.Selection) bool {
	label := strings.ToLower(strings.Join([]string{
		node.Text(),
		node.AttrOr("value", ""),
		node.AttrOr("aria-label", ""),
	}, " "))

	for _, phrase := range purchasePhrases {
		if strings.Contains(label, phrase) {
			return true
		}
	}
	return false
}
