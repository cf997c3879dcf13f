package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Title returns the main product title, or "" when none of the selectors
// yield a usable value. Generic site names (the homepage <title>) are
// rejected so a redirect to the storefront never masquerades as a product.
func Title(doc *goquery.Document, sel Selectors) string {
	for _, selector := range sel.Title {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if usableTitle(text, sel.GenericTitles) {
			return collapseWhitespace(text)
		}
	}

	// Page <title> as last resort, with suffix junk trimmed.
	text := strings.TrimSpace(doc.Find("title").First().Text())
	for _, sep := range []string{" | ", " - Buy ", ": Amazon", " : "} {
		if i := strings.Index(text, sep); i > 0 {
			text = text[:i]
		}
	}
	if usableTitle(text, sel.GenericTitles) {
		return collapseWhitespace(text)
	}

	return ""
}

// titleNode returns the selection holding the title, for proximity-based
// price and coupon searches.
func titleNode(doc *goquery.Document, sel Selectors) *goquery.Selection {
	for _, selector := range sel.Title {
		node := doc.Find(selector).First()
		if node.Length() > 0 && strings.TrimSpace(node.Text()) != "" {
			return node
		}
	}
	return nil
}

func usableTitle(text string, generic []string) bool {
	if len(text) < 4 {
		return false
	}
	lower := strings.ToLower(text)
	for _, g := range generic {
		if lower == strings.ToLower(g) {
			return false
		}
	}
	return true
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
