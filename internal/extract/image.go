package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var bgImagePattern = regexp.MustCompile(`background-image\s*:\s*url\(['"]?([^'")]+)['"]?\)`)

// Image finds the primary product image URL. Selector ladder first, then
// style-attribute backgrounds, then any large image that looks product-like.
func Image(doc *goquery.Document, sel Selectors) string {
	for _, selector := range sel.Image {
		node := doc.Find(selector).First()
		if node.Length() == 0 {
			continue
		}
		if src := imageSrc(node); src != "" {
			return src
		}
	}

	var fromStyle string
	doc.Find("[style*=background-image]").EachWithBreak(func(_ int, node *goquery.Selection) bool {
		if ExcludedByAncestry(node) {
			return true
		}
		style, _ := node.Attr("style")
		if m := bgImagePattern.FindStringSubmatch(style); m != nil && looksLikeImage(m[1]) {
			fromStyle = m[1]
			return false
		}
		return true
	})
	if fromStyle != "" {
		return fromStyle
	}

	var fallback string
	doc.Find("img").EachWithBreak(func(_ int, node *goquery.Selection) bool {
		if ExcludedByAncestry(node) {
			return true
		}
		src := imageSrc(node)
		if src == "" || !largeEnough(node) {
			return true
		}

		hint := strings.ToLower(src + " " + node.AttrOr("alt", ""))
		if strings.Contains(hint, "logo") || strings.Contains(hint, "icon") ||
			strings.Contains(hint, "banner") || strings.Contains(hint, "sprite") {
			return true
		}
		if strings.Contains(hint, "product") || strings.Contains(hint, "item") ||
			strings.Contains(hint, "/images/i/") {
			fallback = src
			return false
		}
		return true
	})

	return fallback
}

func imageSrc(node *goquery.Selection) string {
	src := firstAttr(node, "data-old-hires", "data-src", "src")
	if !looksLikeImage(src) {
		return ""
	}
	return src
}

func looksLikeImage(src string) bool {
	if src == "" || strings.HasPrefix(src, "data:") {
		return false
	}
	return strings.HasPrefix(src, "http") || strings.HasPrefix(src, "//")
}

func largeEnough(node *goquery.Selection) bool {
	width := attrInt(node, "width")
	height := attrInt(node, "height")
	if width == 0 && height == 0 {
		// No declared size; let the URL/alt heuristics decide.
		return true
	}
	return width > 100 && height > 100
}

func attrInt(node *goquery.Selection, name string) int {
	v, ok := node.Attr(name)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}
