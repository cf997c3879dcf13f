package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// How many parents to inspect before trusting a candidate element.
const maxAncestorHops = 6

// Class and id fragments that mark a container as holding someone else's
// product. A price found under one of these is never the main price.
var excludedContainerMarkers = []string{
	"related",
	"sponsored",
	"similar",
	"recommend",
	"comparison",
	"compare",
	"carousel",
	"bundle",
	"upsell",
	"cross-sell",
	"crosssell",
	"also-bought",
	"also-viewed",
	"p13n",
	"sims-",
	"session-sims",
	"advertis",
}

// Heading text that marks a section as a related-products widget even when
// its class names are opaque.
var excludedHeadingMarkers = []string{
	"customers also",
	"frequently bought together",
	"products related",
	"similar products",
	"similar items",
	"you may also like",
	"compare with similar",
	"sponsored",
	"recently viewed",
}

// ExcludedByAncestry reports whether the candidate, or any bounded
// ancestor, belongs to a related/sponsored/comparison section.
func ExcludedByAncestry(sel *goquery.Selection) bool {
	if markerInAttrs(sel) {
		return true
	}

	node := sel
	for hop := 0; hop < maxAncestorHops; hop++ {
		node = node.Parent()
		if node.Length() == 0 {
			return false
		}

		if markerInAttrs(node) {
			return true
		}

		// Section headings sit as the container's first heading child.
		heading := strings.ToLower(strings.TrimSpace(node.ChildrenFiltered("h1, h2, h3, h4, .a-carousel-heading").First().Text()))
		if heading != "" {
			for _, marker := range excludedHeadingMarkers {
				if strings.Contains(heading, marker) {
					return true
				}
			}
		}
	}
	return false
}

func markerInAttrs(node *goquery.Selection) bool {
	class, _ := node.Attr("class")
	id, _ := node.Attr("id")
	attrs := strings.ToLower(class + " " + id)
	if attrs == " " {
		return false
	}

	for _, marker := range excludedContainerMarkers {
		if strings.Contains(attrs, marker) {
			return true
		}
	}
	return false
}
