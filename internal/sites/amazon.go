package sites

import (
	"fmt"
	"regexp"

	"github.com/maltedev/price-tracker/internal/classifier"
	"github.com/maltedev/price-tracker/internal/extract"
	"github.com/maltedev/price-tracker/internal/models"
)

var (
	asinPattern      = regexp.MustCompile(`/(?:dp|gp/product|gp/aw/d|d)/([A-Z0-9]{10})(?:[/?]|$)`)
	asinQueryPattern = regexp.MustCompile(`[?&]asin=([A-Z0-9]{10})`)
)

var amazonExcludedPaths = []string{
	"/cart", "/gp/cart", "/gp/css", "/ap/signin", "/wishlist",
	"/hz/wishlist", "/gp/registry", "/your-account",
}

type amazonAdapter struct{}

func (a *amazonAdapter) Site() models.Site { return models.SiteAmazon }

func (a *amazonAdapter) Valid(rawURL string) bool {
	host := hostOf(rawURL)
	if host != "amazon.in" && host != "amazon.com" {
		return false
	}
	path := pathOf(rawURL)
	if hasExcludedPath(path, amazonExcludedPaths) {
		return false
	}
	return a.CanonicalID(rawURL) != ""
}

func (a *amazonAdapter) CanonicalID(rawURL string) string {
	if m := asinPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	if m := asinQueryPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return ""
}

func (a *amazonAdapter) CanonicalURL(rawURL string) string {
	asin := a.CanonicalID(rawURL)
	if asin == "" {
		return rawURL
	}
	return fmt.Sprintf("https://www.amazon.in/dp/%s", asin)
}

func (a *amazonAdapter) URLVariants(rawURL string) []string {
	asin := a.CanonicalID(rawURL)
	if asin == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("https://www.amazon.in/dp/%s", asin),
		fmt.Sprintf("https://www.amazon.in/gp/product/%s", asin),
		fmt.Sprintf("https://www.amazon.in/gp/aw/d/%s", asin),
	}
}

func (a *amazonAdapter) IsShortURL(rawURL string) bool {
	host := hostOf(rawURL)
	return host == "amzn.in" || host == "amzn.to" || host == "amzn.eu"
}

func (a *amazonAdapter) Homepage() string { return "https://www.amazon.in/" }
func (a *amazonAdapter) Referer() string  { return "https://www.google.com/" }

func (a *amazonAdapter) Selectors() extract.Selectors {
	return extract.Selectors{
		Title: []string{
			"#productTitle",
			"span#productTitle",
			"h1#title",
			"#title h1",
			"h1.a-size-large",
		},
		GenericTitles: []string{
			"Amazon.in",
			"Amazon.com",
			"Online Shopping site in India: Shop Online for Mobiles, Books, Watches, Shoes and More",
		},
		PriceCore: []string{
			"#corePriceDisplay_desktop_feature_div",
			"#corePrice_feature_div",
			"#apex_desktop",
			"#priceblock_ourprice_row",
		},
		PriceScoped: []string{
			".priceToPay .a-offscreen",
			".a-price:not(.a-text-price) .a-offscreen",
			"#priceblock_ourprice",
			"#priceblock_dealprice",
			"span.a-price-whole",
		},
		StrikePrice: []string{
			".basisPrice .a-offscreen",
			".a-price.a-text-price .a-offscreen",
			"span.a-text-price .a-offscreen",
		},
		Discount: []string{
			".savingsPercentage",
			".savingPriceOverride",
		},
		CouponRegions: []string{
			"#promoPriceBlockMessage_feature_div",
			"#couponBadgeRegularVpc",
			"#vpcButton",
			"#applicable_promotion_list_sec",
			"#corePriceDisplay_desktop_feature_div",
		},
		BuyButtons: []string{
			"#add-to-cart-button",
			"#buy-now-button",
			"input#add-to-cart-button",
		},
		UnavailableSel: []string{
			"#availability",
			"#availabilityInsideBuyBox_feature_div",
			"#outOfStock",
		},
		UnavailableText: []string{
			"currently unavailable",
			"out of stock",
			"temporarily out of stock",
			"we don't know when or if this item will be back in stock",
		},
		AvailableText: []string{
			"in stock",
			"ships from",
			"delivery by",
			"free delivery",
		},
		Quantity: []string{
			"select#quantity",
			"#quantity",
		},
		Image: []string{
			"#landingImage",
			"img#landingImage",
			"#imgBlkFront",
			"#main-image",
		},
	}
}

func (a *amazonAdapter) Hints() classifier.Hints {
	return classifier.Hints{
		ChallengeText: []string{
			"enter the characters you see below",
			"type the characters you see in this image",
			"robot check",
			"bot check",
			"captcha",
			"to discuss automated access",
		},
		ChallengeTitles: []string{
			"robot check",
			"bot check",
			"sorry! something went wrong",
		},
		ChallengeSel: []string{
			`form[action*="validateCaptcha"]`,
			`img[src*="captcha"]`,
		},
		ProductMarkers: []string{
			"#productTitle",
			"#dp-container",
			"#ppd",
			"#centerCol",
		},
		SearchMarkers: []string{
			".s-main-slot",
			".s-search-results",
			`[data-component-type="s-search-result"]`,
		},
		NotFoundText: []string{
			"page not found",
			"we couldn't find that page",
			"looking for something?",
		},
		MinBodyBytes: 4096,
	}
}
