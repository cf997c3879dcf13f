package sites

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/maltedev/price-tracker/internal/classifier"
	"github.com/maltedev/price-tracker/internal/extract"
	"github.com/maltedev/price-tracker/internal/models"
)

var itmPattern = regexp.MustCompile(`/p/(itm[0-9A-Za-z]+)`)

var flipkartExcludedPaths = []string{
	"/cart", "/viewcart", "/account", "/wishlist", "/checkout",
}

type flipkartAdapter struct{}

func (f *flipkartAdapter) Site() models.Site { return models.SiteFlipkart }

func (f *flipkartAdapter) Valid(rawURL string) bool {
	if hostOf(rawURL) != "flipkart.com" {
		return false
	}
	path := pathOf(rawURL)
	if hasExcludedPath(path, flipkartExcludedPaths) {
		return false
	}
	return f.CanonicalID(rawURL) != ""
}

func (f *flipkartAdapter) CanonicalID(rawURL string) string {
	if m := itmPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	if u, err := url.Parse(rawURL); err == nil {
		if pid := u.Query().Get("pid"); pid != "" {
			return pid
		}
	}
	return ""
}

func (f *flipkartAdapter) CanonicalURL(rawURL string) string {
	// Flipkart needs the slug segment; strip only the tracking query.
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := url.Values{}
	if pid := u.Query().Get("pid"); pid != "" {
		q.Set("pid", pid)
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String()
}

func (f *flipkartAdapter) URLVariants(rawURL string) []string {
	canonical := f.CanonicalURL(rawURL)
	variants := []string{canonical}

	u, err := url.Parse(canonical)
	if err != nil {
		return variants
	}
	if pid := u.Query().Get("pid"); pid == "" {
		if id := f.CanonicalID(rawURL); id != "" {
			variants = append(variants, fmt.Sprintf("%s?pid=%s", canonical, id))
		}
	}
	return variants
}

// dl.flipkart.com/s/… share links redirect to the real product URL.
func (f *flipkartAdapter) IsShortURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Hostname() == "dl.flipkart.com"
}

func (f *flipkartAdapter) Homepage() string { return "https://www.flipkart.com/" }
func (f *flipkartAdapter) Referer() string  { return "https://www.google.com/" }

func (f *flipkartAdapter) Selectors() extract.Selectors {
	return extract.Selectors{
		Title: []string{
			"span.B_NuCI",
			"span.VU-ZEz",
			"h1.yhB1nd",
			"h1._6EBuvT",
		},
		GenericTitles: []string{
			"Flipkart.com",
			"Online Shopping Site for Mobiles, Electronics, Furniture, Grocery, Lifestyle, Books & More. Best Offers!",
		},
		PriceCore: []string{
			"div._25b18c",
			"div.dyC4hf",
			"div.C7fEHH",
			"div.x\\+7QT1",
		},
		PriceScoped: []string{
			"div._30jeq3._16Jk6d",
			"div._30jeq3",
			"div.Nx9bqj.CxhGGd",
			"div.Nx9bqj",
		},
		StrikePrice: []string{
			"div._3I9_wc._2p6lqe",
			"div._3I9_wc",
			"div.yRaY8j",
		},
		Discount: []string{
			"div._3Ay6Sb span",
			"div.UkUFwK span",
		},
		CouponRegions: []string{
			"div._25b18c",
			"div.dyC4hf",
			"div._16eBzU",
		},
		BuyButtons: []string{
			"button._2KpZ6l._2U9uOA",
			"button._2KpZ6l._2AkmmA",
			"button.QqFHMw",
			"button[class*='_2KpZ6l']",
		},
		UnavailableSel: []string{
			"div._16FRp0",
			"div.Z8JjpR",
			"div._1dVbu9",
		},
		UnavailableText: []string{
			"sold out",
			"currently unavailable",
			"this item is currently out of stock",
			"notify me",
		},
		AvailableText: []string{
			"in stock",
			"delivery by",
			"usually delivered in",
		},
		Quantity: []string{
			"select._3tjryd",
		},
		Image: []string{
			"img._396cs4",
			"img.DByuf4",
			"img._2r_T1I",
		},
	}
}

func (f *flipkartAdapter) Hints() classifier.Hints {
	return classifier.Hints{
		ChallengeText: []string{
			"please verify you are a human",
			"are you a human",
			"captcha",
			"unusual traffic",
		},
		ChallengeTitles: []string{
			"access denied",
			"retry",
		},
		ChallengeSel: []string{
			`img[src*="captcha"]`,
			`form[action*="captcha"]`,
		},
		ProductMarkers: []string{
			"span.B_NuCI",
			"span.VU-ZEz",
			"h1.yhB1nd",
			"div._30jeq3",
			"div.Nx9bqj",
		},
		SearchMarkers: []string{
			"div._1YokD2._3Mn1Gg",
			"div._1AtVbE",
			"div[data-id]",
		},
		NotFoundText: []string{
			"page not found",
			"unfortunately the page you are looking for has been moved or deleted",
		},
		MinBodyBytes: 4096,
	}
}
