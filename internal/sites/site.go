package sites

import (
	"errors"
	"net/url"
	"strings"

	"github.com/maltedev/price-tracker/internal/classifier"
	"github.com/maltedev/price-tracker/internal/extract"
	"github.com/maltedev/price-tracker/internal/models"
)

var (
	ErrUnsupportedURL = errors.New("url does not match any supported site")
	ErrNotProductURL  = errors.New("url is not a product page")
)

// Adapter encapsulates everything site-specific. The orchestrator,
// classifier, and extractors stay site-agnostic; new stores are added by
// implementing this contract.
type Adapter interface {
	Site() models.Site

	// Valid reports whether the URL points at a product page on this
	// site. Cart, login, and wishlist paths are rejected outright.
	Valid(rawURL string) bool

	// CanonicalID extracts the stable per-product token from the URL,
	// "" when none is found.
	CanonicalID(rawURL string) string

	// CanonicalURL rewrites the URL to its shortest product form.
	// Falls back to the input when the id cannot be extracted.
	CanonicalURL(rawURL string) string

	// URLVariants returns alternate URL shapes for the same product, in
	// the order the orchestrator should try them.
	URLVariants(rawURL string) []string

	// IsShortURL reports whether the URL is a share-link that must be
	// resolved before fetching.
	IsShortURL(rawURL string) bool

	Homepage() string
	Referer() string

	Selectors() extract.Selectors
	Hints() classifier.Hints
}

var registry = []Adapter{
	&amazonAdapter{},
	&flipkartAdapter{},
}

// ForURL picks the adapter whose domain owns the URL.
func ForURL(rawURL string) (Adapter, error) {
	host := hostOf(rawURL)
	if host == "" {
		return nil, ErrUnsupportedURL
	}

	for _, adapter := range registry {
		if adapter.Valid(rawURL) || adapter.IsShortURL(rawURL) {
			return adapter, nil
		}
	}
	return nil, ErrUnsupportedURL
}

// ForSite returns the adapter for a known site identifier.
func ForSite(site models.Site) (Adapter, error) {
	for _, adapter := range registry {
		if adapter.Site() == site {
			return adapter, nil
		}
	}
	return nil, ErrUnsupportedURL
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
}

func pathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Path
}

func hasExcludedPath(path string, excluded []string) bool {
	lower := strings.ToLower(path)
	for _, p := range excluded {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}
