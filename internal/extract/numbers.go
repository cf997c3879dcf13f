package extract

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Prices above this are parse garbage, not real listings.
const maxPlausiblePrice = 50_000_000

var (
	ErrNoPrice = errors.New("no parseable price")

	// First numeric token with optional thousands separators. Matching a
	// token instead of stripping characters keeps "Rs. 999" from turning
	// into ".999".
	numberPattern  = regexp.MustCompile(`(\d+(?:,\d{2,3})*(?:\.\d+)?)`)
	percentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
)

// ParsePrice pulls the first positive price out of rupee-formatted text.
// Handles "₹12,345.67", "Rs. 999", and bare "12345".
func ParsePrice(text string) (float64, error) {
	match := numberPattern.FindString(text)
	if match == "" {
		return 0, ErrNoPrice
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0, ErrNoPrice
	}

	if value <= 0 || value > maxPlausiblePrice {
		return 0, ErrNoPrice
	}

	return value, nil
}

// ParsePercent pulls a percentage figure out of text like "12% off".
func ParsePercent(text string) (float64, error) {
	m := percentPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, ErrNoPrice
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil || value <= 0 || value >= 100 {
		return 0, ErrNoPrice
	}

	return value, nil
}

// roundDiscount rounds a discount percentage to one decimal place.
func roundDiscount(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
