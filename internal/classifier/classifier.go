package classifier

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/price-tracker/internal/models"
)

// Hints carries the site-specific markers the classifier matches against.
type Hints struct {
	ChallengeText   []string
	ChallengeTitles []string
	ChallengeSel    []string
	ProductMarkers  []string
	SearchMarkers   []string
	NotFoundText    []string

	// Responses shorter than this without a product marker are treated as
	// challenge interstitials.
	MinBodyBytes int
}

type Classifier struct {
	logger *slog.Logger
}

func New() *Classifier {
	return &Classifier{
		logger: slog.Default().With("component", "classifier"),
	}
}

// Classify judges one fetched document. expectedID, when non-empty, is the
// canonical product token from the URL; a page that cannot be verified
// against it still passes as normal with a warning, since verification
// coverage is incomplete across page variants.
func (c *Classifier) Classify(doc *goquery.Document, rawBody, expectedID string, hints Hints) models.Classification {
	body := strings.ToLower(rawBody)
	hasProduct := c.hasProductMarker(doc, hints)

	if c.isChallenge(doc, body, hasProduct, hints) {
		return models.PageBotChallenge
	}

	if !hasProduct {
		for _, selector := range hints.SearchMarkers {
			if doc.Find(selector).Length() > 0 {
				return models.PageWrongPage
			}
		}
		for _, phrase := range hints.NotFoundText {
			if strings.Contains(body, strings.ToLower(phrase)) {
				return models.PageWrongPage
			}
		}
		return models.PageUnknown
	}

	if expectedID != "" && !strings.Contains(body, strings.ToLower(expectedID)) {
		c.logger.Warn("page identity not verified", "expected_id", expectedID)
	}

	return models.PageNormal
}

func (c *Classifier) isChallenge(doc *goquery.Document, body string, hasProduct bool, hints Hints) bool {
	for _, phrase := range hints.ChallengeText {
		if strings.Contains(body, strings.ToLower(phrase)) {
			return true
		}
	}

	title := strings.ToLower(doc.Find("title").First().Text())
	for _, pattern := range hints.ChallengeTitles {
		if strings.Contains(title, strings.ToLower(pattern)) {
			return true
		}
	}

	for _, selector := range hints.ChallengeSel {
		if doc.Find(selector).Length() > 0 {
			return true
		}
	}

	minBytes := hints.MinBodyBytes
	if minBytes == 0 {
		minBytes = 2048
	}
	if len(body) < minBytes && !hasProduct {
		return true
	}

	return false
}

func (c *Classifier) hasProductMarker(doc *goquery.Document, hints Hints) bool {
	for _, selector := range hints.ProductMarkers {
		if doc.Find(selector).Length() > 0 {
			return true
		}
	}
	return false
}
