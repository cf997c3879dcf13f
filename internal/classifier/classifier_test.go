package classifier

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/price-tracker/internal/models"
)

func testHints() Hints {
	return Hints{
		ChallengeText:   []string{"enter the characters you see below", "robot check"},
		ChallengeTitles: []string{"robot check"},
		ChallengeSel:    []string{`form[action*="validateCaptcha"]`},
		ProductMarkers:  []string{"#productTitle"},
		SearchMarkers:   []string{".search-results"},
		NotFoundText:    []string{"page not found"},
		MinBodyBytes:    100,
	}
}

func classify(t *testing.T, html, expectedID string) models.Classification {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return New().Classify(d, html, expectedID, testHints())
}

func pad(html string) string {
	return html + strings.Repeat("<!-- x -->", 50)
}

func TestNormalProductPage(t *testing.T) {
	html := pad(`<html><body><h1 id="productTitle">Phone B0TEST12345</h1></body></html>`)
	assert.Equal(t, models.PageNormal, classify(t, html, "B0TEST12345"))
}

func TestChallengeByBodyText(t *testing.T) {
	// A price-shaped number elsewhere must not rescue a challenge page.
	html := pad(`<html><body>
		<p>Enter the characters you see below</p>
		<span>₹4,999</span>
	</body></html>`)
	assert.Equal(t, models.PageBotChallenge, classify(t, html, ""))
}

func TestChallengeByTitle(t *testing.T) {
	html := pad(`<html><head><title>Robot Check</title></head><body><p>hello</p></body></html>`)
	assert.Equal(t, models.PageBotChallenge, classify(t, html, ""))
}

func TestChallengeByCaptchaForm(t *testing.T) {
	html := pad(`<html><body><form action="/errors/validateCaptcha"><input/></form></body></html>`)
	assert.Equal(t, models.PageBotChallenge, classify(t, html, ""))
}

func TestShortBodyWithoutProductMarkerIsChallenge(t *testing.T) {
	assert.Equal(t, models.PageBotChallenge, classify(t, "<html></html>", ""))
}

func TestShortBodyWithProductMarkerIsNormal(t *testing.T) {
	html := `<html><body><h1 id="productTitle">X</h1></body></html>`
	assert.Equal(t, models.PageNormal, classify(t, html, ""))
}

func TestSearchResultsWithoutProductIsWrongPage(t *testing.T) {
	html := pad(`<html><body><div class="search-results"><div>result</div></div></body></html>`)
	assert.Equal(t, models.PageWrongPage, classify(t, html, ""))
}

func TestSearchMarkersWithProductContainerIsNormal(t *testing.T) {
	html := pad(`<html><body>
		<h1 id="productTitle">Phone</h1>
		<div class="search-results">related searches</div>
	</body></html>`)
	assert.Equal(t, models.PageNormal, classify(t, html, ""))
}

func TestNotFoundTextIsWrongPage(t *testing.T) {
	html := pad(`<html><body><h2>Page Not Found</h2><p>sorry</p></body></html>`)
	assert.Equal(t, models.PageWrongPage, classify(t, html, ""))
}

func TestNoSignalsIsUnknown(t *testing.T) {
	html := pad(`<html><body><p>some unrelated long page body text</p></body></html>`)
	assert.Equal(t, models.PageUnknown, classify(t, html, ""))
}

func TestIdentityMismatchStaysNormal(t *testing.T) {
	// Verification is advisory: an unverifiable product page still passes.
	html := pad(`<html><body><h1 id="productTitle">Phone</h1></body></html>`)
	assert.Equal(t, models.PageNormal, classify(t, html, "B0MISSING99"))
}
