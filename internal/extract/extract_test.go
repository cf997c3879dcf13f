package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitleFromPrimarySelector(t *testing.T) {
	d := doc(t, `<html><body><h1 id="productTitle">  Sony WH-1000XM5
		Wireless Headphones </h1></body></html>`)

	got := Title(d, testSelectors())
	assert.Equal(t, "Sony WH-1000XM5 Wireless Headphones", got)
}

func TestTitleFallsBackToPageTitle(t *testing.T) {
	d := doc(t, `<html><head><title>Sony WH-1000XM5 | Example Store</title></head><body></body></html>`)

	got := Title(d, testSelectors())
	assert.Equal(t, "Sony WH-1000XM5", got)
}

func TestTitleRejectsGenericSiteName(t *testing.T) {
	d := doc(t, `<html><head><title>Example Store</title></head><body></body></html>`)

	got := Title(d, testSelectors())
	assert.Empty(t, got)
}

func TestCouponFlatAmount(t *testing.T) {
	d := doc(t, `
		<html><body>
			<div id="buybox">
				<span class="price-value">₹2,999</span>
				<span>Apply ₹300 coupon</span>
			</div>
		</body></html>`)

	coupon := Coupon(d, testSelectors())
	require.NotNil(t, coupon)
	assert.True(t, coupon.Available)
	assert.Equal(t, 300.0, coupon.Value)
	assert.False(t, coupon.Percent)
}

func TestCouponPercent(t *testing.T) {
	d := doc(t, `
		<html><body>
			<div id="promo">Save with 5% off coupon</div>
		</body></html>`)

	coupon := Coupon(d, testSelectors())
	require.NotNil(t, coupon)
	assert.True(t, coupon.Percent)
	assert.Equal(t, 5.0, coupon.Value)
}

func TestCouponFromBadgeAttribute(t *testing.T) {
	d := doc(t, `
		<html><body>
			<div id="buybox">
				<input type="checkbox" data-coupon-value="150" aria-label="Apply ₹150 coupon" />
			</div>
		</body></html>`)

	coupon := Coupon(d, testSelectors())
	require.NotNil(t, coupon)
	assert.Equal(t, 150.0, coupon.Value)
}

func TestCouponIgnoredInSponsoredSection(t *testing.T) {
	d := doc(t, `
		<html><body>
			<div class="sponsored-deals">
				<div id="promo">₹500 coupon</div>
			</div>
		</body></html>`)

	coupon := Coupon(d, testSelectors())
	assert.Nil(t, coupon)
}

func TestCouponAbsent(t *testing.T) {
	d := doc(t, `
		<html><body>
			<div id="buybox"><span class="price-value">₹2,999</span></div>
		</body></html>`)

	assert.Nil(t, Coupon(d, testSelectors()))
}

func TestStockExplicitUnavailableWins(t *testing.T) {
	d := doc(t, `
		<html><body>
			<div id="availability">Currently unavailable.</div>
			<button id="add-to-cart">Add to Cart</button>
		</body></html>`)

	assert.False(t, Stock(d, testSelectors()))
}

func TestStockNoBuyControl(t *testing.T) {
	d := doc(t, `<html><body><h1 id="productTitle">Thing</h1></body></html>`)

	assert.False(t, Stock(d, testSelectors()))
}

func TestStockEnabledBuyControl(t *testing.T) {
	d := doc(t, `
		<html><body>
			<button id="add-to-cart">Add to Cart</button>
		</body></html>`)

	assert.True(t, Stock(d, testSelectors()))
}

func TestPurchaseAffirming(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{"button text", `<button id="add-to-cart">Add to Cart</button>`, true},
		{"input value", `<input id="add-to-cart" type="submit" value="Buy Now">`, true},
		{"aria label", `<button id="add-to-cart" aria-label="Place Order"></button>`, true},
		{"notify me repurposed slot", `<button id="add-to-cart">Notify Me</button>`, false},
		{"see similar repurposed slot", `<button id="add-to-cart">See Similar Items</button>`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := doc(t, `<html><body>`+tt.html+`</body></html>`)
			node := findBuyControl(d, testSelectors())
			require.NotNil(t, node)
			assert.Equal(t, tt.want, purchaseAffirming(node))
		})
	}
}

func TestStockDisabledButtonWithAvailabilityText(t *testing.T) {
	d := doc(t, `
		<html><body>
			<button id="add-to-cart" disabled>Add to Cart</button>
			<div>In stock, ships tomorrow</div>
		</body></html>`)

	assert.True(t, Stock(d, testSelectors()))
}

func TestStockOptimisticDefault(t *testing.T) {
	d := doc(t, `
		<html><body>
			<button id="add-to-cart" disabled>Add to Cart</button>
		</body></html>`)

	assert.True(t, Stock(d, testSelectors()))
}

func TestImageFromPrimarySelector(t *testing.T) {
	d := doc(t, `
		<html><body>
			<img id="main-image" src="https://cdn.example.com/product/p1.jpg" />
		</body></html>`)

	assert.Equal(t, "https://cdn.example.com/product/p1.jpg", Image(d, testSelectors()))
}

func TestImageFromBackgroundStyle(t *testing.T) {
	d := doc(t, `
		<html><body>
			<div style="background-image: url('https://cdn.example.com/product/hero.jpg')"></div>
		</body></html>`)

	assert.Equal(t, "https://cdn.example.com/product/hero.jpg", Image(d, testSelectors()))
}

func TestImageFallbackSkipsLogos(t *testing.T) {
	d := doc(t, `
		<html><body>
			<img src="https://cdn.example.com/site-logo.png" width="300" height="200" />
			<img src="https://cdn.example.com/product/item-photo.jpg" width="500" height="500" />
		</body></html>`)

	assert.Equal(t, "https://cdn.example.com/product/item-photo.jpg", Image(d, testSelectors()))
}

func TestImageAbsent(t *testing.T) {
	d := doc(t, `<html><body><p>no images</p></body></html>`)
	assert.Empty(t, Image(d, testSelectors()))
}
