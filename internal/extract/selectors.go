package extract

// Selectors is the per-site selector set the extractors run over. Site
// adapters fill one of these; the extractors themselves stay site-agnostic.
type Selectors struct {
	Title         []string
	GenericTitles []string

	// PriceCore are the buy-box containers whose prices are authoritative.
	// PriceScoped are narrow standalone price selectors, accepted only
	// after ancestry validation.
	PriceCore   []string
	PriceScoped []string
	StrikePrice []string
	Discount    []string

	CouponRegions []string

	BuyButtons      []string
	UnavailableSel  []string
	UnavailableText []string
	AvailableText   []string
	Quantity        []string

	Image []string
}
