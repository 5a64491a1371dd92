package coinafrique

// CSS selectors for the category listing pages.
const (
	CardSelector         = `div.col.s6.m4.l3`
	DetailsSelector      = `p.ad__card-description`
	PriceSelector        = `.ad__card-price`
	LocationSelector     = `p.ad__card-location > span`
	ImageSelector        = `.card-image img`
	ImageAttribute       = `src`
	BrowserReadySelector = `body`
)
