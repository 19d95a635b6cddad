package entity

// SearchHit is the provider's answer to a symbol search.
type SearchHit struct {
	ExternalID string
	Name       string
}

// CoinDetails is the subset of provider coin details the registry keeps.
type CoinDetails struct {
	ImageURL string
}

// PriceTable maps an external id to its prices keyed by lowercase currency,
// e.g. {"bitcoin": {"usd": 60000}}.
type PriceTable map[string]map[string]float64
