package coin

import "time"

// Quote is the stable, currency-scoped public record for one cryptocurrency.
// Immutable once built; callers always receive values, never shared pointers.
type Quote struct {
	Name           string    `json:"name"`
	Symbol         string    `json:"symbol"`
	Price          float64   `json:"price"`
	MarketCap      float64   `json:"market_cap"`
	Volume24h      float64   `json:"volume_24h"`
	PriceChange24h float64   `json:"percent_change_24h"`
	PriceChange7d  float64   `json:"percent_change_7d"`
	PriceChange30d float64   `json:"percent_change_30d"`
	Rank           int       `json:"rank,omitempty"`
	Currency       string    `json:"currency"`
	LastUpdated    time.Time `json:"last_updated"`
}

// MarketStats holds aggregate market totals in one fiat currency.
type MarketStats struct {
	Currency       string  `json:"currency"`
	TotalMarketCap float64 `json:"total_market_cap"`
	TotalVolume24h float64 `json:"total_volume_24h"`
	BTCDominance   float64 `json:"bitcoin_dominance"`
	Liquidity      float64 `json:"liquidity"`
}
