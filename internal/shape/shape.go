// Package shape turns raw provider records into the stable public schema.
// Pure functions only: no I/O, no caching concerns.
package shape

import (
	"fmt"
	"strings"

	"coinproxy/internal/coin"
	"coinproxy/internal/upstream"
)

// Transform builds the currency-scoped public record from a raw quote.
// Fails with ErrCurrencyUnsupported when the raw payload carries no rate for
// the requested currency.
func Transform(raw upstream.RawQuote, currency string) (coin.Quote, error) {
	cur := strings.ToUpper(strings.TrimSpace(currency))
	rate, ok := raw.Rates[cur]
	if !ok {
		return coin.Quote{}, fmt.Errorf("%w: no %s rate for %s", coin.ErrCurrencyUnsupported, cur, raw.Symbol)
	}
	return coin.Quote{
		Name:           raw.Name,
		Symbol:         strings.ToUpper(raw.Symbol),
		Price:          rate.Price,
		MarketCap:      rate.MarketCap,
		Volume24h:      rate.Volume24h,
		PriceChange24h: deltaPercent(raw.Delta.Day),
		PriceChange7d:  deltaPercent(raw.Delta.Week),
		PriceChange30d: deltaPercent(raw.Delta.Month),
		Rank:           raw.Rank,
		Currency:       cur,
		LastUpdated:    raw.LastUpdated.UTC(),
	}, nil
}

// Stats relabels the provider's market snapshot into the public record.
func Stats(raw upstream.RawStats, currency string) coin.MarketStats {
	return coin.MarketStats{
		Currency:       strings.ToUpper(strings.TrimSpace(currency)),
		TotalMarketCap: raw.Cap,
		TotalVolume24h: raw.Volume,
		BTCDominance:   raw.BTCDominance,
		Liquidity:      raw.Liquidity,
	}
}

// deltaPercent converts the provider's change ratio (1.05 == +5%) into a
// percentage. A zero ratio means the provider had no data for the window.
func deltaPercent(ratio float64) float64 {
	if ratio == 0 {
		return 0
	}
	return (ratio - 1) * 100
}
