package upstream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"coinproxy/internal/coin"
)

// Rate holds the fields of one coin denominated in one fiat currency.
type Rate struct {
	Price     float64
	MarketCap float64
	Volume24h float64
}

// Delta holds price-change ratios over standard windows (1.05 == +5%).
type Delta struct {
	Day   float64
	Week  float64
	Month float64
}

// RawQuote is the unshaped record as returned by the provider, validated so
// required fields are guaranteed present. Rates is keyed by upper-case
// currency code.
type RawQuote struct {
	Name        string
	Symbol      string
	Rank        int
	Rates       map[string]Rate
	Delta       Delta
	LastUpdated time.Time
}

// RawStats is the provider's aggregate market snapshot for one currency.
type RawStats struct {
	Cap          float64 `json:"cap"`
	Volume       float64 `json:"volume"`
	BTCDominance float64 `json:"btcDominance"`
	Liquidity    float64 `json:"liquidity"`
}

type wireRate struct {
	Rate   float64 `json:"rate"`
	Cap    float64 `json:"cap"`
	Volume float64 `json:"volume"`
}

type wireCoin struct {
	Name  string              `json:"name"`
	Code  string              `json:"code"`
	Rank  int                 `json:"rank"`
	Rates map[string]wireRate `json:"rates"`
	Delta struct {
		Day   float64 `json:"day"`
		Week  float64 `json:"week"`
		Month float64 `json:"month"`
	} `json:"delta"`
	LastUpdated int64 `json:"lastUpdated"`
}

type coinsResponse struct {
	Coins []wireCoin `json:"coins"`
}

// FetchBySymbols retrieves quotes for the given symbols (or names) in one
// request. Symbols the provider does not know are simply absent from the
// result; that is not an error at this layer.
func (c *Client) FetchBySymbols(ctx context.Context, symbols []string, currency string) ([]RawQuote, error) {
	payload := map[string]any{
		"codes":    symbols,
		"currency": strings.ToUpper(currency),
		"meta":     true,
	}
	var res coinsResponse
	if err := c.post(ctx, "/coins/batch", payload, &res); err != nil {
		return nil, err
	}
	return convertCoins(res.Coins)
}

// Search asks the provider for partial, case-insensitive name/symbol matches,
// ordered by provider-defined relevance, at most limit entries.
func (c *Client) Search(ctx context.Context, term string, limit int) ([]RawQuote, error) {
	payload := map[string]any{
		"term":  term,
		"limit": limit,
	}
	var res coinsResponse
	if err := c.post(ctx, "/coins/search", payload, &res); err != nil {
		return nil, err
	}
	return convertCoins(res.Coins)
}

// Overview retrieves the top coins by market capitalization, descending.
func (c *Client) Overview(ctx context.Context, limit int, currency string) ([]RawQuote, error) {
	payload := map[string]any{
		"currency": strings.ToUpper(currency),
		"sort":     "rank",
		"order":    "ascending",
		"limit":    limit,
		"meta":     true,
	}
	var res coinsResponse
	if err := c.post(ctx, "/coins/list", payload, &res); err != nil {
		return nil, err
	}
	return convertCoins(res.Coins)
}

// MarketStats retrieves aggregate market totals in the given currency.
func (c *Client) MarketStats(ctx context.Context, currency string) (RawStats, error) {
	payload := map[string]any{"currency": strings.ToUpper(currency)}
	var res RawStats
	if err := c.post(ctx, "/overview", payload, &res); err != nil {
		return RawStats{}, err
	}
	return res, nil
}

// convertCoins validates each wire record and converts it to a RawQuote.
// A coin without a code, a name or any rate means the provider broke its own
// contract, which is treated the same as any other rejected response.
func convertCoins(coins []wireCoin) ([]RawQuote, error) {
	out := make([]RawQuote, 0, len(coins))
	for _, w := range coins {
		if w.Code == "" || w.Name == "" || len(w.Rates) == 0 {
			return nil, fmt.Errorf("%w: coin record missing required fields", coin.ErrUpstreamRejected)
		}
		rates := make(map[string]Rate, len(w.Rates))
		for cur, r := range w.Rates {
			rates[strings.ToUpper(cur)] = Rate{Price: r.Rate, MarketCap: r.Cap, Volume24h: r.Volume}
		}
		out = append(out, RawQuote{
			Name:        w.Name,
			Symbol:      strings.ToUpper(w.Code),
			Rank:        w.Rank,
			Rates:       rates,
			Delta:       Delta{Day: w.Delta.Day, Week: w.Delta.Week, Month: w.Delta.Month},
			LastUpdated: parseEpochMaybeMillis(w.LastUpdated, time.Now().UTC()),
		})
	}
	return out, nil
}

// parseEpochMaybeMillis accepts epoch seconds or milliseconds.
func parseEpochMaybeMillis(v int64, fallback time.Time) time.Time {
	if v <= 0 {
		return fallback
	}
	if v > 1_000_000_000_000 { // ms
		return time.UnixMilli(v).UTC()
	}
	return time.Unix(v, 0).UTC()
}
