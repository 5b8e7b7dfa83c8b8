// Command fetch queries the upstream provider directly and prints shaped
// quotes, bypassing the cache. Handy for checking credentials and payloads.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"coinproxy/internal/coin"
	"coinproxy/internal/config"
	"coinproxy/internal/httpx"
	"coinproxy/internal/shape"
	"coinproxy/internal/upstream"
)

func main() {
	var symbolsCSV string
	var currency string
	var timeout time.Duration

	flag.StringVar(&symbolsCSV, "symbols", "BTC,ETH", "comma-separated symbols")
	flag.StringVar(&currency, "currency", "USD", "fiat currency code")
	flag.DurationVar(&timeout, "timeout", 15*time.Second, "request timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	symbols := splitCSV(symbolsCSV)
	if len(symbols) == 0 {
		log.Fatal("no symbols provided")
	}

	client, err := upstream.NewClient(
		cfg.Upstream.APIKey,
		upstream.WithBaseURL(cfg.Upstream.BaseURL),
		upstream.WithHTTPClient(httpx.New(timeout)),
	)
	if err != nil {
		log.Fatalf("upstream client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	raws, err := client.FetchBySymbols(ctx, symbols, currency)
	if err != nil {
		log.Fatalf("fetch: %v", err)
	}
	if len(raws) == 0 {
		log.Fatal("no quotes received")
	}

	quotes := make([]coin.Quote, 0, len(raws))
	for _, raw := range raws {
		q, err := shape.Transform(raw, currency)
		if err != nil {
			log.Printf("%s: %v", raw.Symbol, err)
			continue
		}
		quotes = append(quotes, q)
	}

	out := struct {
		Quotes []coin.Quote `json:"quotes"`
	}{Quotes: quotes}
	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
