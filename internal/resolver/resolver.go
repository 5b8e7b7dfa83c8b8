// Package resolver coordinates cache lookups and upstream fetches. It owns
// cache key construction, collapses concurrent misses for the same key into
// one upstream call, batches multi-symbol misses into a single round-trip and
// writes results back so later lookups hit the cache.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"coinproxy/internal/cache"
	"coinproxy/internal/coin"
	"coinproxy/internal/flight"
	"coinproxy/internal/metrics"
	"coinproxy/internal/shape"
	"coinproxy/internal/upstream"
)

// Upstream is the slice of the provider client the resolver needs.
type Upstream interface {
	FetchBySymbols(ctx context.Context, symbols []string, currency string) ([]upstream.RawQuote, error)
	Search(ctx context.Context, term string, limit int) ([]upstream.RawQuote, error)
	Overview(ctx context.Context, limit int, currency string) ([]upstream.RawQuote, error)
	MarketStats(ctx context.Context, currency string) (upstream.RawStats, error)
}

// BatchResult is the outcome of a multi-symbol lookup. Quotes preserves the
// caller's symbol order; unresolvable symbols are omitted, so Resolved may be
// smaller than Requested.
type BatchResult struct {
	Quotes    []coin.Quote `json:"quotes"`
	Requested int          `json:"requested_count"`
	Resolved  int          `json:"resolved_count"`
}

// Resolver is the read-through core. One instance per process; tests create
// their own so no state is ambient.
type Resolver struct {
	up     Upstream
	quotes *cache.Store[coin.Quote]
	lists  *cache.Store[[]coin.Quote]
	stats  *cache.Store[coin.MarketStats]
	flight *flight.Group[coin.Quote]
	lf     singleflight.Group
	log    *zap.SugaredLogger
}

// New builds a resolver with one shared TTL across all request shapes.
func New(up Upstream, ttl time.Duration, maxItems int, log *zap.SugaredLogger) *Resolver {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Resolver{
		up:     up,
		quotes: cache.New[coin.Quote]("quotes", ttl, maxItems),
		lists:  cache.New[[]coin.Quote]("lists", ttl, maxItems),
		stats:  cache.New[coin.MarketStats]("stats", ttl, maxItems),
		flight: flight.NewGroup[coin.Quote](),
		log:    log,
	}
}

// Key construction. Deterministic and order-independent: multi-symbol
// requests key each symbol on its own, so ["BTC","ETH"] and ["ETH","BTC"]
// touch the same entries.

func quoteKey(symbol, currency string) string {
	return "coin|" + symbol + "|" + currency
}

func searchKey(term string, limit int, currency string) string {
	return "search|" + strings.ToLower(term) + "|" + strconv.Itoa(limit) + "|" + currency
}

func overviewKey(limit int, currency string) string {
	return "overview|" + strconv.Itoa(limit) + "|" + currency
}

func statsKey(currency string) string {
	return "stats|" + currency
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func notFound(sym string) error {
	return fmt.Errorf("%w: %s", coin.ErrNotFound, sym)
}

// GetOne resolves a single symbol (or coin name; the provider accepts both).
func (r *Resolver) GetOne(ctx context.Context, symbolOrName, currency string) (coin.Quote, error) {
	sym := normalize(symbolOrName)
	cur := normalize(currency)
	key := quoteKey(sym, cur)

	if q, ok := r.quotes.Get(key); ok {
		return q, nil
	}

	owned, joined := r.flight.Claim(key)
	if len(owned) == 0 {
		metrics.CollapsedLookups.Inc()
		return joined[key].Wait(ctx)
	}
	return r.resolveOwned(ctx, key, sym, cur)
}

// resolveOwned fetches and settles one key this caller owns. Another leader
// may have settled and cached the key between the cache check and Claim, so
// the cache is consulted once more before going upstream.
func (r *Resolver) resolveOwned(ctx context.Context, key, sym, cur string) (coin.Quote, error) {
	if q, ok := r.quotes.Get(key); ok {
		r.flight.Settle(key, q, nil)
		return q, nil
	}
	q, err := r.fetchOne(ctx, sym, cur)
	if err == nil {
		r.quotes.Put(key, q)
	} else {
		r.log.Debugw("single fetch failed", "symbol", sym, "currency", cur, "err", err)
	}
	r.flight.Settle(key, q, err)
	return q, err
}

func (r *Resolver) fetchOne(ctx context.Context, sym, cur string) (coin.Quote, error) {
	raws, err := r.up.FetchBySymbols(ctx, []string{sym}, cur)
	if err != nil {
		return coin.Quote{}, err
	}
	if len(raws) == 0 {
		// Not cached: the provider may index the asset later.
		return coin.Quote{}, notFound(sym)
	}
	return shape.Transform(raws[0], cur)
}

// GetMany resolves a list of symbols. Misses not already in flight are
// fetched in one batched upstream call; each fresh quote is cached under its
// own single-symbol key so later single lookups benefit.
func (r *Resolver) GetMany(ctx context.Context, symbols []string, currency string) (BatchResult, error) {
	cur := normalize(currency)

	// Dedupe preserving first-seen order for the response.
	order := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		sym := normalize(s)
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		order = append(order, sym)
	}

	resolved := make(map[string]coin.Quote, len(order))
	var missKeys []string
	symByKey := make(map[string]string)
	for _, sym := range order {
		key := quoteKey(sym, cur)
		if q, ok := r.quotes.Get(key); ok {
			resolved[sym] = q
			continue
		}
		missKeys = append(missKeys, key)
		symByKey[key] = sym
	}

	if len(missKeys) > 0 {
		owned, joined := r.flight.Claim(missKeys...)

		if len(owned) > 0 {
			if err := r.fetchBatch(ctx, owned, symByKey, cur, resolved); err != nil {
				// Joined calls settle through their own leaders; this batch is lost.
				return BatchResult{}, err
			}
		}

		for key, call := range joined {
			metrics.CollapsedLookups.Inc()
			q, err := call.Wait(ctx)
			switch {
			case err == nil:
				resolved[symByKey[key]] = q
			case errors.Is(err, coin.ErrNotFound), errors.Is(err, coin.ErrCurrencyUnsupported):
				// Omitted from the result, same as an unresolvable owned symbol.
			default:
				return BatchResult{}, err
			}
		}
	}

	out := make([]coin.Quote, 0, len(resolved))
	for _, sym := range order {
		if q, ok := resolved[sym]; ok {
			out = append(out, q)
		}
	}
	return BatchResult{Quotes: out, Requested: len(order), Resolved: len(out)}, nil
}

// fetchBatch issues one upstream call for all owned keys and settles each.
// Every owned key is settled exactly once on every path, success or not.
func (r *Resolver) fetchBatch(ctx context.Context, owned []string, symByKey map[string]string, cur string, resolved map[string]coin.Quote) error {
	// Keys another leader settled and cached since the miss check are served
	// from the cache instead of being refetched.
	missing := make([]string, 0, len(owned))
	fetchSyms := make([]string, 0, len(owned))
	for _, key := range owned {
		if q, ok := r.quotes.Get(key); ok {
			r.flight.Settle(key, q, nil)
			resolved[symByKey[key]] = q
			continue
		}
		missing = append(missing, key)
		fetchSyms = append(fetchSyms, symByKey[key])
	}
	if len(missing) == 0 {
		return nil
	}

	raws, err := r.up.FetchBySymbols(ctx, fetchSyms, cur)
	if err != nil {
		for _, key := range missing {
			r.flight.Settle(key, coin.Quote{}, err)
		}
		return err
	}

	bySym := make(map[string]upstream.RawQuote, len(raws))
	for _, raw := range raws {
		bySym[normalize(raw.Symbol)] = raw
	}

	for _, key := range missing {
		sym := symByKey[key]
		raw, ok := bySym[sym]
		if !ok {
			r.flight.Settle(key, coin.Quote{}, notFound(sym))
			continue
		}
		q, terr := shape.Transform(raw, cur)
		if terr != nil {
			r.flight.Settle(key, coin.Quote{}, terr)
			continue
		}
		r.quotes.Put(key, q)
		r.flight.Settle(key, q, nil)
		resolved[sym] = q
	}
	return nil
}

// Search resolves a fuzzy search. The ranked list is cached whole under one
// key; rank order is part of the result, so it is never decomposed per coin.
// Coins with no rate in the requested currency are skipped. Callers own the
// returned slice: it is cloned out of the cache, never aliased.
func (r *Resolver) Search(ctx context.Context, term string, limit int, currency string) ([]coin.Quote, error) {
	cur := normalize(currency)
	key := searchKey(term, limit, cur)
	if l, ok := r.lists.Get(key); ok {
		return slices.Clone(l), nil
	}
	v, err, shared := r.lf.Do(key, func() (any, error) {
		raws, err := r.up.Search(ctx, term, limit)
		if err != nil {
			return nil, err
		}
		out := make([]coin.Quote, 0, len(raws))
		for _, raw := range raws {
			q, terr := shape.Transform(raw, cur)
			if terr != nil {
				continue
			}
			out = append(out, q)
		}
		r.lists.Put(key, out)
		return out, nil
	})
	if shared {
		metrics.CollapsedLookups.Inc()
	}
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]coin.Quote)), nil
}

// Overview resolves the top coins by market cap. Unlike Search, a coin
// missing the requested currency fails the whole call: a ranking denominated
// in an unsupported currency is meaningless. Callers own the returned slice.
func (r *Resolver) Overview(ctx context.Context, limit int, currency string) ([]coin.Quote, error) {
	cur := normalize(currency)
	key := overviewKey(limit, cur)
	if l, ok := r.lists.Get(key); ok {
		return slices.Clone(l), nil
	}
	v, err, shared := r.lf.Do(key, func() (any, error) {
		raws, err := r.up.Overview(ctx, limit, cur)
		if err != nil {
			return nil, err
		}
		out := make([]coin.Quote, 0, len(raws))
		for _, raw := range raws {
			q, terr := shape.Transform(raw, cur)
			if terr != nil {
				return nil, terr
			}
			out = append(out, q)
		}
		r.lists.Put(key, out)
		return out, nil
	})
	if shared {
		metrics.CollapsedLookups.Inc()
	}
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]coin.Quote)), nil
}

// MarketStats resolves aggregate market totals for one currency.
func (r *Resolver) MarketStats(ctx context.Context, currency string) (coin.MarketStats, error) {
	cur := normalize(currency)
	key := statsKey(cur)
	if s, ok := r.stats.Get(key); ok {
		return s, nil
	}
	v, err, shared := r.lf.Do(key, func() (any, error) {
		raw, err := r.up.MarketStats(ctx, cur)
		if err != nil {
			return nil, err
		}
		s := shape.Stats(raw, cur)
		r.stats.Put(key, s)
		return s, nil
	})
	if shared {
		metrics.CollapsedLookups.Inc()
	}
	if err != nil {
		return coin.MarketStats{}, err
	}
	return v.(coin.MarketStats), nil
}

// CacheLen reports resident entries across the three stores, for health output.
func (r *Resolver) CacheLen() int {
	return r.quotes.Len() + r.lists.Len() + r.stats.Len()
}
