// Package rest maps HTTP routes onto the resolver and serializes results.
// Raw input validation lives here, before anything reaches the core.
package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"coinproxy/internal/coin"
	"coinproxy/internal/resolver"
)

// Service is the core-facing interface consumed by the route layer.
type Service interface {
	GetOne(ctx context.Context, symbolOrName, currency string) (coin.Quote, error)
	GetMany(ctx context.Context, symbols []string, currency string) (resolver.BatchResult, error)
	Search(ctx context.Context, term string, limit int, currency string) ([]coin.Quote, error)
	Overview(ctx context.Context, limit int, currency string) ([]coin.Quote, error)
	MarketStats(ctx context.Context, currency string) (coin.MarketStats, error)
	CacheLen() int
}

// Limits carries the validation bounds and currency whitelist.
type Limits struct {
	Currencies       []string
	DefaultCurrency  string
	MaxBatchSymbols  int
	MaxSearchLimit   int
	MaxOverviewLimit int
}

type Handler struct {
	service    Service
	limits     Limits
	currencies map[string]struct{}
	log        *zap.SugaredLogger
}

func NewHandler(service Service, limits Limits, log *zap.SugaredLogger) *Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	set := make(map[string]struct{}, len(limits.Currencies))
	for _, c := range limits.Currencies {
		set[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}
	return &Handler{service: service, limits: limits, currencies: set, log: log}
}

func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(h.log))

	r.GET("/", h.root)
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/crypto/:symbol", h.getOne)
	r.GET("/crypto", h.getManyOrOverview)
	r.GET("/search", h.search)
	r.GET("/market/overview", h.marketStats)

	return r
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "cryptocurrency API is running"})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"cache_size": h.service.CacheLen(),
	})
}

func (h *Handler) getOne(c *gin.Context) {
	symbol, err := validateSymbol(c.Param("symbol"))
	if err != nil {
		h.fail(c, err)
		return
	}
	currency, err := h.currency(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	q, err := h.service.GetOne(c.Request.Context(), symbol, currency)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// getManyOrOverview serves GET /crypto. With a symbols parameter it resolves
// that batch; without one it returns the market-cap ranking.
func (h *Handler) getManyOrOverview(c *gin.Context) {
	currency, err := h.currency(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	if raw := c.Query("symbols"); strings.TrimSpace(raw) != "" {
		symbols, err := validateSymbols(splitCSV(raw), h.limits.MaxBatchSymbols)
		if err != nil {
			h.fail(c, err)
			return
		}
		res, err := h.service.GetMany(c.Request.Context(), symbols, currency)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"data":            res.Quotes,
			"requested_count": res.Requested,
			"resolved_count":  res.Resolved,
			"currency":        currency,
		})
		return
	}

	limit, err := validateLimit(c.DefaultQuery("limit", "20"), h.limits.MaxOverviewLimit)
	if err != nil {
		h.fail(c, err)
		return
	}
	quotes, err := h.service.Overview(c.Request.Context(), limit, currency)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":        quotes,
		"total_count": len(quotes),
		"currency":    currency,
	})
}

func (h *Handler) search(c *gin.Context) {
	term := strings.TrimSpace(c.Query("query"))
	if term == "" {
		h.fail(c, errInvalid("query must not be empty"))
		return
	}
	limit, err := validateLimit(c.DefaultQuery("limit", "10"), h.limits.MaxSearchLimit)
	if err != nil {
		h.fail(c, err)
		return
	}
	currency, err := h.currency(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	quotes, err := h.service.Search(c.Request.Context(), term, limit, currency)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":        quotes,
		"total_count": len(quotes),
		"currency":    currency,
	})
}

func (h *Handler) marketStats(c *gin.Context) {
	currency, err := h.currency(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	stats, err := h.service.MarketStats(c.Request.Context(), currency)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) currency(c *gin.Context) (string, error) {
	return h.validateCurrency(c.DefaultQuery("currency", h.limits.DefaultCurrency))
}

// fail maps taxonomy errors onto status codes and emits only the stable kind
// tag plus sentinel text; upstream detail stays in the logs.
func (h *Handler) fail(c *gin.Context, err error) {
	kind, sentinel, status := classify(err)
	if status >= http.StatusInternalServerError {
		h.log.Errorw("request failed", "path", c.FullPath(), "err", err)
	} else {
		h.log.Debugw("request rejected", "path", c.FullPath(), "err", err)
	}
	c.JSON(status, gin.H{"error": kind, "message": sentinel.Error(), "status_code": status})
}

func classify(err error) (string, error, int) {
	switch {
	case errors.Is(err, coin.ErrNotFound):
		return "not_found", coin.ErrNotFound, http.StatusNotFound
	case errors.Is(err, coin.ErrInvalidRequest):
		return "invalid_request", coin.ErrInvalidRequest, http.StatusBadRequest
	case errors.Is(err, coin.ErrCurrencyUnsupported):
		return "currency_unsupported", coin.ErrCurrencyUnsupported, http.StatusBadRequest
	case errors.Is(err, coin.ErrUpstreamRateLimited):
		return "upstream_rate_limited", coin.ErrUpstreamRateLimited, http.StatusTooManyRequests
	case errors.Is(err, coin.ErrUpstreamRejected):
		return "upstream_rejected", coin.ErrUpstreamRejected, http.StatusBadGateway
	default:
		return "upstream_unavailable", coin.ErrUpstreamUnavailable, http.StatusServiceUnavailable
	}
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

func validateLimit(raw string, max int) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errInvalid("limit must be an integer")
	}
	if v < 1 {
		return 0, errInvalid("limit must be at least 1")
	}
	if v > max {
		return 0, errInvalid("limit cannot exceed " + strconv.Itoa(max))
	}
	return v, nil
}
