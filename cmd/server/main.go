package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coinproxy/internal/config"
	"coinproxy/internal/httpx"
	"coinproxy/internal/metrics"
	"coinproxy/internal/resolver"
	rest "coinproxy/internal/transport/http"
	"coinproxy/internal/upstream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var zl *zap.Logger
	if cfg.Debug {
		zl, err = zap.NewDevelopment()
	} else {
		gin.SetMode(gin.ReleaseMode)
		zl, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()
	logger := zl.Sugar()

	metrics.MustRegister()

	client, err := upstream.NewClient(
		cfg.Upstream.APIKey,
		upstream.WithBaseURL(cfg.Upstream.BaseURL),
		upstream.WithHTTPClient(httpx.New(cfg.Upstream.Timeout)),
	)
	if err != nil {
		logger.Fatalf("upstream client: %v", err)
	}

	var up resolver.Upstream = client
	if cfg.Upstream.MaxRPM > 0 {
		rate := float64(cfg.Upstream.MaxRPM) / 60.0
		up = upstream.NewLimited(client, rate, cfg.Upstream.Burst)
		logger.Infow("upstream rate limit enabled", "rpm", cfg.Upstream.MaxRPM, "burst", cfg.Upstream.Burst)
	}

	res := resolver.New(up, cfg.Cache.TTL, cfg.Cache.MaxItems, logger)
	handler := rest.NewHandler(res, rest.Limits{
		Currencies:       cfg.API.Currencies,
		DefaultCurrency:  cfg.API.DefaultCurrency,
		MaxBatchSymbols:  cfg.API.MaxBatchSymbols,
		MaxSearchLimit:   cfg.API.MaxSearchLimit,
		MaxOverviewLimit: cfg.API.MaxOverviewLimit,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           rest.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Infow("server listening", "addr", cfg.HTTP.Addr, "cache_ttl", cfg.Cache.TTL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server: %v", err)
		}
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
