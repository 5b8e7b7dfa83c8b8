package config

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type HTTP struct {
	Addr string `default:":8080" envconfig:"ADDR"`
}

type Upstream struct {
	BaseURL string        `default:"https://api.livecoinwatch.com" envconfig:"BASE_URL"`
	APIKey  string        `envconfig:"API_KEY"`
	Timeout time.Duration `default:"10s" envconfig:"TIMEOUT"`
	// MaxRPM gates upstream calls through a token bucket; 0 disables gating.
	MaxRPM int `default:"0" envconfig:"MAX_RPM"`
	Burst  int `default:"1" envconfig:"BURST"`
}

type Cache struct {
	TTL      time.Duration `default:"5m" envconfig:"TTL"`
	MaxItems int           `default:"10000" envconfig:"MAX_ITEMS"`
}

type API struct {
	Currencies       []string `default:"USD,EUR,GBP,JPY,CAD,AUD,CHF,CNY,KRW,INR" envconfig:"CURRENCIES"`
	DefaultCurrency  string   `default:"USD" envconfig:"DEFAULT_CURRENCY"`
	MaxBatchSymbols  int      `default:"50" envconfig:"MAX_BATCH_SYMBOLS"`
	MaxSearchLimit   int      `default:"50" envconfig:"MAX_SEARCH_LIMIT"`
	MaxOverviewLimit int      `default:"100" envconfig:"MAX_OVERVIEW_LIMIT"`
}

type Config struct {
	HTTP     HTTP
	Upstream Upstream
	Cache    Cache
	API      API
	Debug    bool `default:"false" envconfig:"DEBUG"`
}

// Load reads configuration from the environment with the COINPROXY_ prefix.
// A local .env file is honoured when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("COINPROXY", &c); err != nil {
		return Config{}, err
	}
	if c.Upstream.APIKey == "" {
		return Config{}, errors.New("COINPROXY_UPSTREAM_API_KEY is required")
	}
	return c, nil
}
