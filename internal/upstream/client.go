// Package upstream implements the client for the pricing provider. It maps
// the provider's wire format to RawQuote records and transport/provider
// failures to the coin error taxonomy. No retries happen here; retry policy
// (or the deliberate absence of one) belongs to the caller.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"coinproxy/internal/coin"
	"coinproxy/internal/metrics"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=upstream_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the pricing provider API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient performs the requests.
	httpClient HTTPClient
	// header contains headers sent with each request, including the credential.
	header http.Header
}

// Option is a configuration option for the client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader adds headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewClient creates a provider client. The key is sent as the x-api-key
// header on every request.
func NewClient(key string, options ...Option) (*Client, error) {
	var client = &Client{
		baseURL:    "https://api.livecoinwatch.com",
		httpClient: http.DefaultClient,
		header:     http.Header{},
	}
	client.header.Set("Content-Type", "application/json")
	if key != "" {
		client.header.Set("x-api-key", key)
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}

// post issues one JSON request and decodes the body into out. Failures come
// back wrapped in the coin taxonomy so callers never branch on status codes.
func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "unavailable").Inc()
		return fmt.Errorf("%w: %v", coin.ErrUpstreamUnavailable, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusOK:
		// fall through to decode

	case res.StatusCode == http.StatusTooManyRequests:
		metrics.UpstreamRequests.WithLabelValues(endpoint, "rate_limited").Inc()
		return fmt.Errorf("%w: status %d", coin.ErrUpstreamRateLimited, res.StatusCode)

	case res.StatusCode >= 500:
		metrics.UpstreamRequests.WithLabelValues(endpoint, "unavailable").Inc()
		return fmt.Errorf("%w: status %d", coin.ErrUpstreamUnavailable, res.StatusCode)

	default:
		// 4xx other than 429: bad credential, malformed query, unknown path.
		metrics.UpstreamRequests.WithLabelValues(endpoint, "rejected").Inc()
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return fmt.Errorf("%w: status %d: %s", coin.ErrUpstreamRejected, res.StatusCode, string(b))
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "rejected").Inc()
		return fmt.Errorf("%w: decoding response: %v", coin.ErrUpstreamRejected, err)
	}
	metrics.UpstreamRequests.WithLabelValues(endpoint, "ok").Inc()
	return nil
}
