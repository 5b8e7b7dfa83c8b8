package coin

import "errors"

// Stable error taxonomy. Everything the core returns wraps exactly one of
// these sentinels, so callers can classify failures with errors.Is without
// seeing upstream error text or credentials.
var (
	// ErrNotFound means no coin matched the requested symbol or name.
	ErrNotFound = errors.New("coin not found")
	// ErrCurrencyUnsupported means the upstream has no data in that fiat currency.
	ErrCurrencyUnsupported = errors.New("currency not supported")
	// ErrUpstreamUnavailable covers network failures and timeouts.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrUpstreamRejected covers provider-side rejections (bad key, bad request).
	ErrUpstreamRejected = errors.New("upstream rejected request")
	// ErrUpstreamRateLimited means the provider signalled quota exhaustion.
	ErrUpstreamRateLimited = errors.New("upstream rate limited")
	// ErrInvalidRequest is raised by input validation before the core is reached.
	ErrInvalidRequest = errors.New("invalid request")
)
