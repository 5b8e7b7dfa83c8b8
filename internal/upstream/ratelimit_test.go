package upstream_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"coinproxy/internal/coin"
	"coinproxy/internal/upstream"
)

func TestLimitedPassesThroughWithinBurst(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(*http.Request) (*http.Response, error) {
			return okResponse(t, mockCoinsResponse), nil
		}).
		Times(2)

	client, err := upstream.NewClient("k", upstream.WithHTTPClient(httpClient))
	require.NoError(t, err)

	limited := upstream.NewLimited(client, 1, 2)
	for i := 0; i < 2; i++ {
		raws, err := limited.FetchBySymbols(t.Context(), []string{"BTC"}, "USD")
		require.NoError(t, err)
		require.Len(t, raws, 1)
	}
}

func TestLimitedCancelledWaitIsUnavailable(t *testing.T) {
	t.Parallel()

	ops := []struct {
		name string
		call func(ctx context.Context, l *upstream.Limited) error
	}{
		{"batch", func(ctx context.Context, l *upstream.Limited) error {
			_, err := l.FetchBySymbols(ctx, []string{"BTC"}, "USD")
			return err
		}},
		{"search", func(ctx context.Context, l *upstream.Limited) error {
			_, err := l.Search(ctx, "bitco", 5)
			return err
		}},
		{"overview", func(ctx context.Context, l *upstream.Limited) error {
			_, err := l.Overview(ctx, 10, "USD")
			return err
		}},
		{"stats", func(ctx context.Context, l *upstream.Limited) error {
			_, err := l.MarketStats(ctx, "USD")
			return err
		}},
	}

	for _, op := range ops {
		t.Run(op.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			httpClient := NewMockHTTPClient(ctrl)
			// Exactly one request goes through: the one that drains the bucket.
			httpClient.EXPECT().
				Do(gomock.Any()).
				DoAndReturn(func(*http.Request) (*http.Response, error) {
					return okResponse(t, mockCoinsResponse), nil
				}).
				Times(1)

			client, err := upstream.NewClient("k", upstream.WithHTTPClient(httpClient))
			require.NoError(t, err)

			// Refill far slower than the test runs, so the second call blocks.
			limited := upstream.NewLimited(client, 0.001, 1)
			_, err = limited.FetchBySymbols(t.Context(), []string{"BTC"}, "USD")
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
			defer cancel()
			err = op.call(ctx, limited)
			require.ErrorIs(t, err, coin.ErrUpstreamUnavailable)
		})
	}
}
