package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"portfoliotracker/internal/asset"
	"portfoliotracker/internal/httpx"
	"portfoliotracker/internal/provider"
)

func newProvider(t *testing.T, h http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL}, httpx.New(2*time.Second))
}

func TestFetch_OK(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/simple/price", r.URL.Path)
		require.Equal(t, "solana", r.URL.Query().Get("ids"))
		require.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		_, _ = w.Write([]byte(`{"solana":{"usd":150,"usd_24h_change":4,"usd_24h_vol":2500000,"last_updated_at":1736848800}}`))
	})

	q, err := p.Fetch(context.Background(), "sol")
	require.NoError(t, err)
	require.Equal(t, "SOL", q.Symbol)
	require.Equal(t, 150.0, q.Price)
	require.InDelta(t, 6.0, q.Change, 1e-9)
	require.Equal(t, 4.0, q.ChangePercent)
	require.Equal(t, 2500000.0, q.Volume)
	require.Equal(t, asset.Crypto, q.AssetType)
	require.Equal(t, "CRYPTO", q.Exchange)
	require.Equal(t, SourceLabel, q.Source)
	require.Equal(t, time.Unix(1736848800, 0).UTC(), q.ReceivedAt)
}

func TestFetch_UnknownCoin(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected upstream call")
	})
	_, err := p.Fetch(context.Background(), "SHIB")
	require.ErrorIs(t, err, provider.ErrNotSupported)
}

func TestFetch_Failures(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
		want   error
	}{
		"rate limited": {http.StatusTooManyRequests, `{}`, provider.ErrRateLimited},
		"server error": {http.StatusBadGateway, `oops`, provider.ErrUnavailable},
		"malformed":    {http.StatusOK, `not json`, provider.ErrUnavailable},
		"missing coin": {http.StatusOK, `{"ethereum":{"usd":2680}}`, provider.ErrUnavailable},
		"null price":   {http.StatusOK, `{"bitcoin":{"usd":null}}`, provider.ErrUnavailable},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := p.Fetch(context.Background(), "BTC")
			require.ErrorIs(t, err, tc.want)
		})
	}
}
