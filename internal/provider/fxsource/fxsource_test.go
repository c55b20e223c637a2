package fxsource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"portfoliotracker/internal/httpx"
	"portfoliotracker/internal/provider"
)

func serve(t *testing.T, h http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL
}

var fixedNow = func() time.Time { return time.Date(2025, 1, 14, 8, 30, 0, 0, time.UTC) }

func TestExchangeRateAPI(t *testing.T) {
	base := serve(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/latest/USD", r.URL.Path)
		_, _ = w.Write([]byte(`{"base":"USD","rates":{"THB":35.5,"EUR":0.92}}`))
	})
	p := NewExchangeRateAPI(base, httpx.New(2*time.Second))
	p.now = fixedNow

	r, err := p.Rate(context.Background(), "USD", "THB")
	require.NoError(t, err)
	require.Equal(t, 35.5, r.Rate)
	require.Equal(t, ExchangeRateAPILabel, r.Source)
	require.Equal(t, fixedNow(), r.Timestamp)
	require.False(t, r.Cached)

	_, err = p.Rate(context.Background(), "USD", "JPY")
	require.ErrorIs(t, err, provider.ErrUnavailable)
}

func TestExchangeRateAPI_Errors(t *testing.T) {
	base := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/latest/EUR" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`<html>`))
	})
	p := NewExchangeRateAPI(base, httpx.New(2*time.Second))

	_, err := p.Rate(context.Background(), "EUR", "USD")
	require.ErrorIs(t, err, provider.ErrRateLimited)
	_, err = p.Rate(context.Background(), "USD", "THB")
	require.ErrorIs(t, err, provider.ErrUnavailable)
}

func TestFixer(t *testing.T) {
	_, err := NewFixer("", "", nil)
	require.ErrorIs(t, err, ErrMissingKey)

	base := serve(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/latest", r.URL.Path)
		require.Equal(t, "k", r.URL.Query().Get("access_key"))
		require.Equal(t, "GBP", r.URL.Query().Get("base"))
		switch r.URL.Query().Get("symbols") {
		case "USD":
			_, _ = w.Write([]byte(`{"success":true,"rates":{"USD":1.25}}`))
		case "JPY":
			_, _ = w.Write([]byte(`{"success":false,"error":{"code":104,"info":"limit"}}`))
		default:
			_, _ = w.Write([]byte(`{"success":false,"error":{"code":105,"info":"base currency access restricted"}}`))
		}
	})
	p, err := NewFixer(base, "k", httpx.New(2*time.Second))
	require.NoError(t, err)

	r, err := p.Rate(context.Background(), "GBP", "USD")
	require.NoError(t, err)
	require.Equal(t, 1.25, r.Rate)
	require.Equal(t, FixerLabel, r.Source)

	_, err = p.Rate(context.Background(), "GBP", "JPY")
	require.ErrorIs(t, err, provider.ErrRateLimited)
	_, err = p.Rate(context.Background(), "GBP", "THB")
	require.ErrorIs(t, err, provider.ErrUnavailable)
}

func TestBOT(t *testing.T) {
	base := serve(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "cid", r.Header.Get("X-IBM-Client-Id"))
		require.Equal(t, "2025-01-14", r.URL.Query().Get("start_period"))
		require.Equal(t, "2025-01-14", r.URL.Query().Get("end_period"))
		_, _ = w.Write([]byte(`{"result":{"data":[
			{"period":"2025-01-14","currency_id":"EUR","mid_rate":"37.1000000"},
			{"period":"2025-01-14","currency_id":"USD","mid_rate":"34.2500000"}]}}`))
	})
	p := NewBOT(base+"/", "cid", httpx.New(2*time.Second))
	p.now = fixedNow

	r, err := p.Rate(context.Background(), "USD", "THB")
	require.NoError(t, err)
	require.Equal(t, 34.25, r.Rate)
	require.Equal(t, BOTLabel, r.Source)

	r, err = p.Rate(context.Background(), "THB", "USD")
	require.NoError(t, err)
	require.InDelta(t, 1/34.25, r.Rate, 1e-12)

	_, err = p.Rate(context.Background(), "EUR", "USD")
	require.ErrorIs(t, err, provider.ErrNotSupported)
}

func TestBOT_NoData(t *testing.T) {
	base := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"data":[]}}`))
	})
	p := NewBOT(base, "", httpx.New(2*time.Second))
	_, err := p.Rate(context.Background(), "USD", "THB")
	require.ErrorIs(t, err, provider.ErrUnavailable)
}
