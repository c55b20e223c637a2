package alphavantageadapter

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"portfoliotracker/internal/asset"
	"portfoliotracker/internal/provider"
	"portfoliotracker/internal/provider/alphavantage"
)

type stubQuoter struct {
	q   *alphavantage.GlobalQuote
	err error
	n   int
}

func (s *stubQuoter) GetGlobalQuote(ctx context.Context, symbol string) (*alphavantage.GlobalQuote, error) {
	s.n++
	return s.q, s.err
}

func TestFetch(t *testing.T) {
	stub := &stubQuoter{q: &alphavantage.GlobalQuote{
		Symbol:        "MSFT",
		Price:         decimal.RequireFromString("380.7512"),
		Change:        decimal.RequireFromString("-2.1061"),
		ChangePercent: decimal.RequireFromString("-0.5498"),
		Volume:        1200,
	}}
	a := New(Config{}, stub)

	q, err := a.Fetch(context.Background(), "msft")
	require.NoError(t, err)
	require.Equal(t, "MSFT", q.Symbol)
	require.Equal(t, 380.75, q.Price)
	require.Equal(t, -2.11, q.Change)
	require.Equal(t, -0.55, q.ChangePercent)
	require.Equal(t, 1200.0, q.Volume)
	require.Equal(t, asset.Stock, q.AssetType)
	require.Equal(t, SourceLabel, q.Source)
	require.Equal(t, "ALPHAVANTAGE", a.Name())
}

func TestFetch_ErrorMapping(t *testing.T) {
	cases := map[string]struct {
		err  error
		want error
	}{
		"rate limited": {alphavantage.ErrRateLimited, provider.ErrRateLimited},
		"not found":    {alphavantage.ErrNotFound, provider.ErrUnavailable},
		"transport":    {errors.New("performing request: boom"), provider.ErrUnavailable},
	}
	for name, tc := range cases {
		a := New(Config{}, &stubQuoter{err: tc.err})
		_, err := a.Fetch(context.Background(), "AAPL")
		require.ErrorIsf(t, err, tc.want, "case %s", name)
	}

	a := New(Config{}, &stubQuoter{q: &alphavantage.GlobalQuote{Price: decimal.Zero}})
	_, err := a.Fetch(context.Background(), "AAPL")
	require.ErrorIs(t, err, provider.ErrUnavailable)
}

func TestFetch_SubCentPriceStaysPositive(t *testing.T) {
	a := New(Config{}, &stubQuoter{q: &alphavantage.GlobalQuote{Price: decimal.RequireFromString("0.0042")}})
	q, err := a.Fetch(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Equal(t, 0.0042, q.Price)

	a = New(Config{}, &stubQuoter{q: &alphavantage.GlobalQuote{Price: decimal.RequireFromString("0.0000001")}})
	_, err = a.Fetch(context.Background(), "AAPL")
	require.ErrorIs(t, err, provider.ErrUnavailable)
}

func TestFetch_OnlyUSStocks(t *testing.T) {
	stub := &stubQuoter{}
	a := New(Config{}, stub)
	for _, s := range []string{"PTT", "BTC", "GOLD96.5"} {
		_, err := a.Fetch(context.Background(), s)
		require.ErrorIs(t, err, provider.ErrNotSupported)
	}
	require.Zero(t, stub.n)
}
