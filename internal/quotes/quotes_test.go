package quotes

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"portfoliotracker/internal/asset"
	"portfoliotracker/internal/provider"
	"portfoliotracker/internal/provider/chain"
	"portfoliotracker/internal/provider/fallback"
	"portfoliotracker/internal/validate"
)

type stub struct {
	name   string
	prices map[string]float64
	err    error
	calls  atomic.Int32
}

func (s *stub) Name() string { return s.name }

func (s *stub) Fetch(ctx context.Context, symbol string) (provider.Quote, error) {
	s.calls.Add(1)
	if s.err != nil {
		return provider.Quote{}, s.err
	}
	p, ok := s.prices[symbol]
	if !ok {
		return provider.Quote{}, provider.ErrUnavailable
	}
	return provider.Quote{Symbol: symbol, Price: p, Source: s.name, Currency: "USD"}, nil
}

func newService(policy Policy) *Service {
	return New(Config{Policy: policy}, fallback.NewSimulator(1), nil)
}

func TestFetchQuote_SecondaryProvider(t *testing.T) {
	primary := &stub{name: "YAHOO", err: provider.ErrUnavailable}
	secondary := &stub{name: "ALPHAVANTAGE", prices: map[string]float64{"AAPL": 150}}
	s := newService(PolicyOmit)
	s.Register(asset.Stock, primary, secondary)

	q, err := s.FetchQuote(context.Background(), " aapl ")
	require.NoError(t, err)
	require.Equal(t, "AAPL", q.Symbol)
	require.Equal(t, 150.0, q.Price)
	require.Equal(t, "ALPHAVANTAGE", q.Source)
	require.Equal(t, asset.Stock, q.AssetType)
	require.Equal(t, int32(1), primary.calls.Load())
}

func TestFetchQuote_StockPolicies(t *testing.T) {
	down := &stub{name: "YAHOO", err: provider.ErrRateLimited}

	omit := newService(PolicyOmit)
	omit.Register(asset.Stock, down)
	_, err := omit.FetchQuote(context.Background(), "AAPL")
	require.ErrorIs(t, err, chain.ErrExhausted)

	fb := newService(PolicyFallback)
	fb.Register(asset.Stock, down)
	fb.Register(asset.ThaiStock, down)
	q, err := fb.FetchQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	require.True(t, q.Simulated)
	require.Equal(t, fallback.StockSource, q.Source)

	q, err = fb.FetchQuote(context.Background(), "PTT")
	require.NoError(t, err)
	require.Equal(t, "THB", q.Currency)

	// no reference price: still omitted
	_, err = fb.FetchQuote(context.Background(), "UBER")
	require.ErrorIs(t, err, chain.ErrExhausted)
}

func TestFetchQuote_CryptoAlwaysAnswers(t *testing.T) {
	s := newService(PolicyOmit)
	s.Register(asset.Crypto, &stub{name: "COINGECKO", err: provider.ErrUnavailable})

	q, err := s.FetchQuote(context.Background(), "ETH")
	require.NoError(t, err)
	require.Equal(t, fallback.CryptoSource, q.Source)
	require.True(t, q.Simulated)
	require.Equal(t, asset.Crypto, q.AssetType)
}

func TestFetchQuote_GoldIsSimulated(t *testing.T) {
	s := newService(PolicyOmit)
	q, err := s.FetchQuote(context.Background(), "GOLD96.5")
	require.NoError(t, err)
	require.Equal(t, fallback.GoldSource, q.Source)
	require.Equal(t, asset.ThaiGold, q.AssetType)
}

func TestFetchQuote_EmptySymbol(t *testing.T) {
	_, err := newService(PolicyOmit).FetchQuote(context.Background(), "  ")
	require.ErrorIs(t, err, ErrEmptySymbol)
}

func TestFetchQuote_ValidationWarningDoesNotBlock(t *testing.T) {
	s := newService(PolicyOmit)
	s.Register(asset.Crypto, &stub{name: "COINGECKO", prices: map[string]float64{"BTC": 200000}})
	s.SetValidator(validate.New(nil))

	q, err := s.FetchQuote(context.Background(), "BTC")
	require.NoError(t, err)
	require.Equal(t, 200000.0, q.Price)
	require.Contains(t, q.Warning, "outside expected range")
}

func TestFetchMany_OrderDedupAndOmission(t *testing.T) {
	s := newService(PolicyOmit)
	s.Register(asset.Stock, &stub{name: "YAHOO", prices: map[string]float64{"MSFT": 380, "NVDA": 158.9}})

	out := s.FetchMany(context.Background(), []string{"nvda", "UBER", "MSFT", "NVDA", ""})
	require.Len(t, out, 2)
	require.Equal(t, "NVDA", out[0].Symbol)
	require.Equal(t, "MSFT", out[1].Symbol)
}

func TestFetchMany_SequentialDelayAndCancel(t *testing.T) {
	s := New(Config{Delay: 50 * time.Millisecond}, fallback.NewSimulator(1), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out := s.FetchMany(ctx, []string{"BTC", "ETH", "SOL"})
	require.Len(t, out, 1, "cancellation during the delay stops the batch")
	require.Equal(t, "BTC", out[0].Symbol)
}

type gated struct {
	mu       sync.Mutex
	inFlight int
	peak     int
}

func (g *gated) Name() string { return "COINGECKO" }

func (g *gated) Fetch(ctx context.Context, symbol string) (provider.Quote, error) {
	g.mu.Lock()
	g.inFlight++
	if g.inFlight > g.peak {
		g.peak = g.inFlight
	}
	g.mu.Unlock()
	time.Sleep(10 * time.Millisecond)
	g.mu.Lock()
	g.inFlight--
	g.mu.Unlock()
	return provider.Quote{Symbol: symbol, Price: 1, Source: "COINGECKO"}, nil
}

func TestFetchMany_ParallelHonoursLimit(t *testing.T) {
	g := &gated{}
	s := New(Config{Concurrency: 2}, fallback.NewSimulator(1), nil)
	s.Register(asset.Crypto, g)

	syms := []string{"BTC", "ETH", "SOL", "ADA", "DOT", "XRP"}
	out := s.FetchMany(context.Background(), syms)
	require.Len(t, out, len(syms))
	for i, q := range out {
		require.Equal(t, syms[i], q.Symbol)
		require.Equal(t, "COINGECKO", q.Source)
	}
	require.LessOrEqual(t, g.peak, 2)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	require.Equal(t, PolicyOmit, p)
	p, err = ParsePolicy("fallback")
	require.NoError(t, err)
	require.Equal(t, PolicyFallback, p)
	_, err = ParsePolicy("mock")
	require.Error(t, err)
}

func TestProviders(t *testing.T) {
	s := newService(PolicyOmit)
	s.Register(asset.Stock, &stub{name: "YAHOO"}, nil, &stub{name: "ALPHAVANTAGE"})
	require.Equal(t, []string{"YAHOO", "ALPHAVANTAGE"}, s.Providers()[asset.Stock])
}
