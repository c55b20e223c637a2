package alphavantageadapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"portfoliotracker/internal/asset"
	"portfoliotracker/internal/provider"
	"portfoliotracker/internal/provider/alphavantage"
)

const SourceLabel = "Alpha Vantage"

// GlobalQuoter is the subset of the Alpha Vantage client used here.
type GlobalQuoter interface {
	GetGlobalQuote(ctx context.Context, symbol string) (*alphavantage.GlobalQuote, error)
}

type Config struct {
	Name string // display name, default: ALPHAVANTAGE
}

// Adapter serves US stock quotes from GLOBAL_QUOTE.
type Adapter struct {
	cfg    Config
	client GlobalQuoter
	now    func() time.Time
}

func New(cfg Config, client GlobalQuoter) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "ALPHAVANTAGE"
	}
	return &Adapter{cfg: cfg, client: client, now: time.Now}
}

func (a *Adapter) Name() string { return a.cfg.Name }

func (a *Adapter) Fetch(ctx context.Context, symbol string) (provider.Quote, error) {
	s := asset.Canonical(symbol)
	if asset.Classify(s) != asset.Stock {
		return provider.Quote{}, fmt.Errorf("alphavantage %s: %w", s, provider.ErrNotSupported)
	}

	gq, err := a.client.GetGlobalQuote(ctx, s)
	switch {
	case err == nil:
	case errors.Is(err, alphavantage.ErrRateLimited):
		return provider.Quote{}, fmt.Errorf("alphavantage %s: %w: %v", s, provider.ErrRateLimited, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return provider.Quote{}, err
	default:
		return provider.Quote{}, fmt.Errorf("alphavantage %s: %w: %v", s, provider.ErrUnavailable, err)
	}
	price := roundPrice(gq.Price)
	if !price.IsPositive() {
		return provider.Quote{}, fmt.Errorf("alphavantage %s: %w: invalid price %s", s, provider.ErrUnavailable, gq.Price)
	}

	return provider.Quote{
		Symbol:        s,
		Price:         price.InexactFloat64(),
		Change:        gq.Change.Round(2).InexactFloat64(),
		ChangePercent: gq.ChangePercent.Round(2).InexactFloat64(),
		Volume:        float64(gq.Volume),
		Currency:      "USD",
		Exchange:      asset.DefaultExchange(asset.Stock),
		AssetType:     asset.Stock,
		Source:        SourceLabel,
		ReceivedAt:    a.now().UTC(),
	}, nil
}

var Info = provider.SourceInfo{
	Label:           SourceLabel,
	Name:            "Alpha Vantage API",
	Description:     "Financial market data provider",
	UpdateFrequency: "Real-time",
	Reliability:     "High",
	Free:            false,
	Kind:            "quote",
}

// roundPrice keeps cents, or 6 places below one cent.
func roundPrice(p decimal.Decimal) decimal.Decimal {
	if p.LessThan(decimal.NewFromFloat(0.01)) {
		return p.Round(6)
	}
	return p.Round(2)
}
