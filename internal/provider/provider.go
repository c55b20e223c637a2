package provider

import (
	"context"
	"errors"
	"time"

	"portfoliotracker/internal/asset"
)

var (
	// ErrUnavailable covers network failures, non-2xx answers, malformed bodies
	// and responses without a usable price.
	ErrUnavailable = errors.New("provider unavailable")
	// ErrRateLimited is returned when a per-source call budget is spent.
	ErrRateLimited = errors.New("provider rate limited")
	// ErrNotSupported is returned when an adapter cannot serve the symbol or pair.
	ErrNotSupported = errors.New("not supported by provider")
)

// Quote is the normalized shape returned by all providers.
type Quote struct {
	Symbol        string     `json:"symbol"`
	Price         float64    `json:"price"`
	Change        float64    `json:"change"`
	ChangePercent float64    `json:"changePercent"`
	Volume        float64    `json:"volume"`
	Currency      string     `json:"currency"`
	Exchange      string     `json:"exchange"`
	AssetType     asset.Type `json:"assetType"`
	Source        string     `json:"source"`
	ReceivedAt    time.Time  `json:"timestamp"`
	Simulated     bool       `json:"simulated,omitempty"`
	Warning       string     `json:"warning,omitempty"`
}

// Provider resolves one symbol against one upstream.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, symbol string) (Quote, error)
}

// ExchangeRate is the rate for converting one unit of From into To.
type ExchangeRate struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Rate      float64   `json:"rate"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Cached    bool      `json:"cached"`
}

// Inverse returns the reciprocal rate from the same observation.
func (r ExchangeRate) Inverse() ExchangeRate {
	inv := r
	inv.From, inv.To = r.To, r.From
	if r.Rate != 0 {
		inv.Rate = 1 / r.Rate
	}
	return inv
}

// RateProvider resolves a currency pair against one upstream.
type RateProvider interface {
	Name() string
	Rate(ctx context.Context, from, to string) (ExchangeRate, error)
}

// Func adapts a function to Provider.
type Func struct {
	N string
	F func(ctx context.Context, symbol string) (Quote, error)
}

func (f Func) Name() string { return f.N }

func (f Func) Fetch(ctx context.Context, symbol string) (Quote, error) { return f.F(ctx, symbol) }

// SourceInfo describes a data source for display.
type SourceInfo struct {
	Label           string `json:"label"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	UpdateFrequency string `json:"updateFrequency"`
	Reliability     string `json:"reliability"`
	Free            bool   `json:"free"`
	Kind            string `json:"kind"`
}
