// Package coingecko fetches crypto spot prices in USD.
package coingecko

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"portfoliotracker/internal/asset"
	"portfoliotracker/internal/httpx"
	"portfoliotracker/internal/provider"
)

const SourceLabel = "CoinGecko"

// CoinIDs maps ticker symbols to CoinGecko coin ids.
var CoinIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"ADA":   "cardano",
	"DOT":   "polkadot",
	"MATIC": "matic-network",
	"AVAX":  "avalanche-2",
	"LINK":  "chainlink",
	"UNI":   "uniswap",
	"AAVE":  "aave",
	"XRP":   "ripple",
	"DOGE":  "dogecoin",
	"LTC":   "litecoin",
	"BNB":   "binancecoin",
	"USDT":  "tether",
	"USDC":  "usd-coin",
	"BUSD":  "binance-usd",
	"AXS":   "axie-infinity",
	"SAND":  "the-sandbox",
	"MANA":  "decentraland",
}

type Config struct {
	Name    string
	BaseURL string
	// SymbolMap overrides CoinIDs.
	SymbolMap map[string]string
	APIKey    string
}

type Provider struct {
	cfg    Config
	client *httpx.Client
	now    func() time.Time
}

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "COINGECKO"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if cfg.SymbolMap == nil {
		cfg.SymbolMap = CoinIDs
	}
	return &Provider{cfg: cfg, client: hc, now: time.Now}
}

func (p *Provider) Name() string { return p.cfg.Name }

// coin is one entry of the simple/price response.
type coin struct {
	USD         *float64 `json:"usd"`
	Change24h   float64  `json:"usd_24h_change"`
	Volume24h   float64  `json:"usd_24h_vol"`
	LastUpdated int64    `json:"last_updated_at"`
}

func (p *Provider) Fetch(ctx context.Context, symbol string) (provider.Quote, error) {
	s := asset.Canonical(symbol)
	id := p.cfg.SymbolMap[s]
	if id == "" {
		return provider.Quote{}, fmt.Errorf("coingecko %s: %w: no coin id", s, provider.ErrNotSupported)
	}

	q := url.Values{}
	q.Set("ids", id)
	q.Set("vs_currencies", "usd")
	q.Set("include_24hr_change", "true")
	q.Set("include_24hr_vol", "true")
	q.Set("include_last_updated_at", "true")
	u := strings.TrimRight(p.cfg.BaseURL, "/") + "/simple/price?" + q.Encode()

	header := http.Header{}
	header.Set("Cache-Control", "no-cache")
	if p.cfg.APIKey != "" {
		header.Set("x-cg-demo-api-key", p.cfg.APIKey)
	}

	var data map[string]coin
	if err := p.client.GetJSON(ctx, u, header, &data); err != nil {
		if httpx.StatusCode(err) == http.StatusTooManyRequests {
			return provider.Quote{}, fmt.Errorf("coingecko %s: %w", s, provider.ErrRateLimited)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return provider.Quote{}, err
		}
		return provider.Quote{}, fmt.Errorf("coingecko %s: %w: %v", s, provider.ErrUnavailable, err)
	}

	c, ok := data[id]
	if !ok || c.USD == nil || *c.USD <= 0 {
		return provider.Quote{}, fmt.Errorf("coingecko %s: %w: no usd price for %s", s, provider.ErrUnavailable, id)
	}
	price := *c.USD
	ts := p.now().UTC()
	if c.LastUpdated > 0 {
		ts = time.Unix(c.LastUpdated, 0).UTC()
	}
	return provider.Quote{
		Symbol:        s,
		Price:         price,
		Change:        price * c.Change24h / 100,
		ChangePercent: c.Change24h,
		Volume:        c.Volume24h,
		Currency:      "USD",
		Exchange:      asset.DefaultExchange(asset.Crypto),
		AssetType:     asset.Crypto,
		Source:        SourceLabel,
		ReceivedAt:    ts,
	}, nil
}

var Info = provider.SourceInfo{
	Label:           SourceLabel,
	Name:            "CoinGecko Cryptocurrency API",
	Description:     "Real-time cryptocurrency market data",
	UpdateFrequency: "Every 1-2 minutes",
	Reliability:     "High",
	Free:            true,
	Kind:            "quote",
}
