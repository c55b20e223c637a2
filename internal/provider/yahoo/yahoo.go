// Package yahoo fetches equity quotes for US and Thai stocks.
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"

	"portfoliotracker/internal/asset"
	"portfoliotracker/internal/httpx"
	"portfoliotracker/internal/provider"
)

const SourceLabel = "Yahoo Finance"

// ThaiSymbols maps SET tickers whose listing symbol differs from the
// SYMBOL.BK convention.
var ThaiSymbols = map[string]string{
	"PR9":   "PR9-R.BK",
	"PTT":   "PTT.BK",
	"CPALL": "CPALL.BK",
	"KBANK": "KBANK.BK",
	"SCB":   "SCB.BK",
	"BBL":   "BBL.BK",
	"AOT":   "AOT.BK",
	"BH":    "BH.BK",
}

type Config struct {
	Name string
	// QuoteURLs are v7 quote endpoints, tried in order before ChartURL.
	QuoteURLs []string
	// ChartURL is the v8 chart endpoint; the symbol is appended as a path segment.
	ChartURL string
	// SymbolMap overrides the remote symbol of Thai stocks.
	SymbolMap map[string]string
	Headers   map[string]string
}

type Provider struct {
	cfg    Config
	client *httpx.Client
	now    func() time.Time
}

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "YAHOO"
	}
	if len(cfg.QuoteURLs) == 0 {
		cfg.QuoteURLs = []string{
			"https://query1.finance.yahoo.com/v7/finance/quote",
			"https://query2.finance.yahoo.com/v7/finance/quote",
		}
	}
	if cfg.ChartURL == "" {
		cfg.ChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	}
	if cfg.SymbolMap == nil {
		cfg.SymbolMap = ThaiSymbols
	}
	return &Provider{cfg: cfg, client: hc, now: time.Now}
}

func (p *Provider) Name() string { return p.cfg.Name }

// RemoteSymbol is the listing symbol queried upstream.
func (p *Provider) RemoteSymbol(symbol string, t asset.Type) string {
	if t != asset.ThaiStock || strings.HasSuffix(symbol, ".BK") {
		return symbol
	}
	if v := p.cfg.SymbolMap[symbol]; v != "" {
		return v
	}
	return symbol + ".BK"
}

type endpoint struct {
	url   string
	chart bool
}

func (p *Provider) endpoints(remote string) []endpoint {
	out := make([]endpoint, 0, len(p.cfg.QuoteURLs)+1)
	for _, u := range p.cfg.QuoteURLs {
		out = append(out, endpoint{url: u + "?symbols=" + url.QueryEscape(remote)})
	}
	out = append(out, endpoint{
		url:   strings.TrimRight(p.cfg.ChartURL, "/") + "/" + url.PathEscape(remote) + "?interval=1d&range=1d",
		chart: true,
	})
	return out
}

// fields is the common subset of the v7 and v8 response shapes.
type fields struct {
	price, pre, post float64
	prevClose        float64
	change, pct      float64
	volume           float64
	currency         string
	exchange         string
}

func (p *Provider) Fetch(ctx context.Context, symbol string) (provider.Quote, error) {
	s := asset.Canonical(symbol)
	t := asset.Classify(s)
	if t != asset.Stock && t != asset.ThaiStock {
		return provider.Quote{}, fmt.Errorf("yahoo %s: %w", s, provider.ErrNotSupported)
	}
	remote := p.RemoteSymbol(s, t)

	header := http.Header{}
	header.Set("Accept-Language", "en-US,en;q=0.9")
	header.Set("Cache-Control", "no-cache")
	for k, v := range p.cfg.Headers {
		header.Set(k, v)
	}

	var lastErr error
	for _, ep := range p.endpoints(remote) {
		body, err := p.client.Get(ctx, ep.url, header)
		if err != nil {
			if httpx.StatusCode(err) == http.StatusTooManyRequests {
				return provider.Quote{}, fmt.Errorf("yahoo %s: %w", remote, provider.ErrRateLimited)
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return provider.Quote{}, err
			}
			lastErr = err
			continue
		}
		var doc any
		if err := httpx.DecodeJSON(body, &doc); err != nil {
			lastErr = err
			continue
		}
		var f fields
		var ok bool
		if ep.chart {
			f, ok = parseChart(doc)
		} else {
			f, ok = parseQuote(doc)
		}
		if !ok {
			lastErr = fmt.Errorf("no result in response")
			continue
		}
		return p.toQuote(s, t, f)
	}
	return provider.Quote{}, fmt.Errorf("yahoo %s: %w: %v", remote, provider.ErrUnavailable, lastErr)
}

func (p *Provider) toQuote(symbol string, t asset.Type, f fields) (provider.Quote, error) {
	price := roundPrice(firstPositive(f.price, f.pre, f.post))
	if price <= 0 {
		return provider.Quote{}, fmt.Errorf("yahoo %s: %w: invalid price %v", symbol, provider.ErrUnavailable, price)
	}
	change := f.change
	if change == 0 && f.prevClose > 0 {
		change = price - f.prevClose
	}
	pct := f.pct
	if pct == 0 && f.prevClose > 0 {
		pct = change / f.prevClose * 100
	}

	currency, exchange := "THB", "SET"
	if t == asset.Stock {
		currency = f.currency
		if currency == "" {
			currency = asset.DefaultCurrency(t)
		}
		exchange = f.exchange
		if exchange == "" {
			exchange = asset.DefaultExchange(t)
		}
	}

	return provider.Quote{
		Symbol:        symbol,
		Price:         price,
		Change:        round2(change),
		ChangePercent: round2(pct),
		Volume:        f.volume,
		Currency:      currency,
		Exchange:      exchange,
		AssetType:     t,
		Source:        SourceLabel,
		ReceivedAt:    p.now().UTC(),
	}, nil
}

func parseQuote(doc any) (fields, bool) {
	r, ok := lookup(doc, "$.quoteResponse.result[0]").(map[string]any)
	if !ok {
		return fields{}, false
	}
	f := fields{
		price:     num(r, "$.regularMarketPrice"),
		pre:       num(r, "$.preMarketPrice"),
		post:      num(r, "$.postMarketPrice"),
		prevClose: num(r, "$.regularMarketPreviousClose"),
		change:    num(r, "$.regularMarketChange"),
		pct:       num(r, "$.regularMarketChangePercent"),
		volume:    num(r, "$.regularMarketVolume"),
		currency:  str(r, "$.currency"),
		exchange:  str(r, "$.fullExchangeName"),
	}
	if f.volume == 0 {
		f.volume = num(r, "$.averageDailyVolume10Day")
	}
	if f.exchange == "" {
		f.exchange = str(r, "$.exchange")
	}
	return f, true
}

func parseChart(doc any) (fields, bool) {
	r, ok := lookup(doc, "$.chart.result[0]").(map[string]any)
	if !ok {
		return fields{}, false
	}
	meta, ok := lookup(r, "$.meta").(map[string]any)
	if !ok {
		return fields{}, false
	}
	prev := num(meta, "$.previousClose")
	if prev == 0 {
		prev = num(meta, "$.chartPreviousClose")
	}
	f := fields{
		price:     num(meta, "$.regularMarketPrice"),
		prevClose: prev,
		currency:  str(meta, "$.currency"),
		exchange:  str(meta, "$.exchangeName"),
	}
	if vols, ok := lookup(r, "$.indicators.quote[0].volume").([]any); ok {
		for i := len(vols) - 1; i >= 0; i-- {
			if v, ok := vols[i].(float64); ok {
				f.volume = v
				break
			}
		}
	}
	return f, true
}

// lookup evaluates path and unwraps single-element list results.
func lookup(doc any, path string) any {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil
	}
	if list, ok := v.([]any); ok && len(list) == 1 && strings.HasSuffix(path, "]") {
		if _, isObj := list[0].(map[string]any); isObj {
			return list[0]
		}
	}
	return v
}

func num(doc any, path string) float64 {
	v, _ := lookup(doc, path).(float64)
	return v
}

func str(doc any, path string) string {
	v, _ := lookup(doc, path).(string)
	return v
}

func firstPositive(vs ...float64) float64 {
	for _, v := range vs {
		if v > 0 {
			return v
		}
	}
	return 0
}

// roundPrice keeps cents for normal prices and six decimals below one cent,
// so a positive price never rounds to zero.
func roundPrice(v float64) float64 {
	if v > 0 && v < 0.01 {
		return decimal.NewFromFloat(v).Round(6).InexactFloat64()
	}
	return round2(v)
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

var Info = provider.SourceInfo{
	Label:           SourceLabel,
	Name:            "Yahoo Finance",
	Description:     "Real-time stock market data",
	UpdateFrequency: "Real-time during market hours",
	Reliability:     "High",
	Free:            true,
	Kind:            "quote",
}
