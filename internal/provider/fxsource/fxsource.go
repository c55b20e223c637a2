// Package fxsource fetches currency exchange rates from public APIs.
package fxsource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"portfoliotracker/internal/httpx"
	"portfoliotracker/internal/provider"
)

// wrap maps transport and status errors onto provider sentinels.
func wrap(name, from, to string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case httpx.StatusCode(err) == http.StatusTooManyRequests:
		return fmt.Errorf("%s %s/%s: %w", name, from, to, provider.ErrRateLimited)
	default:
		return fmt.Errorf("%s %s/%s: %w: %v", name, from, to, provider.ErrUnavailable, err)
	}
}

func rate(from, to string, r float64, source string, now time.Time) provider.ExchangeRate {
	return provider.ExchangeRate{From: from, To: to, Rate: r, Source: source, Timestamp: now.UTC()}
}

// ExchangeRateAPI serves any pair quoted by api.exchangerate-api.com. No key is needed.
type ExchangeRateAPI struct {
	BaseURL string
	client  *httpx.Client
	now     func() time.Time
}

const ExchangeRateAPILabel = "ExchangeRate-API"

func NewExchangeRateAPI(baseURL string, hc *httpx.Client) *ExchangeRateAPI {
	if baseURL == "" {
		baseURL = "https://api.exchangerate-api.com/v4"
	}
	return &ExchangeRateAPI{BaseURL: strings.TrimRight(baseURL, "/"), client: hc, now: time.Now}
}

func (p *ExchangeRateAPI) Name() string { return "EXCHANGERATE_API" }

func (p *ExchangeRateAPI) Rate(ctx context.Context, from, to string) (provider.ExchangeRate, error) {
	var body struct {
		Base  string             `json:"base"`
		Rates map[string]float64 `json:"rates"`
	}
	if err := p.client.GetJSON(ctx, p.BaseURL+"/latest/"+from, nil, &body); err != nil {
		return provider.ExchangeRate{}, wrap(p.Name(), from, to, err)
	}
	r := body.Rates[to]
	if r <= 0 {
		return provider.ExchangeRate{}, fmt.Errorf("%s %s/%s: %w: no rate", p.Name(), from, to, provider.ErrUnavailable)
	}
	return rate(from, to, r, ExchangeRateAPILabel, p.now()), nil
}

// Fixer serves any pair through data.fixer.io. It requires an access key.
type Fixer struct {
	BaseURL string
	key     string
	client  *httpx.Client
	now     func() time.Time
}

const FixerLabel = "Fixer.io"

// ErrMissingKey is returned by constructors of key-gated sources.
var ErrMissingKey = errors.New("missing api key")

func NewFixer(baseURL, key string, hc *httpx.Client) (*Fixer, error) {
	if key == "" {
		return nil, fmt.Errorf("fixer: %w", ErrMissingKey)
	}
	if baseURL == "" {
		baseURL = "https://data.fixer.io/api"
	}
	return &Fixer{BaseURL: strings.TrimRight(baseURL, "/"), key: key, client: hc, now: time.Now}, nil
}

func (p *Fixer) Name() string { return "FIXER" }

func (p *Fixer) Rate(ctx context.Context, from, to string) (provider.ExchangeRate, error) {
	q := url.Values{}
	q.Set("access_key", p.key)
	q.Set("base", from)
	q.Set("symbols", to)
	u := p.BaseURL + "/latest?" + q.Encode()
	var body struct {
		Success bool               `json:"success"`
		Rates   map[string]float64 `json:"rates"`
		Error   struct {
			Code int    `json:"code"`
			Info string `json:"info"`
		} `json:"error"`
	}
	if err := p.client.GetJSON(ctx, u, nil, &body); err != nil {
		return provider.ExchangeRate{}, wrap(p.Name(), from, to, err)
	}
	if !body.Success {
		// 104: monthly request volume reached
		if body.Error.Code == 104 {
			return provider.ExchangeRate{}, fmt.Errorf("%s %s/%s: %w", p.Name(), from, to, provider.ErrRateLimited)
		}
		return provider.ExchangeRate{}, fmt.Errorf("%s %s/%s: %w: %s", p.Name(), from, to, provider.ErrUnavailable, body.Error.Info)
	}
	r := body.Rates[to]
	if r <= 0 {
		return provider.ExchangeRate{}, fmt.Errorf("%s %s/%s: %w: no rate", p.Name(), from, to, provider.ErrUnavailable)
	}
	return rate(from, to, r, FixerLabel, p.now()), nil
}

var Infos = []provider.SourceInfo{
	{
		Label:           ExchangeRateAPILabel,
		Name:            "ExchangeRate-API.com",
		Description:     "Free real-time exchange rates",
		UpdateFrequency: "Every hour",
		Reliability:     "High",
		Free:            true,
		Kind:            "rate",
	},
	{
		Label:           BOTLabel,
		Name:            "Bank of Thailand API",
		Description:     "Official THB exchange rates",
		UpdateFrequency: "Daily",
		Reliability:     "High",
		Free:            true,
		Kind:            "rate",
	},
	{
		Label:           FixerLabel,
		Name:            "Fixer.io",
		Description:     "Professional exchange rate API",
		UpdateFrequency: "Every minute",
		Reliability:     "High",
		Free:            false,
		Kind:            "rate",
	},
}
