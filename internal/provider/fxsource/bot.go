package fxsource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"portfoliotracker/internal/httpx"
	"portfoliotracker/internal/provider"
)

const BOTLabel = "Bank of Thailand"

// BOT serves USD/THB and THB/USD from the Bank of Thailand daily average
// exchange rate statistics.
type BOT struct {
	BaseURL  string
	clientID string
	client   *httpx.Client
	now      func() time.Time
}

func NewBOT(baseURL, clientID string, hc *httpx.Client) *BOT {
	if baseURL == "" {
		baseURL = "https://apigw1.bot.or.th/bot/public/Stat-ExchangeRate/v2/DAILY_AVG_EXG_RATE/"
	}
	if clientID == "" {
		clientID = "default"
	}
	return &BOT{BaseURL: baseURL, clientID: clientID, client: hc, now: time.Now}
}

func (p *BOT) Name() string { return "BOT" }

type botResponse struct {
	Result struct {
		Data []struct {
			Period     string          `json:"period"`
			CurrencyID string          `json:"currency_id"`
			MidRate    decimal.Decimal `json:"mid_rate"`
		} `json:"data"`
	} `json:"result"`
}

func (p *BOT) Rate(ctx context.Context, from, to string) (provider.ExchangeRate, error) {
	pair := from + "/" + to
	if pair != "USD/THB" && pair != "THB/USD" {
		return provider.ExchangeRate{}, fmt.Errorf("%s %s: %w", p.Name(), pair, provider.ErrNotSupported)
	}

	now := p.now()
	day := now.Format(time.DateOnly)
	q := url.Values{}
	q.Set("start_period", day)
	q.Set("end_period", day)
	sep := "?"
	if strings.Contains(p.BaseURL, "?") {
		sep = "&"
	}
	header := http.Header{}
	header.Set("X-IBM-Client-Id", p.clientID)

	var body botResponse
	if err := p.client.GetJSON(ctx, p.BaseURL+sep+q.Encode(), header, &body); err != nil {
		return provider.ExchangeRate{}, wrap(p.Name(), from, to, err)
	}

	for _, d := range body.Result.Data {
		if d.CurrencyID != "USD" || !d.MidRate.IsPositive() {
			continue
		}
		mid := d.MidRate.InexactFloat64()
		if from == "THB" {
			mid = 1 / mid
		}
		return rate(from, to, mid, BOTLabel, now), nil
	}
	return provider.ExchangeRate{}, fmt.Errorf("%s %s: %w: no USD mid rate for %s", p.Name(), pair, provider.ErrUnavailable, day)
}
