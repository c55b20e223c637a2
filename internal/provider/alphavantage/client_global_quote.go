package alphavantage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// GlobalQuote is the latest price summary for one symbol.
type GlobalQuote struct {
	Symbol           string
	Open             decimal.Decimal
	High             decimal.Decimal
	Low              decimal.Decimal
	Price            decimal.Decimal
	Volume           int64
	LatestTradingDay time.Time
	PreviousClose    decimal.Decimal
	Change           decimal.Decimal
	ChangePercent    decimal.Decimal
}

// GetGlobalQuote retrieves the GLOBAL_QUOTE of a symbol.
func (c *Client) GetGlobalQuote(ctx context.Context, symbol string) (*GlobalQuote, error) {
	env, err := c.query(ctx, FunctionGlobalQuote, url.Values{"symbol": {symbol}})
	if err != nil {
		return nil, err
	}
	var raw map[string]string
	ok, err := env.payload("Global Quote", &raw)
	if err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", FunctionGlobalQuote, err)
	}
	if !ok || len(raw) == 0 {
		return nil, ErrNotFound
	}

	// {
	//   "01. symbol": "IBM",
	//   "02. open": "190.0000",
	//   "05. price": "191.4200",
	//   "06. volume": "3296837",
	//   "07. latest trading day": "2025-01-14",
	//   "09. change": "1.4200",
	//   "10. change percent": "0.7474%"
	// }
	q := &GlobalQuote{Symbol: raw["01. symbol"]}
	fields := []struct {
		key string
		dst *decimal.Decimal
	}{
		{"02. open", &q.Open},
		{"03. high", &q.High},
		{"04. low", &q.Low},
		{"05. price", &q.Price},
		{"08. previous close", &q.PreviousClose},
		{"09. change", &q.Change},
		{"10. change percent", &q.ChangePercent},
	}
	for _, f := range fields {
		v, err := parseDecimal(raw[f.key])
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", f.key, err)
		}
		*f.dst = v
	}
	if s := raw["06. volume"]; s != "" {
		v, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("decoding volume: %w", err)
		}
		q.Volume = v.IntPart()
	}
	if s := raw["07. latest trading day"]; s != "" {
		day, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return nil, fmt.Errorf("decoding latest trading day: %w", err)
		}
		q.LatestTradingDay = day
	}
	return q, nil
}

// parseDecimal accepts empty strings and trailing percent signs.
func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
