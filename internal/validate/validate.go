// Package validate sanity-checks quote prices. Results are advisory: callers
// annotate and log them but keep using the quote.
package validate

import (
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"portfoliotracker/internal/asset"
)

// Rule bounds the plausible price of one symbol.
type Rule struct {
	Symbol        string     `json:"symbol" toml:"symbol"`
	AssetType     asset.Type `json:"assetType" toml:"asset_type"`
	MinPrice      float64    `json:"minPrice" toml:"min_price"`
	MaxPrice      float64    `json:"maxPrice" toml:"max_price"`
	LastKnownGood float64    `json:"lastKnownGoodPrice,omitempty" toml:"last_known_good"`
	UpdatedAt     time.Time  `json:"lastUpdated,omitempty" toml:"-"`
}

// Result of a price check. Suggestion is 0 when there is nothing to suggest.
type Result struct {
	Valid      bool    `json:"isValid"`
	Warning    string  `json:"warning,omitempty"`
	Suggestion float64 `json:"suggestion,omitempty"`
}

// DeviationThreshold is the fraction of the last known good price beyond
// which a valid price still gets a warning.
const DeviationThreshold = 0.5

// DefaultRules returns the built-in rule table.
func DefaultRules() []Rule {
	return []Rule{
		{Symbol: "BTC", AssetType: asset.Crypto, MinPrice: 15000, MaxPrice: 100000, LastKnownGood: 43250},
		{Symbol: "ETH", AssetType: asset.Crypto, MinPrice: 800, MaxPrice: 8000, LastKnownGood: 2680},
		{Symbol: "SOL", AssetType: asset.Crypto, MinPrice: 8, MaxPrice: 300, LastKnownGood: 152.5},
		{Symbol: "ADA", AssetType: asset.Crypto, MinPrice: 0.1, MaxPrice: 5, LastKnownGood: 0.52},
		{Symbol: "USDT", AssetType: asset.Crypto, MinPrice: 0.98, MaxPrice: 1.02, LastKnownGood: 1},
		{Symbol: "USDC", AssetType: asset.Crypto, MinPrice: 0.98, MaxPrice: 1.02, LastKnownGood: 1},

		{Symbol: "AAPL", AssetType: asset.Stock, MinPrice: 50, MaxPrice: 300, LastKnownGood: 185},
		{Symbol: "GOOGL", AssetType: asset.Stock, MinPrice: 80, MaxPrice: 200, LastKnownGood: 140},
		{Symbol: "MSFT", AssetType: asset.Stock, MinPrice: 200, MaxPrice: 500, LastKnownGood: 380},
		{Symbol: "TSLA", AssetType: asset.Stock, MinPrice: 100, MaxPrice: 400, LastKnownGood: 250},

		{Symbol: "PTT", AssetType: asset.ThaiStock, MinPrice: 20, MaxPrice: 60, LastKnownGood: 35.5},
		{Symbol: "CPALL", AssetType: asset.ThaiStock, MinPrice: 40, MaxPrice: 80, LastKnownGood: 62.75},
		{Symbol: "KBANK", AssetType: asset.ThaiStock, MinPrice: 100, MaxPrice: 200, LastKnownGood: 142.5},

		{Symbol: "GOLD96.5", AssetType: asset.ThaiGold, MinPrice: 30000, MaxPrice: 80000, LastKnownGood: 51140},
	}
}

type ruleKey struct {
	symbol string
	t      asset.Type
}

// Validator checks prices against per-symbol rules, falling back to
// per-asset-type bounds. It is safe for concurrent use.
type Validator struct {
	mu    sync.RWMutex
	rules []Rule
	index map[ruleKey]int
	now   func() time.Time
}

// New builds a validator from rules; nil means DefaultRules.
func New(rules []Rule) *Validator {
	if rules == nil {
		rules = DefaultRules()
	}
	v := &Validator{index: make(map[ruleKey]int), now: time.Now}
	v.Update(rules...)
	return v
}

// Rules returns a copy of the current rule table.
func (v *Validator) Rules() []Rule {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]Rule(nil), v.rules...)
}

// Update merges rules into the table. An existing rule keyed by symbol and
// asset type takes the non-zero fields of the update; a new rule is added
// only when both bounds are set.
func (v *Validator) Update(rules ...Rule) {
	v.mu.Lock()
	defer v.mu.Unlock()
	now := v.now()
	for _, r := range rules {
		r.Symbol = asset.Canonical(r.Symbol)
		k := ruleKey{r.Symbol, r.AssetType}
		if i, ok := v.index[k]; ok {
			cur := &v.rules[i]
			if r.MinPrice > 0 {
				cur.MinPrice = r.MinPrice
			}
			if r.MaxPrice > 0 {
				cur.MaxPrice = r.MaxPrice
			}
			if r.LastKnownGood > 0 {
				cur.LastKnownGood = r.LastKnownGood
			}
			cur.UpdatedAt = now
			continue
		}
		if r.Symbol == "" || r.MinPrice <= 0 || r.MaxPrice <= 0 {
			continue
		}
		r.UpdatedAt = now
		v.index[k] = len(v.rules)
		v.rules = append(v.rules, r)
	}
}

func (v *Validator) rule(symbol string, t asset.Type) (Rule, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	i, ok := v.index[ruleKey{symbol, t}]
	if !ok {
		return Rule{}, false
	}
	return v.rules[i], true
}

func fmtPrice(p float64) string { return strconv.FormatFloat(p, 'f', -1, 64) }

// Validate checks price for symbol of asset type t.
func (v *Validator) Validate(symbol string, price float64, t asset.Type) Result {
	symbol = asset.Canonical(symbol)
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return Result{Valid: false, Warning: "Price is not a number"}
	}

	r, ok := v.rule(symbol, t)
	if !ok {
		return generic(price, t)
	}

	if price < r.MinPrice || price > r.MaxPrice {
		return Result{
			Valid:      false,
			Warning:    fmt.Sprintf("%s price %s is outside expected range %s-%s", symbol, fmtPrice(price), fmtPrice(r.MinPrice), fmtPrice(r.MaxPrice)),
			Suggestion: r.LastKnownGood,
		}
	}
	if r.LastKnownGood > 0 {
		deviation := math.Abs(price-r.LastKnownGood) / r.LastKnownGood
		if deviation > DeviationThreshold {
			return Result{
				Valid:      true,
				Warning:    fmt.Sprintf("%s price %s deviates significantly from recent price %s", symbol, fmtPrice(price), fmtPrice(r.LastKnownGood)),
				Suggestion: r.LastKnownGood,
			}
		}
	}
	return Result{Valid: true}
}

func generic(price float64, t asset.Type) Result {
	if price <= 0 {
		return Result{Valid: false, Warning: "Price must be greater than 0"}
	}
	switch t {
	case asset.Crypto:
		if price > 100000 {
			return Result{Valid: false, Warning: "Price seems unusually high for crypto"}
		}
	case asset.Stock:
		if price > 10000 {
			return Result{Valid: false, Warning: "Price seems unusually high for US stock"}
		}
	case asset.ThaiStock:
		if price > 2000 {
			return Result{Valid: false, Warning: "Price seems unusually high for Thai stock"}
		}
	case asset.ThaiGold:
		if price < 30000 || price > 80000 {
			return Result{Valid: false, Warning: "Thai Gold price should be between ฿30,000-80,000 per gram"}
		}
	}
	return Result{Valid: true}
}
