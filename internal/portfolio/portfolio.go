// Package portfolio values holdings against market quotes.
package portfolio

import (
	"math"
	"sort"
	"time"

	"portfoliotracker/internal/asset"
	"portfoliotracker/internal/provider"
)

type TxType string

const (
	Buy      TxType = "BUY"
	Sell     TxType = "SELL"
	Dividend TxType = "DIVIDEND"
)

func (t TxType) Valid() bool { return t == Buy || t == Sell || t == Dividend }

// Transaction is one ledger entry.
type Transaction struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Symbol        string    `json:"symbol"`
	CompanyName   string    `json:"companyName,omitempty"`
	Type          TxType    `json:"transactionType"`
	Shares        float64   `json:"shares"`
	PricePerShare float64   `json:"pricePerShare"`
	TotalAmount   float64   `json:"totalAmount"`
	Date          time.Time `json:"transactionDate"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Holding is a position derived from the ledger.
type Holding struct {
	Symbol        string  `json:"symbol"`
	CompanyName   string  `json:"companyName,omitempty"`
	TotalShares   float64 `json:"totalShares"`
	AvgCostBasis  float64 `json:"avgCostBasis"`
	TotalInvested float64 `json:"totalInvested"`
	Currency      string  `json:"currency"`
}

type EnrichedHolding struct {
	Holding
	CurrentPrice     float64    `json:"currentPrice"`
	CurrentValue     float64    `json:"currentValue"`
	GainLoss         float64    `json:"gainLoss"`
	GainLossPercent  float64    `json:"gainLossPercent"`
	DayChange        float64    `json:"dayChange"`
	DayChangePercent float64    `json:"dayChangePercent"`
	AssetType        asset.Type `json:"assetType"`
	Exchange         string     `json:"exchange"`
	Source           string     `json:"source,omitempty"`
	Simulated        bool       `json:"simulated,omitempty"`
}

// Summary totals are expressed in Currency.
type Summary struct {
	Currency             string  `json:"currency"`
	TotalValue           float64 `json:"totalValue"`
	TotalCost            float64 `json:"totalCost"`
	TotalGainLoss        float64 `json:"totalGainLoss"`
	TotalGainLossPercent float64 `json:"totalGainLossPercent"`
	DayChange            float64 `json:"dayChange"`
	DayChangePercent     float64 `json:"dayChangePercent"`
}

// Converter converts an amount between currencies without I/O.
type Converter interface {
	Convert(amount float64, from, to string) float64
}

type identity struct{}

func (identity) Convert(amount float64, _, _ string) float64 { return amount }

// nz treats NaN and infinities as zero.
func nz(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func percent(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}

// Symbols returns the distinct holding symbols in order of first appearance.
func Symbols(holdings []Holding) []string {
	seen := make(map[string]bool, len(holdings))
	out := make([]string, 0, len(holdings))
	for _, h := range holdings {
		s := asset.Canonical(h.Symbol)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Enrich joins holdings with quotes by symbol. A holding without a quote is
// priced at zero so it shows as a full loss.
func Enrich(holdings []Holding, quotes []provider.Quote) []EnrichedHolding {
	bySymbol := make(map[string]provider.Quote, len(quotes))
	for _, q := range quotes {
		bySymbol[asset.Canonical(q.Symbol)] = q
	}

	out := make([]EnrichedHolding, 0, len(holdings))
	for _, h := range holdings {
		sym := asset.Canonical(h.Symbol)
		t := asset.Classify(sym)
		e := EnrichedHolding{Holding: h, AssetType: t, Exchange: asset.DefaultExchange(t)}
		shares := nz(h.TotalShares)
		invested := nz(h.TotalInvested)

		if q, ok := bySymbol[sym]; ok {
			e.CurrentPrice = nz(q.Price)
			e.DayChange = nz(q.Change)
			e.DayChangePercent = nz(q.ChangePercent)
			e.Source = q.Source
			e.Simulated = q.Simulated
			if q.AssetType != "" {
				e.AssetType = q.AssetType
			}
			if q.Exchange != "" {
				e.Exchange = q.Exchange
			}
			if e.Currency == "" {
				e.Currency = q.Currency
			}
		}
		if e.Currency == "" {
			e.Currency = asset.DefaultCurrency(e.AssetType)
		}

		e.CurrentValue = e.CurrentPrice * shares
		e.GainLoss = e.CurrentValue - invested
		e.GainLossPercent = percent(e.GainLoss, invested)
		out = append(out, e)
	}
	return out
}

// Summarize converts each holding into display before summing. A nil
// converter leaves amounts unchanged.
func Summarize(holdings []EnrichedHolding, display string, conv Converter) Summary {
	if conv == nil {
		conv = identity{}
	}
	s := Summary{Currency: display}
	for _, h := range holdings {
		s.TotalValue += nz(conv.Convert(nz(h.CurrentValue), h.Currency, display))
		s.TotalCost += nz(conv.Convert(nz(h.TotalInvested), h.Currency, display))
		s.DayChange += nz(conv.Convert(nz(h.DayChange)*nz(h.TotalShares), h.Currency, display))
	}
	s.TotalGainLoss = s.TotalValue - s.TotalCost
	s.TotalGainLossPercent = percent(s.TotalGainLoss, s.TotalCost)
	s.DayChangePercent = percent(s.DayChange, s.TotalValue)
	return s
}

// Allocation is one symbol's share of the converted portfolio value.
type Allocation struct {
	Symbol    string     `json:"symbol"`
	Name      string     `json:"name,omitempty"`
	AssetType asset.Type `json:"assetType"`
	Value     float64    `json:"value"`
	Percent   float64    `json:"percent"`
}

// Category is one asset type's share of the converted portfolio value.
type Category struct {
	AssetType asset.Type `json:"assetType"`
	Label     string     `json:"label"`
	Value     float64    `json:"value"`
	Percent   float64    `json:"percent"`
}

// AllocationBySymbol groups by symbol, sorted by descending percentage.
func AllocationBySymbol(holdings []EnrichedHolding, display string, conv Converter) []Allocation {
	if conv == nil {
		conv = identity{}
	}
	idx := map[string]int{}
	var out []Allocation
	var total float64
	for _, h := range holdings {
		v := nz(conv.Convert(nz(h.CurrentValue), h.Currency, display))
		total += v
		sym := asset.Canonical(h.Symbol)
		if i, ok := idx[sym]; ok {
			out[i].Value += v
			continue
		}
		idx[sym] = len(out)
		out = append(out, Allocation{Symbol: sym, Name: h.CompanyName, AssetType: h.AssetType, Value: v})
	}
	for i := range out {
		out[i].Percent = percent(out[i].Value, total)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Percent != out[j].Percent {
			return out[i].Percent > out[j].Percent
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// AllocationByType groups by asset type in enum order. Types with no
// holdings are left out.
func AllocationByType(holdings []EnrichedHolding, display string, conv Converter) []Category {
	if conv == nil {
		conv = identity{}
	}
	values := map[asset.Type]float64{}
	present := map[asset.Type]bool{}
	var total float64
	for _, h := range holdings {
		v := nz(conv.Convert(nz(h.CurrentValue), h.Currency, display))
		values[h.AssetType] += v
		present[h.AssetType] = true
		total += v
	}
	var out []Category
	for _, t := range asset.Types() {
		if !present[t] {
			continue
		}
		out = append(out, Category{AssetType: t, Label: asset.Label(t), Value: values[t], Percent: percent(values[t], total)})
	}
	return out
}
