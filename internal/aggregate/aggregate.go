package aggregate

import (
	"sort"
	"strings"
	"sync"
	"time"

	"portfoliotracker/internal/asset"
	"portfoliotracker/internal/provider"
)

// Key identifies a normalized quote bucket.
type Key struct {
	Symbol   string
	Source   string
	Currency string
}

// Latest is the newest quote per Key.
type Latest struct {
	Symbol     string     `json:"symbol"`
	Source     string     `json:"source"`
	Currency   string     `json:"currency"`
	AssetType  asset.Type `json:"assetType"`
	Price      float64    `json:"price"`
	Simulated  bool       `json:"simulated,omitempty"`
	ReceivedAt time.Time  `json:"received_at"`
}

// aliasMap normalizes source label spellings.
var aliasMap = map[string]string{
	"yahoo":          "Yahoo Finance",
	"yahoo finance":  "Yahoo Finance",
	"yf":             "Yahoo Finance",
	"coingecko":      "CoinGecko",
	"alpha vantage":  "Alpha Vantage",
	"alphavantage":   "Alpha Vantage",
	"fallback":       "Fallback Data",
	"fallback data":  "Fallback Data",
	"mock":           "Mock Data",
	"mock data":      "Mock Data",
	"reference data": "Reference Data",
}

// NormalizeSource trims src and maps known aliases, case-insensitively.
func NormalizeSource(src string) string {
	s := strings.TrimSpace(src)
	if norm, ok := aliasMap[strings.ToLower(s)]; ok {
		return norm
	}
	return s
}

// LatestBySymbol collapses quotes by (Symbol, Source?, Currency) keeping the newest.
// If bySource is false, source is ignored for grouping.
// For equal timestamps, later input wins. A simulated quote never replaces a live one.
// Zero timestamps are replaced with time.Now().UTC().
func LatestBySymbol(quotes []provider.Quote, bySource bool) []Latest {
	now := time.Now().UTC()
	latest := make(map[Key]Latest, len(quotes))

	for _, q := range quotes {
		src := NormalizeSource(q.Source)
		ts := q.ReceivedAt
		if ts.IsZero() {
			ts = now
		}
		key := Key{Symbol: asset.Canonical(q.Symbol), Currency: q.Currency}
		if bySource {
			key.Source = src
		}
		row := Latest{
			Symbol:     key.Symbol,
			Source:     src,
			Currency:   q.Currency,
			AssetType:  q.AssetType,
			Price:      q.Price,
			Simulated:  q.Simulated,
			ReceivedAt: ts,
		}
		cur, ok := latest[key]
		switch {
		case !ok:
			latest[key] = row
		case row.Simulated && !cur.Simulated:
		case !row.Simulated && cur.Simulated, !ts.Before(cur.ReceivedAt):
			latest[key] = row
		}
	}

	out := make([]Latest, 0, len(latest))
	for _, v := range latest {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Currency < out[j].Currency
	})
	return out
}

// Book keeps recently observed quotes for LatestBySymbol queries.
type Book struct {
	mu     sync.Mutex
	max    int
	quotes []provider.Quote
}

// NewBook keeps at most max quotes, dropping the oldest observations first.
func NewBook(max int) *Book {
	if max <= 0 {
		max = 10000
	}
	return &Book{max: max}
}

func (b *Book) Record(quotes ...provider.Quote) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quotes = append(b.quotes, quotes...)
	if over := len(b.quotes) - b.max; over > 0 {
		b.quotes = append([]provider.Quote(nil), b.quotes[over:]...)
	}
}

func (b *Book) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.quotes)
}

// Latest aggregates recorded quotes. An empty symbols list means all.
func (b *Book) Latest(symbols []string, bySource bool) []Latest {
	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[asset.Canonical(s)] = true
	}
	b.mu.Lock()
	sel := make([]provider.Quote, 0, len(b.quotes))
	for _, q := range b.quotes {
		if len(want) == 0 || want[asset.Canonical(q.Symbol)] {
			sel = append(sel, q)
		}
	}
	b.mu.Unlock()
	return LatestBySymbol(sel, bySource)
}
