package aggregate

import (
	"testing"
	"time"

	"portfoliotracker/internal/provider"
)

func TestLatest_NewestWinsAcrossSources(t *testing.T) {
	t1 := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	t2 := t1.Add(1 * time.Hour)

	in := []provider.Quote{
		{Symbol: "AAPL", Price: 185, Currency: "USD", Source: "Yahoo Finance", ReceivedAt: t1},
		{Symbol: "aapl", Price: 186, Currency: "USD", Source: "Alpha Vantage", ReceivedAt: t2},
	}

	out := LatestBySymbol(in, false)
	if len(out) != 1 {
		t.Fatalf("want 1, got %d: %+v", len(out), out)
	}
	got := out[0]
	if got.Symbol != "AAPL" || got.Source != "Alpha Vantage" || got.Price != 186 || !got.ReceivedAt.Equal(t2) {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestLatest_SourceSeparation_WhenEnabledOrDisabled(t *testing.T) {
	t1 := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	t2 := t1.Add(1 * time.Minute)

	in := []provider.Quote{
		{Symbol: "MSFT", Price: 380, Currency: "USD", Source: "yahoo", ReceivedAt: t1},
		{Symbol: "MSFT", Price: 381, Currency: "USD", Source: "alphavantage", ReceivedAt: t2},
	}

	outTrue := LatestBySymbol(in, true)
	if len(outTrue) != 2 {
		t.Fatalf("want 2 rows with bySource=true, got %d: %+v", len(outTrue), outTrue)
	}
	if outTrue[0].Source != "Alpha Vantage" || outTrue[1].Source != "Yahoo Finance" {
		t.Fatalf("unexpected sources: %+v", outTrue)
	}

	outFalse := LatestBySymbol(in, false)
	if len(outFalse) != 1 {
		t.Fatalf("want 1 row with bySource=false, got %d: %+v", len(outFalse), outFalse)
	}
	if outFalse[0].Price != 381 || !outFalse[0].ReceivedAt.Equal(t2) {
		t.Fatalf("unexpected collapsed row: %+v", outFalse[0])
	}
}

func TestLatest_SimulatedNeverReplacesLive(t *testing.T) {
	t1 := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	in := []provider.Quote{
		{Symbol: "BTC", Price: 43000, Currency: "USD", Source: "CoinGecko", ReceivedAt: t1},
		{Symbol: "BTC", Price: 43250, Currency: "USD", Source: "Fallback Data", ReceivedAt: t1.Add(time.Hour), Simulated: true},
	}
	out := LatestBySymbol(in, false)
	if len(out) != 1 || out[0].Source != "CoinGecko" || out[0].Simulated {
		t.Fatalf("unexpected: %+v", out)
	}

	// a live quote replaces an earlier simulated one even if older
	in = []provider.Quote{in[1], in[0]}
	out = LatestBySymbol(in, false)
	if len(out) != 1 || out[0].Source != "CoinGecko" {
		t.Fatalf("unexpected: %+v", out)
	}
}

func TestLatest_EqualTimestamps_LaterInputWins(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	in := []provider.Quote{
		{Symbol: "PTT", Price: 35, Currency: "THB", Source: "Yahoo Finance", ReceivedAt: ts},
		{Symbol: "PTT", Price: 35.25, Currency: "THB", Source: "Yahoo Finance", ReceivedAt: ts},
	}
	out := LatestBySymbol(in, true)
	if len(out) != 1 || out[0].Price != 35.25 {
		t.Fatalf("unexpected: %+v", out)
	}
}

func TestLatest_MixedCurrencies_DoNotCollapse(t *testing.T) {
	t1 := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	t2 := t1.Add(1 * time.Minute)
	in := []provider.Quote{
		{Symbol: "PTT", Price: 1, Currency: "USD", Source: "Yahoo Finance", ReceivedAt: t1},
		{Symbol: "PTT", Price: 35.5, Currency: "THB", Source: "Yahoo Finance", ReceivedAt: t2},
	}
	out := LatestBySymbol(in, false)
	if len(out) != 2 {
		t.Fatalf("want 2 rows (distinct currencies), got %d: %+v", len(out), out)
	}
	seen := map[string]bool{}
	for _, r := range out {
		seen[r.Currency] = true
	}
	if !seen["USD"] || !seen["THB"] {
		t.Fatalf("currencies not both present: %+v", out)
	}
}

func TestNormalizeSource_Aliases_Casing(t *testing.T) {
	cases := map[string]string{
		" YAHOO ":       "Yahoo Finance",
		"CoinGecko":     "CoinGecko",
		"ALPHA VANTAGE": "Alpha Vantage",
		"mock":          "Mock Data",
		"Bank X":        "Bank X",
	}
	for in, want := range cases {
		if got := NormalizeSource(in); got != want {
			t.Fatalf("NormalizeSource(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBook_RecordAndFilter(t *testing.T) {
	b := NewBook(3)
	t1 := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	b.Record(
		provider.Quote{Symbol: "AAPL", Price: 1, Currency: "USD", Source: "Yahoo Finance", ReceivedAt: t1},
		provider.Quote{Symbol: "BTC", Price: 2, Currency: "USD", Source: "CoinGecko", ReceivedAt: t1},
	)
	b.Record(
		provider.Quote{Symbol: "ETH", Price: 3, Currency: "USD", Source: "CoinGecko", ReceivedAt: t1},
		provider.Quote{Symbol: "AAPL", Price: 4, Currency: "USD", Source: "Yahoo Finance", ReceivedAt: t1.Add(time.Second)},
	)
	if b.Len() != 3 {
		t.Fatalf("want 3 kept, got %d", b.Len())
	}
	out := b.Latest([]string{"aapl"}, false)
	if len(out) != 1 || out[0].Price != 4 {
		t.Fatalf("unexpected: %+v", out)
	}
	if all := b.Latest(nil, false); len(all) != 3 {
		t.Fatalf("want 3 symbols, got %+v", all)
	}
}
