package fx

import (
	"time"

	"portfoliotracker/internal/provider"
)

// FallbackDate is when the static rates were last reviewed.
const FallbackDate = "2025-01-14"

const FallbackSource = "Fallback (" + FallbackDate + ")"

// NoPathSource labels the identity rate used when no static path exists.
const NoPathSource = "Fallback (no path)"

// StaticTable holds the dated fallback rates.
func StaticTable() Table {
	t := NewTable()
	t.Add("USD", "THB", 35.5)
	t.Add("EUR", "USD", 1.08)
	t.Add("GBP", "USD", 1.25)
	t.Add("JPY", "USD", 0.0067)
	return t
}

// Fallback returns the static rate for a pair. Pairs with no path get a rate
// of 1 labelled NoPathSource, which leaves amounts unchanged.
func Fallback(from, to string, now time.Time) provider.ExchangeRate {
	r, ok := StaticTable().Rate(from, to)
	if !ok {
		return provider.ExchangeRate{From: from, To: to, Rate: 1, Source: NoPathSource, Timestamp: now.UTC()}
	}
	return provider.ExchangeRate{From: from, To: to, Rate: r, Source: FallbackSource, Timestamp: now.UTC()}
}

var FallbackInfo = provider.SourceInfo{
	Label:           FallbackSource,
	Name:            "Fallback Rates",
	Description:     "Static rates when APIs unavailable",
	UpdateFrequency: "Manual updates",
	Reliability:     "Low",
	Free:            true,
	Kind:            "rate",
}
