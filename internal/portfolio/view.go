package portfolio

import (
	"portfoliotracker/internal/provider"
)

// View is a complete valuation in one display currency.
type View struct {
	Summary    Summary           `json:"summary"`
	Holdings   []EnrichedHolding `json:"holdings"`
	Allocation []Allocation      `json:"allocation"`
	Categories []Category        `json:"categories"`
}

// Value enriches holdings and aggregates them into display.
func Value(holdings []Holding, quotes []provider.Quote, display string, conv Converter) View {
	return Aggregate(Enrich(holdings, quotes), display, conv)
}

// Aggregate builds a view from already enriched holdings.
func Aggregate(enriched []EnrichedHolding, display string, conv Converter) View {
	return View{
		Summary:    Summarize(enriched, display, conv),
		Holdings:   enriched,
		Allocation: AllocationBySymbol(enriched, display, conv),
		Categories: AllocationByType(enriched, display, conv),
	}
}

// Currencies lists the distinct holding currencies in order of appearance.
func Currencies(holdings []EnrichedHolding) []string {
	seen := map[string]bool{}
	var out []string
	for _, h := range holdings {
		if h.Currency != "" && !seen[h.Currency] {
			seen[h.Currency] = true
			out = append(out, h.Currency)
		}
	}
	return out
}
