package fx

import (
	"strings"

	"portfoliotracker/internal/provider"
)

// Table is a snapshot of exchange rates used for pure conversions.
// Adding a rate also stores its reciprocal, so converting there and back
// returns the original amount up to float rounding.
type Table struct {
	rates map[string]float64
}

func key(from, to string) string { return from + "_" + to }

func NewTable(rates ...provider.ExchangeRate) Table {
	t := Table{rates: make(map[string]float64, len(rates)*2)}
	for _, r := range rates {
		t.Add(r.From, r.To, r.Rate)
	}
	return t
}

// Add records rate for from→to and 1/rate for to→from.
func (t Table) Add(from, to string, rate float64) {
	if t.rates == nil || rate <= 0 || !finite(rate) {
		return
	}
	from, to = Normalize(from), Normalize(to)
	if from == to {
		return
	}
	t.rates[key(from, to)] = rate
	t.rates[key(to, from)] = 1 / rate
}

func (t Table) direct(from, to string) (float64, bool) {
	if from == to {
		return 1, true
	}
	r, ok := t.rates[key(from, to)]
	return r, ok
}

// Rate finds from→to directly, or crossed through USD.
func (t Table) Rate(from, to string) (float64, bool) {
	from, to = Normalize(from), Normalize(to)
	if r, ok := t.direct(from, to); ok {
		return r, true
	}
	a, ok1 := t.direct(from, "USD")
	b, ok2 := t.direct("USD", to)
	if ok1 && ok2 {
		return a * b, true
	}
	return 0, false
}

// Convert converts amount between currencies. With no known path the amount
// is returned unchanged.
func (t Table) Convert(amount float64, from, to string) float64 {
	r, ok := t.Rate(from, to)
	if !ok {
		return amount
	}
	return amount * r
}

// Pairs returns a copy of the stored rates keyed "FROM_TO".
func (t Table) Pairs() map[string]float64 {
	out := make(map[string]float64, len(t.rates))
	for k, v := range t.rates {
		out[k] = v
	}
	return out
}

// Normalize upper-cases and trims a currency code.
func Normalize(c string) string { return strings.ToUpper(strings.TrimSpace(c)) }

// ValidCurrency reports whether c looks like an ISO 4217 code.
func ValidCurrency(c string) bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
