package validate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"portfoliotracker/internal/asset"
	"portfoliotracker/internal/provider"
)

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Alert reports a price far from its market reference.
type Alert struct {
	Symbol        string    `json:"symbol"`
	CurrentPrice  float64   `json:"currentPrice"`
	ExpectedPrice float64   `json:"expectedPrice"`
	Deviation     float64   `json:"deviation"` // percent
	Severity      Severity  `json:"severity"`
	Timestamp     time.Time `json:"timestamp"`
	Message       string    `json:"message"`
}

// Report summarises the accuracy of a set of quotes.
type Report struct {
	TotalSymbols  int       `json:"totalSymbols"`
	AccurateCount int       `json:"accurateCount"`
	WarningCount  int       `json:"warningCount"`
	ErrorCount    int       `json:"errorCount"`
	Alerts        []Alert   `json:"alerts"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// DefaultReferences are recent market prices used by the accuracy monitor.
func DefaultReferences() map[string]float64 {
	return map[string]float64{
		"NVDA":  158.9,
		"AAPL":  185.25,
		"GOOGL": 140.5,
		"MSFT":  380.75,

		"BH":  137.5,
		"AOT": 30.75,
		"PR9": 24.5,
		"PTT": 35.5,

		"SOL":  152.5,
		"BTC":  43250,
		"ETH":  2680,
		"USDT": 1,

		"GOLD96.5": 51140,
	}
}

// Monitor compares prices with reference market prices.
type Monitor struct {
	refs map[string]float64
	now  func() time.Time
}

// NewMonitor uses refs, or DefaultReferences when refs is nil.
func NewMonitor(refs map[string]float64) *Monitor {
	if refs == nil {
		refs = DefaultReferences()
	}
	return &Monitor{refs: refs, now: time.Now}
}

func severity(deviation float64) (Severity, bool) {
	switch {
	case deviation > 0.5:
		return SeverityCritical, true
	case deviation > 0.2:
		return SeverityHigh, true
	case deviation > 0.1:
		return SeverityMedium, true
	case deviation > 0.05:
		return SeverityLow, true
	}
	return "", false
}

// Check returns an alert when price deviates more than 5% from the
// reference of symbol. Symbols without a reference never alert.
func (m *Monitor) Check(symbol string, price float64) (Alert, bool) {
	symbol = asset.Canonical(symbol)
	expected, ok := m.refs[symbol]
	if !ok || expected <= 0 {
		return Alert{}, false
	}
	deviation := math.Abs(price-expected) / expected
	sev, alert := severity(deviation)
	if !alert {
		return Alert{}, false
	}
	return Alert{
		Symbol:        symbol,
		CurrentPrice:  price,
		ExpectedPrice: expected,
		Deviation:     deviation * 100,
		Severity:      sev,
		Timestamp:     m.now().UTC(),
		Message:       fmt.Sprintf("%s price %s deviates %.1f%% from expected %s", symbol, fmtPrice(price), deviation*100, fmtPrice(expected)),
	}, true
}

// Report checks every quote. Alerts are sorted by deviation, largest first.
func (m *Monitor) Report(quotes []provider.Quote) Report {
	r := Report{TotalSymbols: len(quotes), Alerts: []Alert{}, LastUpdated: m.now().UTC()}
	for _, q := range quotes {
		a, ok := m.Check(q.Symbol, q.Price)
		if !ok {
			r.AccurateCount++
			continue
		}
		r.Alerts = append(r.Alerts, a)
		if a.Severity == SeverityLow || a.Severity == SeverityMedium {
			r.WarningCount++
		} else {
			r.ErrorCount++
		}
	}
	sort.SliceStable(r.Alerts, func(i, j int) bool { return r.Alerts[i].Deviation > r.Alerts[j].Deviation })
	return r
}
