package portfolio

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatMoney renders amount with the currency's symbol and fraction digits.
func FormatMoney(amount float64, code string) string {
	cur := money.New(0, code).Currency()
	if cur.Grapheme == "" {
		return fmt.Sprintf("%.2f %s", nz(amount), code)
	}
	minor := decimal.NewFromFloat(nz(amount)).Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

func signedMoney(amount float64, code string) string {
	if amount > 0 {
		return "+" + FormatMoney(amount, code)
	}
	return FormatMoney(amount, code)
}

func signedPercent(p float64) string { return fmt.Sprintf("%+.2f%%", nz(p)) }

// Markdown renders the view as a markdown report.
func Markdown(v View) string {
	var b strings.Builder
	cur := v.Summary.Currency

	b.WriteString("# Portfolio\n\n")
	b.WriteString("| | |\n|:--|--:|\n")
	fmt.Fprintf(&b, "| **Total Value** | **%s** |\n", FormatMoney(v.Summary.TotalValue, cur))
	fmt.Fprintf(&b, "| Total Cost | %s |\n", FormatMoney(v.Summary.TotalCost, cur))
	fmt.Fprintf(&b, "| Gain/Loss | %s (%s) |\n", signedMoney(v.Summary.TotalGainLoss, cur), signedPercent(v.Summary.TotalGainLossPercent))
	fmt.Fprintf(&b, "| Day Change | %s (%s) |\n", signedMoney(v.Summary.DayChange, cur), signedPercent(v.Summary.DayChangePercent))

	if len(v.Holdings) > 0 {
		b.WriteString("\n## Holdings\n\n")
		b.WriteString("| Symbol | Type | Shares | Price | Value | Gain/Loss | Source |\n")
		b.WriteString("|:--|:--|--:|--:|--:|--:|:--|\n")
		for _, h := range v.Holdings {
			src := h.Source
			if h.Simulated {
				src += " (simulated)"
			}
			if src == "" {
				src = "-"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s (%s) | %s |\n",
				h.Symbol,
				h.AssetType,
				decimal.NewFromFloat(nz(h.TotalShares)).String(),
				FormatMoney(h.CurrentPrice, h.Currency),
				FormatMoney(h.CurrentValue, h.Currency),
				signedMoney(h.GainLoss, h.Currency),
				signedPercent(h.GainLossPercent),
				src,
			)
		}
	}

	if len(v.Allocation) > 0 {
		b.WriteString("\n## Allocation\n\n")
		b.WriteString("| Symbol | Value | Share |\n|:--|--:|--:|\n")
		for _, a := range v.Allocation {
			fmt.Fprintf(&b, "| %s | %s | %.2f%% |\n", a.Symbol, FormatMoney(a.Value, cur), a.Percent)
		}
	}
	if len(v.Categories) > 0 {
		b.WriteString("\n| Category | Value | Share |\n|:--|--:|--:|\n")
		for _, c := range v.Categories {
			fmt.Fprintf(&b, "| %s | %s | %.2f%% |\n", c.Label, FormatMoney(c.Value, cur), c.Percent)
		}
	}
	return b.String()
}
