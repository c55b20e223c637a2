// Package asset classifies ticker symbols into market categories using
// fixed allow-lists. Symbols found in no list are treated as US stocks.
package asset

import "strings"

// Type is the market category of a symbol.
type Type string

const (
	Stock     Type = "STOCK"
	ThaiStock Type = "THAI_STOCK"
	Crypto    Type = "CRYPTO"
	ThaiGold  Type = "THAI_GOLD"
)

// Types lists every asset type in stable enum order.
func Types() []Type { return []Type{Stock, ThaiStock, Crypto, ThaiGold} }

// Canonical trims and upper-cases a symbol.
func Canonical(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func setOf(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}

var thaiGoldSymbols = setOf("GOLD96.5", "GOLD965", "GOLD", "XAU", "THGOLD")

var usStockSymbols = setOf(
	"AAPL", "GOOGL", "GOOG", "MSFT", "AMZN", "TSLA", "META", "NVDA", "NFLX", "DIS",
	"IBM", "JPM", "V", "JNJ", "WMT", "PG", "KO", "PEP", "MCD", "NKE",
	"INTC", "AMD", "CRM", "ORCL", "ADBE", "PYPL", "UBER", "LYFT", "SNAP", "TWTR",
	"BA", "CAT", "GE", "MMM", "HON", "UNH", "CVX", "XOM", "T", "VZ",
)

var cryptoSymbols = setOf(
	"BTC", "ETH", "ADA", "DOT", "SOL", "MATIC", "AVAX", "LINK", "UNI", "AAVE",
	"XRP", "DOGE", "LTC", "BNB", "USDT", "USDC", "BUSD", "AXS", "SAND", "MANA",
)

var thaiStockSymbols = setOf(
	"KBANK", "SCB", "BBL", "KTB", "TMB", "TISCO", "TCAP", "KKP", "LHFG", "SAWAD",
	"PTT", "PTTEP", "BANPU", "RATCH", "EGCO", "EA", "GULF", "GPSC", "CKP", "BCPG",
	"CPALL", "HMPRO", "MAKRO", "BJC", "CRC", "ROBINS", "SINGER", "COM7", "DOHOME", "ADVANC",
	"INTUCH", "TRUE", "DTAC", "SAMART", "JAS", "SYNEX", "MFEC", "SVT", "BH", "CHG",
	"BDMS", "BCH", "RJH", "PR9", "VIBHA", "NEW", "VIH", "PRINC", "AOT", "BEM",
	"BTS", "KERRY", "TTA", "PSL", "NYT", "WICE", "TKN", "TFFIF",
)

// Classify maps a symbol to its asset type. First match wins:
// Thai gold, US allow-list, crypto, Thai stock, then US stock by default.
func Classify(symbol string) Type {
	s := Canonical(symbol)

	if _, ok := thaiGoldSymbols[s]; ok || strings.HasPrefix(s, "GOLD") {
		return ThaiGold
	}
	// must run before the crypto and Thai heuristics
	if _, ok := usStockSymbols[s]; ok {
		return Stock
	}
	if _, ok := cryptoSymbols[s]; ok || strings.Contains(s, "USD") {
		return Crypto
	}
	if _, ok := thaiStockSymbols[s]; ok || strings.HasSuffix(s, ".BK") {
		return ThaiStock
	}
	return Stock
}

// Label is the human readable name of an asset type.
func Label(t Type) string {
	switch t {
	case ThaiStock:
		return "Thai Stock"
	case Crypto:
		return "Crypto"
	case ThaiGold:
		return "Thai Gold"
	default:
		return "US Stock"
	}
}

// DefaultCurrency is the quote currency used when a provider does not report one.
func DefaultCurrency(t Type) string {
	switch t {
	case ThaiStock, ThaiGold:
		return "THB"
	default:
		return "USD"
	}
}

// DefaultExchange is the exchange label used when a provider does not report one.
func DefaultExchange(t Type) string {
	switch t {
	case ThaiStock:
		return "SET"
	case Crypto:
		return "CRYPTO"
	case ThaiGold:
		return "THAI_GOLD"
	default:
		return "NASDAQ/NYSE"
	}
}
