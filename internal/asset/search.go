package asset

import (
	"sort"
	"strings"
)

// Info describes a searchable symbol.
type Info struct {
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	Exchange  string `json:"exchange"`
	Currency  string `json:"currency"`
	AssetType Type   `json:"assetType"`
}

// MaxSearchResults bounds the result of Search.
const MaxSearchResults = 15

var thaiStockNames = map[string]string{
	"BH":     "Bumrungrad Hospital",
	"PTT":    "PTT Public Company Limited",
	"CPALL":  "CP ALL",
	"KBANK":  "Kasikornbank",
	"SCB":    "Siam Commercial Bank",
	"BBL":    "Bangkok Bank",
	"ADVANC": "Advanced Info Service",
	"AOT":    "Airports of Thailand",
	"PR9":    "Praram 9 Hospital Public Company Limited",
	"TRUE":   "True Corporation",
	"DTAC":   "Total Access Communication",
	"GULF":   "Gulf Energy Development",
	"RATCH":  "Ratchaburi Electricity Generating Holding",
}

type named struct{ symbol, name string }

var commonStocks = []named{
	{"AAPL", "Apple Inc."},
	{"GOOGL", "Alphabet Inc."},
	{"MSFT", "Microsoft Corporation"},
	{"AMZN", "Amazon.com Inc."},
	{"TSLA", "Tesla Inc."},
	{"META", "Meta Platforms Inc."},
	{"NVDA", "NVIDIA Corporation"},
	{"NFLX", "Netflix Inc."},
}

var commonCrypto = []named{
	{"BTC", "Bitcoin"},
	{"ETH", "Ethereum"},
	{"SOL", "Solana"},
	{"ADA", "Cardano"},
	{"XRP", "Ripple"},
	{"DOGE", "Dogecoin"},
	{"USDT", "Tether USD"},
	{"USDC", "USD Coin"},
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Search matches symbols and display names across every asset type.
// Per-type caps: gold 3, Thai stocks 8, US stocks 5, crypto 5.
func Search(query string) []Info {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	out := make([]Info, 0, MaxSearchResults)

	gold := 0
	for _, s := range sortedKeys(thaiGoldSymbols) {
		if gold == 3 {
			break
		}
		if !strings.Contains(strings.ToLower(s), q) && !strings.Contains("gold", q) {
			continue
		}
		name := "Thai Gold"
		if s == "GOLD96.5" || s == "GOLD965" {
			name = "Thai Gold 96.5%"
		}
		out = append(out, Info{Symbol: s, Name: name, Exchange: "THAI_GOLD", Currency: "THB", AssetType: ThaiGold})
		gold++
	}

	thai := 0
	for _, s := range sortedKeys(thaiStockSymbols) {
		if thai == 8 {
			break
		}
		name, known := thaiStockNames[s]
		if !strings.Contains(strings.ToLower(s), q) && !(known && strings.Contains(strings.ToLower(name), q)) {
			continue
		}
		if !known {
			name = s + " - Thai Stock"
		}
		out = append(out, Info{Symbol: s, Name: name, Exchange: "SET", Currency: "THB", AssetType: ThaiStock})
		thai++
	}

	out = appendNamed(out, commonStocks, q, 5, Info{Exchange: "NASDAQ/NYSE", Currency: "USD", AssetType: Stock})
	out = appendNamed(out, commonCrypto, q, 5, Info{Exchange: "CRYPTO", Currency: "USD", AssetType: Crypto})

	if len(out) > MaxSearchResults {
		out = out[:MaxSearchResults]
	}
	return out
}

func appendNamed(out []Info, list []named, q string, limit int, tmpl Info) []Info {
	n := 0
	for _, it := range list {
		if n == limit {
			break
		}
		if !strings.Contains(strings.ToLower(it.symbol), q) && !strings.Contains(strings.ToLower(it.name), q) {
			continue
		}
		info := tmpl
		info.Symbol = it.symbol
		info.Name = it.name
		out = append(out, info)
		n++
	}
	return out
}
