package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"portfoliotracker/internal/asset"
	"portfoliotracker/internal/provider"
)

func TestQuotesMarkdown(t *testing.T) {
	md := quotesMarkdown([]provider.Quote{
		{Symbol: "AAPL", Price: 185.25, Change: 1.5, ChangePercent: 0.82, Currency: "USD", AssetType: asset.Stock, Source: "Yahoo Finance"},
		{Symbol: "GOLD96.5", Price: 51140, Currency: "THB", AssetType: asset.ThaiGold, Source: "Mock Data", Simulated: true, Warning: "stale"},
	})
	require.Contains(t, md, "| AAPL | STOCK | $185.25 | +1.50 (+0.82%) | Yahoo Finance |")
	require.Contains(t, md, "Mock Data (simulated)")
	require.Contains(t, md, "> GOLD96.5: stale")
}
