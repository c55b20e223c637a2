package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"

	"portfoliotracker/internal/portfolio"
	"portfoliotracker/internal/provider"
)

type quoteCmd struct{}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "fetch current quotes for symbols" }
func (*quoteCmd) Usage() string {
	return `tracker quote <symbol>...

  Fetches quotes for stocks, Thai stocks, crypto and Thai gold.
  Simulated prices are flagged in the Source column.
`
}

func (*quoteCmd) SetFlags(*flag.FlagSet) {}

func (*quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fail("at least one symbol is required")
		return subcommands.ExitUsageError
	}
	a, err := openApp()
	if err != nil {
		fail("Error: %v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	qs := a.FetchQuotes(ctx, f.Args())
	if len(qs) == 0 {
		fail("no quotes available")
		return subcommands.ExitFailure
	}
	printMarkdown(quotesMarkdown(qs))
	return subcommands.ExitSuccess
}

func quotesMarkdown(qs []provider.Quote) string {
	var b strings.Builder
	b.WriteString("# Quotes\n\n")
	b.WriteString("| Symbol | Type | Price | Change | Source |\n")
	b.WriteString("|---|---|---:|---:|---|\n")
	for _, q := range qs {
		src := q.Source
		if q.Simulated {
			src += " (simulated)"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %+.2f (%+.2f%%) | %s |\n",
			q.Symbol, q.AssetType, portfolio.FormatMoney(q.Price, q.Currency), q.Change, q.ChangePercent, src)
	}
	for _, q := range qs {
		if q.Warning != "" {
			fmt.Fprintf(&b, "\n> %s: %s\n", q.Symbol, q.Warning)
		}
	}
	return b.String()
}
