package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"

	"portfoliotracker/internal/asset"
)

type searchCmd struct{}

func (*searchCmd) Name() string     { return "search" }
func (*searchCmd) Synopsis() string { return "search known symbols by ticker or name" }
func (*searchCmd) Usage() string {
	return `tracker search <query>
`
}

func (*searchCmd) SetFlags(*flag.FlagSet) {}

func (*searchCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	q := strings.Join(f.Args(), " ")
	if strings.TrimSpace(q) == "" {
		fail("Query parameter is required")
		return subcommands.ExitUsageError
	}
	results := asset.Search(q)
	if len(results) == 0 {
		fmt.Fprintln(stdout, "no matches")
		return subcommands.ExitSuccess
	}
	var b strings.Builder
	b.WriteString("| Symbol | Name | Type | Exchange | Currency |\n|---|---|---|---|---|\n")
	for _, r := range results {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", r.Symbol, r.Name, r.AssetType, r.Exchange, r.Currency)
	}
	printMarkdown(b.String())
	return subcommands.ExitSuccess
}
