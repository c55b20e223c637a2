package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"portfoliotracker/internal/portfolio"
)

// valueCmd holds the flags for the 'value' subcommand.
type valueCmd struct {
	currency string
}

func (*valueCmd) Name() string     { return "value" }
func (*valueCmd) Synopsis() string { return "value the portfolio at current prices" }
func (*valueCmd) Usage() string {
	return `tracker [-user <id>] value [-c <currency>]

  Prices every holding, converts to the display currency and prints
  totals, per-holding gains and the allocation.
`
}

func (c *valueCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "c", "", "Display currency (default from configuration)")
}

func (c *valueCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fail("Error: %v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	v, err := a.Portfolio(ctx, *userID, c.currency)
	if err != nil {
		fail("Error valuing portfolio: %v", err)
		return subcommands.ExitFailure
	}
	printMarkdown(portfolio.Markdown(v.View))
	return subcommands.ExitSuccess
}
