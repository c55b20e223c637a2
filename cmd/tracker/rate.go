package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"portfoliotracker/internal/fx"
)

type rateCmd struct {
	amount float64
}

func (*rateCmd) Name() string     { return "rate" }
func (*rateCmd) Synopsis() string { return "show the exchange rate between two currencies" }
func (*rateCmd) Usage() string {
	return `tracker rate [-a <amount>] <from> <to>

  Prints the rate converting one unit of <from> into <to>.
`
}

func (c *rateCmd) SetFlags(f *flag.FlagSet) {
	f.Float64Var(&c.amount, "a", 1, "Amount to convert")
}

func (c *rateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fail("usage: %s", c.Usage())
		return subcommands.ExitUsageError
	}
	from, to := fx.Normalize(f.Arg(0)), fx.Normalize(f.Arg(1))
	if !fx.ValidCurrency(from) || !fx.ValidCurrency(to) {
		fail("invalid currency pair %s/%s", from, to)
		return subcommands.ExitUsageError
	}
	a, err := openApp()
	if err != nil {
		fail("Error: %v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	r := a.FX.GetRate(ctx, from, to)
	fmt.Fprintf(stdout, "%g %s = %.6g %s (rate %.6g, source %s, %s)\n",
		c.amount, from, c.amount*r.Rate, to, r.Rate, r.Source, r.Timestamp.Format("2006-01-02 15:04"))
	return subcommands.ExitSuccess
}
