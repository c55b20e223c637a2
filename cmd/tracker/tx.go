package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/google/subcommands"

	"portfoliotracker/internal/app"
	"portfoliotracker/internal/portfolio"
)

type addTxCmd struct {
	txType string
	shares float64
	price  float64
	date   string
	name   string
	notes  string
}

func (*addTxCmd) Name() string     { return "add-tx" }
func (*addTxCmd) Synopsis() string { return "record a buy, sell or dividend" }
func (*addTxCmd) Usage() string {
	return `tracker [-user <id>] add-tx -t <BUY|SELL|DIVIDEND> -n <shares> -p <price> [-d <YYYY-MM-DD>] <symbol>
`
}

func (c *addTxCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.txType, "t", string(portfolio.Buy), "Transaction type")
	f.Float64Var(&c.shares, "n", 0, "Number of shares")
	f.Float64Var(&c.price, "p", 0, "Price per share")
	f.StringVar(&c.date, "d", time.Now().Format("2006-01-02"), "Transaction date")
	f.StringVar(&c.name, "name", "", "Company name")
	f.StringVar(&c.notes, "notes", "", "Free-form notes")
}

func (c *addTxCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fail("exactly one symbol is required")
		return subcommands.ExitUsageError
	}
	on, err := time.Parse("2006-01-02", c.date)
	if err != nil {
		fail("Error parsing date: %v", err)
		return subcommands.ExitUsageError
	}
	a, err := openApp()
	if err != nil {
		fail("Error: %v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()
	if a.Store == nil {
		fail("Error: %v", app.ErrNoStore)
		return subcommands.ExitFailure
	}

	tx, err := a.Store.AddTransaction(ctx, portfolio.Transaction{
		UserID:        *userID,
		Symbol:        f.Arg(0),
		CompanyName:   c.name,
		Type:          portfolio.TxType(strings.ToUpper(c.txType)),
		Shares:        c.shares,
		PricePerShare: c.price,
		Date:          on,
		Notes:         c.notes,
	})
	if err != nil {
		fail("Error adding transaction: %v", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(stdout, "%s %s %g @ %g (total %g) id=%s\n", tx.Type, tx.Symbol, tx.Shares, tx.PricePerShare, tx.TotalAmount, tx.ID)
	return subcommands.ExitSuccess
}

type txsCmd struct{}

func (*txsCmd) Name() string     { return "transactions" }
func (*txsCmd) Synopsis() string { return "list recorded transactions, newest first" }
func (*txsCmd) Usage() string {
	return `tracker [-user <id>] transactions
`
}

func (*txsCmd) SetFlags(*flag.FlagSet) {}

func (*txsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fail("Error: %v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()
	if a.Store == nil {
		fail("Error: %v", app.ErrNoStore)
		return subcommands.ExitFailure
	}
	txs, err := a.Store.Transactions(ctx, *userID)
	if err != nil {
		fail("Error loading transactions: %v", err)
		return subcommands.ExitFailure
	}
	var b strings.Builder
	b.WriteString("| Date | Type | Symbol | Shares | Price | Total | ID |\n|---|---|---|---:|---:|---:|---|\n")
	for _, tx := range txs {
		fmt.Fprintf(&b, "| %s | %s | %s | %g | %g | %g | %s |\n",
			tx.Date.Format("2006-01-02"), tx.Type, tx.Symbol, tx.Shares, tx.PricePerShare, tx.TotalAmount, tx.ID)
	}
	printMarkdown(b.String())
	return subcommands.ExitSuccess
}

type deleteTxCmd struct{}

func (*deleteTxCmd) Name() string     { return "delete-tx" }
func (*deleteTxCmd) Synopsis() string { return "delete a transaction by id" }
func (*deleteTxCmd) Usage() string {
	return `tracker [-user <id>] delete-tx <id>
`
}

func (*deleteTxCmd) SetFlags(*flag.FlagSet) {}

func (*deleteTxCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fail("exactly one transaction id is required")
		return subcommands.ExitUsageError
	}
	a, err := openApp()
	if err != nil {
		fail("Error: %v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()
	if a.Store == nil {
		fail("Error: %v", app.ErrNoStore)
		return subcommands.ExitFailure
	}
	if err := a.Store.DeleteTransaction(ctx, *userID, f.Arg(0)); err != nil {
		fail("Error deleting transaction: %v", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintln(stdout, "deleted", f.Arg(0))
	return subcommands.ExitSuccess
}
