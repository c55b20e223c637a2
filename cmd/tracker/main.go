// Command tracker looks up quotes and exchange rates and values portfolios
// from the command line.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&quoteCmd{}, "market")
	commander.Register(&rateCmd{}, "market")
	commander.Register(&searchCmd{}, "market")

	commander.Register(&valueCmd{}, "portfolio")
	commander.Register(&addTxCmd{}, "portfolio")
	commander.Register(&txsCmd{}, "portfolio")
	commander.Register(&deleteTxCmd{}, "portfolio")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
