package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"

	"portfoliotracker/internal/app"
	"portfoliotracker/internal/config"
	"portfoliotracker/internal/logging"
)

var (
	configFile = flag.String("config", os.Getenv("CONFIG_FILE"), "Path to the TOML configuration file")
	logLevel   = flag.String("log-level", "warn", "Log level: debug, info, warn or error")
	userID     = flag.String("user", "default", "Portfolio owner")
	plain      = flag.Bool("plain", false, "Print raw markdown instead of rendering it")
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// openApp loads configuration and builds the pipeline. Logs go to stderr so
// reports on stdout stay clean.
var openApp = func() (*app.App, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return app.New(cfg, logging.New(*logLevel))
}

// printMarkdown renders md for the terminal, falling back to raw text.
func printMarkdown(md string) {
	if *plain {
		fmt.Fprint(stdout, md)
		return
	}
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Fprint(stdout, md)
		return
	}
	fmt.Fprint(stdout, out)
}

func fail(format string, args ...any) {
	fmt.Fprintf(stderr, format+"\n", args...)
}
