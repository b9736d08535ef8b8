package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/atharvakonge/coin-portfolio-tracker/internal/app"
	"github.com/atharvakonge/coin-portfolio-tracker/internal/config"
	"github.com/atharvakonge/coin-portfolio-tracker/internal/db"
	"github.com/atharvakonge/coin-portfolio-tracker/internal/market"
	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	for _, c := range Commands {
		commander.Register(c, "")
	}
	flag.Parse()

	os.Exit(int(run(commander)))
}

func run(commander *subcommands.Commander) subcommands.ExitStatus {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	// Logs go to stderr so command output stays clean; only warnings by default.
	level := cfg.Logging.Level
	if os.Getenv("LOG_LEVEL") == "" {
		level = "warn"
	}
	logger := config.NewLogger(os.Stderr, level, cfg.Logging.Format)

	ctx := context.Background()
	store, err := db.Open(ctx, cfg.Store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store %s: %v\n", cfg.Store, err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	tracker := app.New(store, market.New(cfg.Market.URL, cfg.Market.Timeout), app.Options{Logger: logger})
	tracker.Restore(ctx)

	return commander.Execute(ctx, &env{tracker: tracker, out: os.Stdout, errOut: os.Stderr})
}
