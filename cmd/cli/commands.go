package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/atharvakonge/coin-portfolio-tracker/internal/app"
	"github.com/atharvakonge/coin-portfolio-tracker/internal/models"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// Commands lists every subcommand of the CLI.
var Commands = []subcommands.Command{
	&loginCmd{},
	&logoutCmd{},
	&coinsCmd{},
	&addCmd{},
	&updateCmd{},
	&removeCmd{},
	&portfolioCmd{},
}

// env is handed to every command through Execute's args.
type env struct {
	tracker *app.Tracker
	out     io.Writer
	errOut  io.Writer
}

func envFrom(args []interface{}) *env {
	return args[0].(*env)
}

// report prints err and maps it to an exit status. Storage errors are
// warnings: the command itself went through.
func (e *env) report(err error) subcommands.ExitStatus {
	if err == nil {
		return subcommands.ExitSuccess
	}
	if app.IsStorageError(err) {
		fmt.Fprintf(e.errOut, "Warning: change not saved: %v\n", err)
		return subcommands.ExitSuccess
	}
	fmt.Fprintf(e.errOut, "Error: %v\n", err)
	return subcommands.ExitFailure
}

func (e *env) requireSession() bool {
	if e.tracker.State.Session().IsAuthenticated {
		return true
	}
	fmt.Fprintln(e.errOut, "Not logged in. Run the login command first.")
	return false
}

// refresh fetches prices, warning instead of failing so cached data stays usable.
func (e *env) refresh(ctx context.Context) {
	if _, err := e.tracker.Prices.RefreshOnce(ctx); err != nil {
		fmt.Fprintf(e.errOut, "Warning: could not refresh prices: %v\n", err)
	}
}

type loginCmd struct {
	username string
	password string
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "log in and remember the session" }
func (*loginCmd) Usage() string {
	return `login -u <username> -p <password>
`
}

func (c *loginCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "u", "", "Username.")
	f.StringVar(&c.password, "p", "", "Password.")
}

func (c *loginCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envFrom(args)
	_, err := e.tracker.Auth.Login(ctx, c.username, c.password)
	if errors.Is(err, app.ErrInvalidCredentials) {
		fmt.Fprintln(e.errOut, "Invalid username or password.")
		return subcommands.ExitFailure
	}
	status := e.report(err)
	if status == subcommands.ExitSuccess {
		fmt.Fprintln(e.out, "Logged in.")
	}
	return status
}

type logoutCmd struct{}

func (*logoutCmd) Name() string             { return "logout" }
func (*logoutCmd) Synopsis() string         { return "forget the session" }
func (*logoutCmd) Usage() string            { return "logout\n" }
func (*logoutCmd) SetFlags(_ *flag.FlagSet) {}

func (*logoutCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envFrom(args)
	e.tracker.Auth.Logout(ctx)
	fmt.Fprintln(e.out, "Logged out.")
	return subcommands.ExitSuccess
}

type coinsCmd struct {
	json bool
}

func (*coinsCmd) Name() string     { return "coins" }
func (*coinsCmd) Synopsis() string { return "show the top coins by market cap" }
func (*coinsCmd) Usage() string {
	return `coins [-json]
`
}

func (c *coinsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.json, "json", false, "Print JSON instead of a table.")
}

func (c *coinsCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envFrom(args)
	coins, err := e.tracker.Prices.RefreshOnce(ctx)
	if err != nil {
		return e.report(err)
	}
	if c.json {
		return e.printJSON(coins)
	}

	w := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "#\tCoin\tSymbol\tPrice\t24h\t")
	for i, coin := range coins {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s%%\t\n",
			i+1, coin.Name, coin.Symbol, models.FormatUSD(coin.CurrentPrice), coin.ChangePercent24h.StringFixed(2))
	}
	w.Flush()
	return subcommands.ExitSuccess
}

type addCmd struct {
	coin string
	qty  string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "add a holding, replacing any existing one for the coin" }
func (*addCmd) Usage() string {
	return `add -coin <id> -qty <quantity>
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.coin, "coin", "", "Coin id, e.g. bitcoin.")
	f.StringVar(&c.qty, "qty", "", "Quantity held.")
}

func (c *addCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envFrom(args)
	if !e.requireSession() {
		return subcommands.ExitFailure
	}
	qty, err := decimal.NewFromString(c.qty)
	if err != nil {
		fmt.Fprintf(e.errOut, "Invalid quantity %q\n", c.qty)
		return subcommands.ExitUsageError
	}

	e.refresh(ctx)
	coin, err := e.tracker.Prices.Coin(c.coin)
	if err != nil {
		return e.report(fmt.Errorf("%s: %w", c.coin, err))
	}
	item, err := e.tracker.Portfolio.Add(ctx, coin, qty)
	status := e.report(err)
	if status == subcommands.ExitSuccess {
		fmt.Fprintf(e.out, "%s %s = %s\n", item.Quantity, item.Symbol, models.FormatUSD(item.Value))
	}
	return status
}

type updateCmd struct {
	coin  string
	delta string
}

func (*updateCmd) Name() string     { return "update" }
func (*updateCmd) Synopsis() string { return "change the quantity of a holding by a delta" }
func (*updateCmd) Usage() string {
	return `update -coin <id> -delta <signed quantity>
`
}

func (c *updateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.coin, "coin", "", "Coin id of the holding.")
	f.StringVar(&c.delta, "delta", "", "Amount to add (negative to reduce).")
}

func (c *updateCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envFrom(args)
	if !e.requireSession() {
		return subcommands.ExitFailure
	}
	delta, err := decimal.NewFromString(c.delta)
	if err != nil {
		fmt.Fprintf(e.errOut, "Invalid delta %q\n", c.delta)
		return subcommands.ExitUsageError
	}

	e.refresh(ctx)
	item, err := e.tracker.Portfolio.UpdateQuantity(ctx, c.coin, delta)
	status := e.report(err)
	if status == subcommands.ExitSuccess {
		fmt.Fprintf(e.out, "%s %s = %s\n", item.Quantity, item.Symbol, models.FormatUSD(item.Value))
	}
	return status
}

type removeCmd struct {
	coin string
}

func (*removeCmd) Name() string     { return "remove" }
func (*removeCmd) Synopsis() string { return "remove a holding" }
func (*removeCmd) Usage() string {
	return `remove -coin <id>
`
}

func (c *removeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.coin, "coin", "", "Coin id of the holding.")
}

func (c *removeCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envFrom(args)
	if !e.requireSession() {
		return subcommands.ExitFailure
	}
	status := e.report(e.tracker.Portfolio.Remove(ctx, c.coin))
	if status == subcommands.ExitSuccess {
		fmt.Fprintf(e.out, "Removed %s.\n", c.coin)
	}
	return status
}

type portfolioCmd struct {
	json    bool
	offline bool
}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "show holdings and total value" }
func (*portfolioCmd) Usage() string {
	return `portfolio [-json] [-offline]
`
}

func (c *portfolioCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.json, "json", false, "Print JSON instead of a table.")
	f.BoolVar(&c.offline, "offline", false, "Use the saved prices without refreshing.")
}

func (c *portfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := envFrom(args)
	if !e.requireSession() {
		return subcommands.ExitFailure
	}
	if !c.offline {
		e.refresh(ctx)
	}

	items := e.tracker.Portfolio.Items()
	total := e.tracker.Portfolio.TotalValue()
	if c.json {
		if items == nil {
			items = []models.PortfolioItem{}
		}
		return e.printJSON(models.PortfolioResponse{
			Items:             items,
			TotalValue:        total,
			TotalValueDisplay: models.FormatUSD(total),
		})
	}

	w := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Coin\tQuantity\tPrice\tValue\t")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", it.Name, it.Quantity, models.FormatUSD(it.CurrentPrice), models.FormatUSD(it.Value))
	}
	fmt.Fprintf(w, "Total\t\t\t%s\t\n", models.FormatUSD(total))
	w.Flush()
	return subcommands.ExitSuccess
}

func (e *env) printJSON(v any) subcommands.ExitStatus {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(e.errOut, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
