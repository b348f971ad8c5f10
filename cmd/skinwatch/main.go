// Command skinwatch queries the price engine from the terminal.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&searchCmd{}, "")
	subcommands.Register(&historyCmd{}, "")
	subcommands.Register(&priceCmd{}, "")
	subcommands.Register(&detailsCmd{}, "")
	subcommands.Register(&rateCmd{}, "")

	flag.StringVar(&global.config, "config", "", "path to config.json (default $CONFIG_FILE or ./config.json)")
	flag.StringVar(&global.currency, "currency", "USD", "display currency: USD or BRL")
	flag.BoolVar(&global.refreshRate, "refresh-rate", true, "fetch the exchange rate before printing")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := subcommands.Execute(ctx)
	stop()
	os.Exit(int(code))
}
