package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/subcommands"
	"skinwatch/internal/config"
	"skinwatch/internal/engine"
	"skinwatch/internal/history"
	"skinwatch/internal/logger"
	"skinwatch/internal/price"
	"skinwatch/internal/provider"
)

var global struct {
	config      string
	currency    string
	refreshRate bool
}

var stdout io.Writer = os.Stdout

// setup loads config and builds a runtime without background refreshers.
func setup(ctx context.Context) (*engine.Runtime, price.Currency, *slog.Logger, error) {
	cur, ok := engine.ParseCurrency(strings.ToUpper(global.currency))
	if !ok {
		return nil, "", nil, fmt.Errorf("unsupported currency %q", global.currency)
	}
	cfg, err := config.Load(global.config)
	if err != nil {
		return nil, "", nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", nil, err
	}
	log := logger.NewWithWriter(os.Stderr, cfg.Log.Level)
	rt, err := engine.Build(ctx, cfg, log)
	if err != nil {
		return nil, "", nil, err
	}
	if global.refreshRate && cur != price.USD {
		rt.FX.Refresh(ctx)
	}
	return rt, cur, log, nil
}

// run wraps the common setup and teardown of a command.
func run(ctx context.Context, fn func(*engine.Runtime, price.Currency, *slog.Logger) error) subcommands.ExitStatus {
	rt, cur, log, err := setup(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Warn("close", "err", err)
		}
	}()
	if err := fn(rt, cur, log); err != nil {
		log.Error("command failed", "err", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// catalogRefresher reloads the image catalog.
type catalogRefresher interface {
	Refresh(ctx context.Context) error
}

// refreshImages loads the image catalog once. A failure keeps whatever the
// warm start loaded and results fall back to placeholder images.
func refreshImages(ctx context.Context, c catalogRefresher, log *slog.Logger) {
	if err := c.Refresh(ctx); err != nil {
		log.Warn("image catalog refresh failed, using placeholders", "err", err)
	}
}

type searchCmd struct {
	images bool
}

func (*searchCmd) Name() string     { return "search" }
func (*searchCmd) Synopsis() string { return "search items by name across marketplaces" }
func (*searchCmd) Usage() string {
	return "search [-images=false] <query>:\n  Print merged items ranked by lowest price.\n"
}

func (c *searchCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.images, "images", true, "download the image catalog before searching; when false only catalog.file is used")
}

func (c *searchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	query := strings.Join(f.Args(), " ")
	if strings.TrimSpace(query) == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	return run(ctx, func(rt *engine.Runtime, cur price.Currency, log *slog.Logger) error {
		if c.images {
			refreshImages(ctx, rt.Catalog, log)
		}
		items, err := rt.Engine.SearchItems(ctx, query)
		if err != nil {
			return err
		}
		return printJSON(engine.Present(items, cur, rt.Engine.Rate()))
	})
}

type historyCmd struct {
	name      string
	source    string
	force     string
	csfloatID string
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "print the price history of an item" }
func (*historyCmd) Usage() string {
	return "history [-name <market name>] [-source|-force <tag>] [-csfloat-id <id>] <item id>:\n  Print the resolved history series.\n"
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "market name, enables the steam fallback")
	f.StringVar(&c.source, "source", "", "preferred marketplace for the item id")
	f.StringVar(&c.force, "force", "", "only consult this marketplace")
	f.StringVar(&c.csfloatID, "csfloat-id", "", "csfloat listing id")
}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	preferred, err := provider.ParseTag(c.source)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	forced, err := provider.ParseTag(c.force)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	req := history.Request{
		ItemID:    f.Arg(0),
		ItemName:  c.name,
		Preferred: preferred,
		Forced:    forced,
		IDs:       map[provider.Tag]string{provider.CSFloat: c.csfloatID},
	}
	if req.ItemID == "" && req.ItemName == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	return run(ctx, func(rt *engine.Runtime, cur price.Currency, _ *slog.Logger) error {
		h := rt.Engine.GetHistory(ctx, req)
		return printJSON(engine.PresentHistory(h, cur, rt.Engine.Rate()))
	})
}

type priceCmd struct{}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "print the latest steam price of an item" }
func (*priceCmd) Usage() string {
	return "price <market name>:\n  Print the last steam history point, or null.\n"
}
func (*priceCmd) SetFlags(*flag.FlagSet) {}

func (*priceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	name := strings.TrimSpace(strings.Join(f.Args(), " "))
	if name == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	return run(ctx, func(rt *engine.Runtime, cur price.Currency, _ *slog.Logger) error {
		var out *engine.PriceView
		if p := rt.Engine.GetCurrentPrice(ctx, name); p.Valid {
			v := engine.NewPriceView(p.Decimal, cur, rt.Engine.Rate())
			out = &v
		}
		return printJSON(out)
	})
}

type detailsCmd struct{}

func (*detailsCmd) Name() string     { return "details" }
func (*detailsCmd) Synopsis() string { return "print the raw bitskins record of an item" }
func (*detailsCmd) Usage() string {
	return "details <item id>:\n  Print the marketplace record unchanged.\n"
}
func (*detailsCmd) SetFlags(*flag.FlagSet) {}

func (*detailsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	return run(ctx, func(rt *engine.Runtime, _ price.Currency, _ *slog.Logger) error {
		raw, err := rt.Engine.ItemDetails(ctx, f.Arg(0))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, string(raw))
		return err
	})
}

type rateCmd struct{}

func (*rateCmd) Name() string           { return "rate" }
func (*rateCmd) Synopsis() string       { return "print the USD to BRL exchange rate" }
func (*rateCmd) Usage() string          { return "rate:\n  Fetch and print the current exchange rate.\n" }
func (*rateCmd) SetFlags(*flag.FlagSet) {}

func (*rateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return run(ctx, func(rt *engine.Runtime, _ price.Currency, _ *slog.Logger) error {
		rt.FX.Refresh(ctx)
		return printJSON(rt.Engine.Rate())
	})
}
