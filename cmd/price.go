package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/ifolio/ifolio"
	"github.com/ifolio/ifolio/date"
)

// priceCmd holds the flags for the 'price' subcommand.
type priceCmd struct {
	on string
}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "resolve the closing price of a ticker" }
func (*priceCmd) Usage() string {
	return `ifolio price [-d <date>] <ticker>...

  Resolves the closing price of each ticker on a date, fetching and caching
  it if the database does not have it yet.
`
}

func (c *priceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.on, "d", ifolio.Today().String(), "Quote date (YYYY-MM-DD)")
}

func (c *priceCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "price requires at least one ticker")
		return subcommands.ExitUsageError
	}
	on, err := date.Parse(c.on)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	status := subcommands.ExitSuccess
	for _, ticker := range f.Args() {
		price, err := a.resolver.Resolve(ticker, on)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", ticker, err)
			status = subcommands.ExitFailure
			continue
		}
		fmt.Printf("%s %s %s\n", on, ticker, price)
	}
	return status
}
