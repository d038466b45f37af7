package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/ifolio/ifolio/ingest"
)

// loadCmd holds the flags for the 'load' subcommand.
type loadCmd struct {
	skipCash   bool
	skipSplits bool
}

func (*loadCmd) Name() string     { return "load" }
func (*loadCmd) Synopsis() string { return "load transaction, cash and split files into the database" }
func (*loadCmd) Usage() string {
	return `ifolio load [-no-cash] [-no-splits]

  Reads every broker CSV in the transactions directory, the daily cash file
  and the split file, and applies them to the ledger. Re-running is safe:
  records are keyed and upserted.
`
}

func (c *loadCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.skipCash, "no-cash", false, "Do not load the daily cash file")
	f.BoolVar(&c.skipSplits, "no-splits", false, "Do not load the split file")
}

func (c *loadCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	// splits first, the replay triggered by each transaction depends on them
	if !c.skipSplits {
		if err := c.loadSplits(a); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading splits: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	batch, err := ingest.TransactionsDir(a.cfg.TransactionsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %q: %v\n", a.cfg.TransactionsDir, err)
		return subcommands.ExitFailure
	}
	if err := a.ledger.Load(batch); err != nil {
		fmt.Fprintf(os.Stderr, "Error applying transactions: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Loaded %d transactions from %s\n", len(batch), a.cfg.TransactionsDir)

	if !c.skipCash {
		points, err := ingest.Cash(a.cfg.CashFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %q: %v\n", a.cfg.CashFile, err)
			return subcommands.ExitFailure
		}
		for _, p := range points {
			if err := a.db.SetBalance(p.Date, p.Balance); err != nil {
				fmt.Fprintf(os.Stderr, "Error saving cash balance: %v\n", err)
				return subcommands.ExitFailure
			}
		}
		fmt.Printf("Loaded %d cash balances from %s\n", len(points), a.cfg.CashFile)
	}

	for _, an := range a.ledger.Anomalies() {
		fmt.Fprintf(os.Stderr, "warning: %s\n", an)
	}
	return subcommands.ExitSuccess
}

func (c *loadCmd) loadSplits(a *app) error {
	splits, err := ingest.Splits(a.cfg.SplitsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // no split file is fine
		}
		return err
	}
	for _, sp := range splits {
		if err := a.db.SaveSplit(sp); err != nil {
			return err
		}
	}
	a.ledger.SetSplits(splits)
	fmt.Printf("Loaded %d splits from %s\n", len(splits), a.cfg.SplitsFile)
	return nil
}
