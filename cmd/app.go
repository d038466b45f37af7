// Package cmd implements the CLI application to manage the portfolio.
package cmd

import (
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/ifolio/ifolio"
	"github.com/ifolio/ifolio/config"
	"github.com/ifolio/ifolio/marketcal"
	"github.com/ifolio/ifolio/sqlstore"
	"github.com/ifolio/ifolio/yahoo"
)

// Register the subcommands. A main package calls Register() and then
// Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&loadCmd{}, "data")
	c.Register(&priceCmd{}, "data")
	c.Register(&reportCmd{}, "reports")
}

// as a CLI application it is short lived, so global flags are fine.

var configFile = flag.String("config", "", "Path to the YAML configuration file (defaults apply without one)")

func loadConfig() (*config.Config, error) {
	if *configFile == "" {
		return config.Default(), nil
	}
	return config.Load(*configFile)
}

// app bundles the wired engines every subcommand works with.
type app struct {
	cfg       *config.Config
	db        *sqlstore.DB
	ledger    *ifolio.Ledger
	resolver  *ifolio.PriceResolver
	valuation *ifolio.Valuation
}

// openApp opens the database and wires ledger, resolver and valuation on
// top of it. The caller must Close it.
func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	db, err := sqlstore.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	splits, err := db.Splits()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading splits: %w", err)
	}

	ledger := ifolio.NewLedger(db, db, db, splits)
	resolver := ifolio.NewPriceResolver(yahoo.NewClient(), db, marketcal.NYSE{})
	for _, ticker := range cfg.CryptoTickers {
		resolver.SetPolicy(ticker, ifolio.ContinuousPolicy{})
	}

	return &app{
		cfg:       cfg,
		db:        db,
		ledger:    ledger,
		resolver:  resolver,
		valuation: ifolio.NewValuation(ledger, resolver, db),
	}, nil
}

func (a *app) Close() error { return a.db.Close() }
