// Package config loads the portfolio configuration file: where the data
// lives, which tickers are crypto, and how tickers group into categories.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the portfolio configuration. Paths are used as given, relative
// to the working directory.
type Config struct {
	// Database is the sqlite file holding every derived series.
	Database string `yaml:"database"`
	// TransactionsDir holds one CSV transaction file per broker.
	TransactionsDir string `yaml:"transactions_dir"`
	CashFile        string `yaml:"cash_file"`
	SplitsFile      string `yaml:"splits_file"`
	// CryptoTickers trade continuously and follow the always-persist
	// price policy instead of the market calendar one.
	CryptoTickers []string `yaml:"crypto_tickers"`
	// Categories maps a report category to the tickers it contains.
	Categories map[string][]string `yaml:"categories"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Database:        "portfolio.db",
		TransactionsDir: "transactions",
		CashFile:        "transactions/daily_cash.csv",
		SplitsFile:      "transactions/stock_split.csv",
	}
}

// Load reads a YAML configuration file. Missing fields keep their
// defaults.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// validate rejects a ticker assigned to more than one category.
func (c *Config) validate() error {
	seen := make(map[string]string)
	for category, tickers := range c.Categories {
		for _, t := range tickers {
			if prev, ok := seen[t]; ok && prev != category {
				return fmt.Errorf("ticker %s is in both %q and %q", t, prev, category)
			}
			seen[t] = category
		}
	}
	return nil
}

// IsCrypto reports whether the ticker is configured as a crypto
// instrument.
func (c *Config) IsCrypto(ticker string) bool {
	for _, t := range c.CryptoTickers {
		if t == ticker {
			return true
		}
	}
	return false
}

// TickerCategories inverts the Categories map into ticker to category.
func (c *Config) TickerCategories() map[string]string {
	out := make(map[string]string)
	for category, tickers := range c.Categories {
		for _, t := range tickers {
			out[t] = category
		}
	}
	return out
}

// CategoryFor returns the category of a ticker, or false if it has none.
func (c *Config) CategoryFor(ticker string) (string, bool) {
	for category, tickers := range c.Categories {
		for _, t := range tickers {
			if t == ticker {
				return category, true
			}
		}
	}
	return "", false
}
