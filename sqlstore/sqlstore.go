// Package sqlstore persists the ledger series in a single sqlite file.
// Dates are stored as ISO text so lexical comparison is date comparison,
// and amounts as decimal text so values round-trip exactly.
package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/ifolio/ifolio"
	"github.com/ifolio/ifolio/date"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	date     TEXT NOT NULL,
	ticker   TEXT NOT NULL,
	source   TEXT NOT NULL,
	cost     TEXT NOT NULL,
	quantity TEXT NOT NULL,
	PRIMARY KEY (date, ticker, source)
);
CREATE TABLE IF NOT EXISTS stock_data (
	ticker     TEXT NOT NULL,
	date       TEXT NOT NULL,
	cost_basis TEXT NOT NULL,
	quantity   TEXT NOT NULL,
	PRIMARY KEY (ticker, date)
);
CREATE TABLE IF NOT EXISTS realized_gains (
	ticker TEXT NOT NULL,
	date   TEXT NOT NULL,
	gain   TEXT NOT NULL,
	PRIMARY KEY (ticker, date)
);
CREATE TABLE IF NOT EXISTS daily_prices (
	date   TEXT NOT NULL,
	ticker TEXT NOT NULL,
	price  TEXT NOT NULL,
	PRIMARY KEY (date, ticker)
);
CREATE TABLE IF NOT EXISTS daily_cash (
	date    TEXT NOT NULL PRIMARY KEY,
	balance TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS stock_splits (
	ticker TEXT NOT NULL,
	date   TEXT NOT NULL,
	before TEXT NOT NULL,
	after  TEXT NOT NULL,
	PRIMARY KEY (ticker, date)
);
`

// DB implements ifolio.Store over a sqlite database, plus persistence for
// the split table.
type DB struct {
	db *sql.DB
}

var _ ifolio.Store = (*DB)(nil)

// Open opens (creating if needed) the sqlite database at path and ensures
// the schema exists. Use ":memory:" for a throwaway database.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema in %s: %w", path, err)
	}
	return &DB{db: db}, nil
}

// Close closes the underlying database.
func (s *DB) Close() error { return s.db.Close() }

func (s *DB) Snapshot(ticker string, on date.Date) (ifolio.Snapshot, bool, error) {
	row := s.db.QueryRow(
		`SELECT date, cost_basis, quantity FROM stock_data
		 WHERE ticker = ? AND date <= ? ORDER BY date DESC LIMIT 1`,
		ticker, on.String())
	var d, basis, quantity string
	if err := row.Scan(&d, &basis, &quantity); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ifolio.Snapshot{}, false, nil
		}
		return ifolio.Snapshot{}, false, err
	}
	snap, err := parseSnapshot(ticker, d, basis, quantity)
	return snap, err == nil, err
}

func (s *DB) SnapshotsAfter(ticker string, on date.Date) ([]ifolio.Snapshot, error) {
	rows, err := s.db.Query(
		`SELECT date, cost_basis, quantity FROM stock_data
		 WHERE ticker = ? AND date > ? ORDER BY date ASC`,
		ticker, on.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []ifolio.Snapshot
	for rows.Next() {
		var d, basis, quantity string
		if err := rows.Scan(&d, &basis, &quantity); err != nil {
			return nil, err
		}
		snap, err := parseSnapshot(ticker, d, basis, quantity)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

func (s *DB) UpsertSnapshot(snap ifolio.Snapshot) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO stock_data (ticker, date, cost_basis, quantity) VALUES (?, ?, ?, ?)`,
		snap.Ticker, snap.Date.String(), snap.CostBasis.String(), snap.Quantity.String())
	return err
}

func (s *DB) Tickers() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT ticker FROM stock_data ORDER BY ticker`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}

func (s *DB) Range(ticker string) (first, last date.Date, ok bool, err error) {
	row := s.db.QueryRow(
		`SELECT MIN(date), MAX(date) FROM stock_data WHERE ticker = ?`, ticker)
	return scanRange(row)
}

func (s *DB) OverallRange() (first, last date.Date, ok bool, err error) {
	row := s.db.QueryRow(`SELECT MIN(date), MAX(date) FROM stock_data`)
	return scanRange(row)
}

func (s *DB) Gain(ticker string, on date.Date) (decimal.Decimal, bool, error) {
	row := s.db.QueryRow(
		`SELECT gain FROM realized_gains
		 WHERE ticker = ? AND date <= ? ORDER BY date DESC LIMIT 1`,
		ticker, on.String())
	return scanDecimal(row)
}

func (s *DB) UpsertGain(g ifolio.RealizedGain) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO realized_gains (ticker, date, gain) VALUES (?, ?, ?)`,
		g.Ticker, g.Date.String(), g.Gain.String())
	return err
}

func (s *DB) Price(ticker string, on date.Date) (decimal.Decimal, bool, error) {
	row := s.db.QueryRow(
		`SELECT price FROM daily_prices WHERE date = ? AND ticker = ?`,
		on.String(), ticker)
	return scanDecimal(row)
}

func (s *DB) SetPrice(on date.Date, ticker string, price decimal.Decimal) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO daily_prices (date, ticker, price) VALUES (?, ?, ?)`,
		on.String(), ticker, price.String())
	return err
}

func (s *DB) Balance(on date.Date) (decimal.Decimal, bool, error) {
	row := s.db.QueryRow(
		`SELECT balance FROM daily_cash WHERE date <= ? ORDER BY date DESC LIMIT 1`,
		on.String())
	return scanDecimal(row)
}

func (s *DB) SetBalance(on date.Date, balance decimal.Decimal) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO daily_cash (date, balance) VALUES (?, ?)`,
		on.String(), balance.String())
	return err
}

func (s *DB) InsertTransaction(tx ifolio.Transaction) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO transactions (date, ticker, source, cost, quantity) VALUES (?, ?, ?, ?, ?)`,
		tx.Date.String(), tx.Ticker, tx.Source, tx.Cost.String(), tx.Quantity.String())
	return err
}

func (s *DB) Transactions(ticker string, from date.Date) ([]ifolio.Transaction, error) {
	rows, err := s.db.Query(
		`SELECT date, source, cost, quantity FROM transactions
		 WHERE ticker = ? AND date >= ? ORDER BY date ASC, source ASC`,
		ticker, from.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []ifolio.Transaction
	for rows.Next() {
		var d, source, cost, quantity string
		if err := rows.Scan(&d, &source, &cost, &quantity); err != nil {
			return nil, err
		}
		tx := ifolio.Transaction{Ticker: ticker, Source: source}
		if tx.Date, err = date.Parse(d); err != nil {
			return nil, fmt.Errorf("transaction of %s: %w", ticker, err)
		}
		if tx.Cost, err = decimal.NewFromString(cost); err != nil {
			return nil, fmt.Errorf("transaction of %s on %s: %w", ticker, d, err)
		}
		if tx.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("transaction of %s on %s: %w", ticker, d, err)
		}
		txns = append(txns, tx)
	}
	return txns, rows.Err()
}

// SaveSplit upserts a split by its (ticker, date) key.
func (s *DB) SaveSplit(sp ifolio.Split) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO stock_splits (ticker, date, before, after) VALUES (?, ?, ?, ?)`,
		sp.Ticker, sp.Date.String(), sp.Before.String(), sp.After.String())
	return err
}

// Splits returns every recorded split, ordered by ticker then date.
func (s *DB) Splits() ([]ifolio.Split, error) {
	rows, err := s.db.Query(
		`SELECT ticker, date, before, after FROM stock_splits ORDER BY ticker ASC, date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var splits []ifolio.Split
	for rows.Next() {
		var ticker, d, before, after string
		if err := rows.Scan(&ticker, &d, &before, &after); err != nil {
			return nil, err
		}
		sp := ifolio.Split{Ticker: ticker}
		if sp.Date, err = date.Parse(d); err != nil {
			return nil, fmt.Errorf("split of %s: %w", ticker, err)
		}
		if sp.Before, err = decimal.NewFromString(before); err != nil {
			return nil, fmt.Errorf("split of %s on %s: %w", ticker, d, err)
		}
		if sp.After, err = decimal.NewFromString(after); err != nil {
			return nil, fmt.Errorf("split of %s on %s: %w", ticker, d, err)
		}
		splits = append(splits, sp)
	}
	return splits, rows.Err()
}

func parseSnapshot(ticker, d, basis, quantity string) (ifolio.Snapshot, error) {
	var snap ifolio.Snapshot
	var err error
	snap.Ticker = ticker
	if snap.Date, err = date.Parse(d); err != nil {
		return snap, fmt.Errorf("snapshot of %s: %w", ticker, err)
	}
	if snap.CostBasis, err = decimal.NewFromString(basis); err != nil {
		return snap, fmt.Errorf("snapshot of %s on %s: %w", ticker, d, err)
	}
	if snap.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return snap, fmt.Errorf("snapshot of %s on %s: %w", ticker, d, err)
	}
	return snap, nil
}

func scanRange(row *sql.Row) (first, last date.Date, ok bool, err error) {
	var minD, maxD sql.NullString
	if err = row.Scan(&minD, &maxD); err != nil {
		return
	}
	if !minD.Valid || !maxD.Valid {
		return
	}
	if first, err = date.Parse(minD.String); err != nil {
		return
	}
	if last, err = date.Parse(maxD.String); err != nil {
		return
	}
	ok = true
	return
}

func scanDecimal(row *sql.Row) (decimal.Decimal, bool, error) {
	var s string
	if err := row.Scan(&s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false, err
	}
	return d, true, nil
}
