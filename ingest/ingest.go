// Package ingest reads the CSV input files: per-broker transaction logs,
// the daily cash balance file, and the split table. No file carries a
// header row.
package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ifolio/ifolio"
	"github.com/ifolio/ifolio/date"
)

// Transactions reads one transaction file. Each row is
// "date,ticker,cost,quantity"; the source is the file name without its
// extension, so transactions from different brokers never collide on the
// same key. Same-key rows are merged by summation.
func Transactions(path string) ([]ifolio.Transaction, error) {
	rows, err := readRows(path, 4)
	if err != nil {
		return nil, err
	}
	source := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	txns := make([]ifolio.Transaction, 0, len(rows))
	for i, row := range rows {
		tx := ifolio.Transaction{Ticker: row[1], Source: source}
		if tx.Date, err = date.Parse(row[0]); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		if tx.Cost, err = decimal.NewFromString(row[2]); err != nil {
			return nil, fmt.Errorf("%s row %d: bad cost: %w", path, i+1, err)
		}
		if tx.Quantity, err = decimal.NewFromString(row[3]); err != nil {
			return nil, fmt.Errorf("%s row %d: bad quantity: %w", path, i+1, err)
		}
		txns = append(txns, tx)
	}
	return ifolio.Merge(txns), nil
}

// TransactionsDir reads every .csv file of a directory as a transaction
// file and returns the merged result.
func TransactionsDir(dir string) ([]ifolio.Transaction, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading transactions dir: %w", err)
	}
	var all []ifolio.Transaction
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		txns, err := Transactions(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		all = append(all, txns...)
	}
	return ifolio.Merge(all), nil
}

// CashPoint is one row of the daily cash file.
type CashPoint struct {
	Date    date.Date
	Balance decimal.Decimal
}

// Cash reads the daily cash file. Each row is "date,cash,balance,1"; only
// the first and third columns carry information.
func Cash(path string) ([]CashPoint, error) {
	rows, err := readRows(path, 4)
	if err != nil {
		return nil, err
	}
	points := make([]CashPoint, 0, len(rows))
	for i, row := range rows {
		var p CashPoint
		if p.Date, err = date.Parse(row[0]); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		if p.Balance, err = decimal.NewFromString(row[2]); err != nil {
			return nil, fmt.Errorf("%s row %d: bad balance: %w", path, i+1, err)
		}
		points = append(points, p)
	}
	return points, nil
}

// Splits reads the split file. Each row is "date,ticker,before,after".
func Splits(path string) ([]ifolio.Split, error) {
	rows, err := readRows(path, 4)
	if err != nil {
		return nil, err
	}
	splits := make([]ifolio.Split, 0, len(rows))
	for i, row := range rows {
		sp := ifolio.Split{Ticker: row[1]}
		if sp.Date, err = date.Parse(row[0]); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		if sp.Before, err = decimal.NewFromString(row[2]); err != nil {
			return nil, fmt.Errorf("%s row %d: bad split ratio: %w", path, i+1, err)
		}
		if sp.After, err = decimal.NewFromString(row[3]); err != nil {
			return nil, fmt.Errorf("%s row %d: bad split ratio: %w", path, i+1, err)
		}
		if !sp.Before.IsPositive() || !sp.After.IsPositive() {
			return nil, fmt.Errorf("%s row %d: split ratio must be positive", path, i+1)
		}
		splits = append(splits, sp)
	}
	return splits, nil
}

func readRows(path string, fields int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = fields
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return rows, nil
}
