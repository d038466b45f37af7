package ifolio

import (
	"github.com/ifolio/ifolio/date"
	"github.com/shopspring/decimal"
)

// Snapshot is one row of a ticker's sparse holding series: the weighted
// average cost per unit and the total quantity held at end of Date. The row
// exists only for dates on which the holding changed; the value "as of" a
// date is the row with the greatest date at or before it.
type Snapshot struct {
	Date      date.Date
	Ticker    string
	CostBasis decimal.Decimal
	Quantity  decimal.Decimal
}

// RealizedGain is one row of a ticker's cumulative realized-gain series.
// Only sells and dividends move it; the cumulative value may decrease when a
// sale crystallizes a loss.
type RealizedGain struct {
	Date   date.Date
	Ticker string
	Gain   decimal.Decimal
}

// Split is a stock split: on Date, every Before units became After units.
// Splits are static reference data, applied to the series as a lazy scaling
// transform rather than rewritten into history.
type Split struct {
	Ticker string
	Date   date.Date
	Before decimal.Decimal
	After  decimal.Decimal
}

// Factor returns the quantity multiplier After/Before.
func (s Split) Factor() decimal.Decimal { return s.After.Div(s.Before) }

// SnapshotStore is the relational interface for the per-ticker holding
// series. UpsertSnapshot must be idempotent on (ticker, date).
type SnapshotStore interface {
	// Snapshot returns the row with the greatest date at or before on.
	Snapshot(ticker string, on date.Date) (Snapshot, bool, error)
	// SnapshotsAfter returns every row strictly after on, ascending by date.
	SnapshotsAfter(ticker string, on date.Date) ([]Snapshot, error)
	UpsertSnapshot(Snapshot) error
	// Tickers lists every ticker with at least one row, sorted.
	Tickers() ([]string, error)
	// Range returns the first and last row dates for a ticker.
	Range(ticker string) (first, last date.Date, ok bool, err error)
	// OverallRange returns the first and last row dates across all tickers.
	OverallRange() (first, last date.Date, ok bool, err error)
}

// GainStore is the relational interface for the cumulative realized-gain
// series.
type GainStore interface {
	// Gain returns the cumulative gain with the greatest date at or before
	// on, or false if the ticker has none.
	Gain(ticker string, on date.Date) (decimal.Decimal, bool, error)
	UpsertGain(RealizedGain) error
}

// PriceStore is the persistent tier of price resolution: closing prices
// keyed by (date, ticker). Writes are upserts, so re-resolving is safe.
type PriceStore interface {
	Price(ticker string, on date.Date) (decimal.Decimal, bool, error)
	SetPrice(on date.Date, ticker string, price decimal.Decimal) error
}

// CashStore is the sparse daily cash balance series.
type CashStore interface {
	// Balance returns the balance with the greatest date at or before on.
	Balance(on date.Date) (decimal.Decimal, bool, error)
	SetBalance(on date.Date, balance decimal.Decimal) error
}

// TransactionStore holds the raw transaction log, the single source of truth
// the snapshot series is derived from.
type TransactionStore interface {
	// InsertTransaction upserts a record by its (date, ticker, source) key.
	InsertTransaction(Transaction) error
	// Transactions returns the records for one ticker dated on or after
	// from, ascending by date then source.
	Transactions(ticker string, from date.Date) ([]Transaction, error)
}

// Store groups every series the engines read and write. The sqlite
// implementation lives in the sqlstore package; MemStore is the in-memory
// one.
type Store interface {
	SnapshotStore
	GainStore
	PriceStore
	CashStore
	TransactionStore
}
