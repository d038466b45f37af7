package ifolio

import (
	"sort"

	"github.com/ifolio/ifolio/date"
	"github.com/shopspring/decimal"
)

// MemStore is an in-memory Store. It backs tests and one-shot runs that do
// not need persistence; series are kept as per-ticker slices sorted by date,
// the same shape every as-of query assumes.
//
// MemStore is not safe for concurrent writers.
type MemStore struct {
	snapshots map[string][]Snapshot
	gains     map[string][]RealizedGain
	prices    map[priceKey]decimal.Decimal
	cash      []cashPoint
	txns      map[Key]Transaction
}

type priceKey struct {
	Date   date.Date
	Ticker string
}

type cashPoint struct {
	Date    date.Date
	Balance decimal.Decimal
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		snapshots: make(map[string][]Snapshot),
		gains:     make(map[string][]RealizedGain),
		prices:    make(map[priceKey]decimal.Decimal),
		txns:      make(map[Key]Transaction),
	}
}

var _ Store = (*MemStore)(nil)

// Snapshot returns the latest row for ticker dated at or before on.
func (m *MemStore) Snapshot(ticker string, on date.Date) (Snapshot, bool, error) {
	rows := m.snapshots[ticker]
	for i := len(rows) - 1; i >= 0; i-- {
		if !rows[i].Date.After(on) {
			return rows[i], true, nil
		}
	}
	return Snapshot{}, false, nil
}

// SnapshotsAfter returns every row strictly after on, ascending.
func (m *MemStore) SnapshotsAfter(ticker string, on date.Date) ([]Snapshot, error) {
	rows := m.snapshots[ticker]
	i := sort.Search(len(rows), func(i int) bool { return rows[i].Date.After(on) })
	out := make([]Snapshot, len(rows)-i)
	copy(out, rows[i:])
	return out, nil
}

// UpsertSnapshot inserts or replaces the row at (ticker, date).
func (m *MemStore) UpsertSnapshot(s Snapshot) error {
	rows := m.snapshots[s.Ticker]
	i := sort.Search(len(rows), func(i int) bool { return !rows[i].Date.Before(s.Date) })
	if i < len(rows) && rows[i].Date == s.Date {
		rows[i] = s
	} else {
		rows = append(rows, Snapshot{})
		copy(rows[i+1:], rows[i:])
		rows[i] = s
	}
	m.snapshots[s.Ticker] = rows
	return nil
}

// Tickers lists every ticker with at least one snapshot row, sorted.
func (m *MemStore) Tickers() ([]string, error) {
	out := make([]string, 0, len(m.snapshots))
	for ticker, rows := range m.snapshots {
		if len(rows) > 0 {
			out = append(out, ticker)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Range returns the first and last snapshot dates for ticker.
func (m *MemStore) Range(ticker string) (first, last date.Date, ok bool, err error) {
	rows := m.snapshots[ticker]
	if len(rows) == 0 {
		return date.Date{}, date.Date{}, false, nil
	}
	return rows[0].Date, rows[len(rows)-1].Date, true, nil
}

// OverallRange returns the first and last snapshot dates across all tickers.
func (m *MemStore) OverallRange() (first, last date.Date, ok bool, err error) {
	for _, rows := range m.snapshots {
		if len(rows) == 0 {
			continue
		}
		if !ok || rows[0].Date.Before(first) {
			first = rows[0].Date
		}
		if !ok || rows[len(rows)-1].Date.After(last) {
			last = rows[len(rows)-1].Date
		}
		ok = true
	}
	return first, last, ok, nil
}

// Gain returns the cumulative realized gain at or before on.
func (m *MemStore) Gain(ticker string, on date.Date) (decimal.Decimal, bool, error) {
	rows := m.gains[ticker]
	for i := len(rows) - 1; i >= 0; i-- {
		if !rows[i].Date.After(on) {
			return rows[i].Gain, true, nil
		}
	}
	return decimal.Zero, false, nil
}

// UpsertGain inserts or replaces the gain row at (ticker, date).
func (m *MemStore) UpsertGain(g RealizedGain) error {
	rows := m.gains[g.Ticker]
	i := sort.Search(len(rows), func(i int) bool { return !rows[i].Date.Before(g.Date) })
	if i < len(rows) && rows[i].Date == g.Date {
		rows[i] = g
	} else {
		rows = append(rows, RealizedGain{})
		copy(rows[i+1:], rows[i:])
		rows[i] = g
	}
	m.gains[g.Ticker] = rows
	return nil
}

// Price returns the cached price for (ticker, on), if any.
func (m *MemStore) Price(ticker string, on date.Date) (decimal.Decimal, bool, error) {
	p, ok := m.prices[priceKey{on, ticker}]
	return p, ok, nil
}

// SetPrice caches the price for (ticker, on).
func (m *MemStore) SetPrice(on date.Date, ticker string, price decimal.Decimal) error {
	m.prices[priceKey{on, ticker}] = price
	return nil
}

// Balance returns the cash balance at or before on.
func (m *MemStore) Balance(on date.Date) (decimal.Decimal, bool, error) {
	for i := len(m.cash) - 1; i >= 0; i-- {
		if !m.cash[i].Date.After(on) {
			return m.cash[i].Balance, true, nil
		}
	}
	return decimal.Zero, false, nil
}

// SetBalance inserts or replaces the cash balance on a date.
func (m *MemStore) SetBalance(on date.Date, balance decimal.Decimal) error {
	i := sort.Search(len(m.cash), func(i int) bool { return !m.cash[i].Date.Before(on) })
	if i < len(m.cash) && m.cash[i].Date == on {
		m.cash[i].Balance = balance
	} else {
		m.cash = append(m.cash, cashPoint{})
		copy(m.cash[i+1:], m.cash[i:])
		m.cash[i] = cashPoint{on, balance}
	}
	return nil
}

// InsertTransaction upserts a record by key.
func (m *MemStore) InsertTransaction(tx Transaction) error {
	m.txns[tx.Key()] = tx
	return nil
}

// Transactions returns the records for ticker dated on or after from,
// ascending by date then source.
func (m *MemStore) Transactions(ticker string, from date.Date) ([]Transaction, error) {
	var out []Transaction
	for k, tx := range m.txns {
		if k.Ticker == ticker && !k.Date.Before(from) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Source < out[j].Source
	})
	return out, nil
}
