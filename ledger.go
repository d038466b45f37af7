package ifolio

import (
	"fmt"
	"log"
	"sort"

	"github.com/ifolio/ifolio/date"
	"github.com/shopspring/decimal"
)

// quantityEpsilon is the threshold under which a residual quantity is
// considered dust and floored to zero. Partial-share brokers leave residues
// around 1e-8 after a full liquidation.
var quantityEpsilon = decimal.NewFromFloat(1e-5)

// Ledger replays the raw transaction log, per ticker and in date order, into
// two derived sparse series: the holding snapshots (weighted average cost
// basis and quantity) and the cumulative realized gains. The log is the
// source of truth; both series are projections and can always be rebuilt
// from it. Inserting a transaction before existing rows recomputes the
// ticker's suffix from the insertion date forward.
//
// Replay for one ticker is strictly sequential (the running average is not
// commutative); distinct tickers are independent.
type Ledger struct {
	txns      TransactionStore
	snapshots SnapshotStore
	gains     GainStore
	splits    map[string][]Split

	anomalies []Anomaly
}

// Anomaly records a replay state that is arithmetically consistent but
// financially impossible: a quantity driven negative beyond the dust
// epsilon, typically by a backdated sell inserted before the buy that
// funded it. The ledger keeps the arithmetic result and leaves the
// resolution to the caller.
type Anomaly struct {
	Date     date.Date
	Ticker   string
	Quantity decimal.Decimal
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%s %s: quantity %s is negative", a.Date, a.Ticker, a.Quantity)
}

// NewLedger creates a replay engine over the given stores. Splits are static
// reference data, loaded once and applied lazily during replay and as-of
// reads; they are never rewritten into stored rows.
func NewLedger(txns TransactionStore, snapshots SnapshotStore, gains GainStore, splits []Split) *Ledger {
	l := &Ledger{txns: txns, snapshots: snapshots, gains: gains}
	l.SetSplits(splits)
	return l
}

// SetSplits replaces the split table. It only affects subsequent replays
// and reads; stored rows are left as written.
func (l *Ledger) SetSplits(splits []Split) {
	byTicker := make(map[string][]Split)
	for _, s := range splits {
		byTicker[s.Ticker] = append(byTicker[s.Ticker], s)
	}
	for ticker := range byTicker {
		ss := byTicker[ticker]
		sort.Slice(ss, func(i, j int) bool { return ss[i].Date.Before(ss[j].Date) })
		byTicker[ticker] = ss
	}
	l.splits = byTicker
}

// Load merges same-key records by summation and applies the batch in
// ascending date order. Any record with an unclassifiable sign pattern fails
// the whole batch before a single row is written: dirty input is a
// data-integrity issue, not something to skip over.
func (l *Ledger) Load(batch []Transaction) error {
	merged := Merge(batch)
	for _, tx := range merged {
		if _, err := tx.Type(); err != nil {
			return err
		}
	}
	for _, tx := range merged {
		if err := l.Apply(tx); err != nil {
			return err
		}
	}
	return nil
}

// Apply records one transaction and brings the ticker's derived series up to
// date. When the transaction is dated before existing snapshots, every later
// row is recomputed by a forward replay from the insertion date, so the
// series stays identical to a from-scratch replay of the full log.
func (l *Ledger) Apply(tx Transaction) error {
	if _, err := tx.Type(); err != nil {
		return err
	}
	if err := l.txns.InsertTransaction(tx); err != nil {
		return fmt.Errorf("recording %s: %w", tx, err)
	}
	if err := l.recompute(tx.Ticker, tx.Date); err != nil {
		return fmt.Errorf("replaying %s from %s: %w", tx.Ticker, tx.Date, err)
	}
	return nil
}

// recompute replays every stored transaction for ticker dated on or after
// from, rewriting the snapshot and realized-gain rows it produces. The
// replay starts from the last state strictly before from.
func (l *Ledger) recompute(ticker string, from date.Date) error {
	var basis, quantity decimal.Decimal
	var stateDate date.Date

	prev, ok, err := l.snapshots.Snapshot(ticker, from.Add(-1))
	if err != nil {
		return err
	}
	if ok {
		basis, quantity, stateDate = prev.CostBasis, prev.Quantity, prev.Date
	}

	cumulative := decimal.Zero
	if g, ok, err := l.gains.Gain(ticker, from.Add(-1)); err != nil {
		return err
	} else if ok {
		cumulative = g
	}

	txs, err := l.txns.Transactions(ticker, from)
	if err != nil {
		return err
	}

	for _, tx := range txs {
		ty, err := tx.Type()
		if err != nil {
			return err
		}

		// Scale the carried state across any split that took effect since
		// the last touched date.
		quantity, basis = l.scaleForSplits(ticker, stateDate, tx.Date, quantity, basis)
		basisBefore := basis

		switch ty {
		case Buy, CashFee, AssetFee:
			total := basis.Mul(quantity).Add(tx.Cost)
			quantity = quantity.Add(tx.Quantity)
			if quantity.IsZero() {
				basis = decimal.Zero
			} else {
				basis = total.Div(quantity)
			}
		case Sell, Dividend:
			// Proceeds never move the average cost.
			quantity = quantity.Add(tx.Quantity)
		}

		if quantity.Abs().LessThan(quantityEpsilon) {
			// Dust left by partial-share arithmetic: the position is closed.
			quantity = decimal.Zero
		} else if quantity.IsNegative() {
			a := Anomaly{Date: tx.Date, Ticker: ticker, Quantity: quantity}
			l.anomalies = append(l.anomalies, a)
			log.Printf("ledger anomaly: %s", a)
		}

		if err := l.snapshots.UpsertSnapshot(Snapshot{
			Date:      tx.Date,
			Ticker:    ticker,
			CostBasis: basis,
			Quantity:  quantity,
		}); err != nil {
			return err
		}

		switch ty {
		case Sell:
			cumulative = cumulative.Add(tx.Cost.Abs().Sub(basisBefore.Mul(tx.Quantity.Abs())))
		case Dividend:
			cumulative = cumulative.Add(tx.Cost.Abs())
		default:
			stateDate = tx.Date
			continue
		}
		if err := l.gains.UpsertGain(RealizedGain{Date: tx.Date, Ticker: ticker, Gain: cumulative}); err != nil {
			return err
		}
		stateDate = tx.Date
	}
	return nil
}

// scaleForSplits applies every split of ticker effective in (from, to] to
// the carried quantity and basis, in chronological order. A zero from date
// (no prior snapshot) admits every split up to to, which is a no-op on an
// empty position.
func (l *Ledger) scaleForSplits(ticker string, from, to date.Date, quantity, basis decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	for _, s := range l.splits[ticker] {
		if s.Date.After(to) {
			break
		}
		if !from.IsZero() && !s.Date.After(from) {
			continue
		}
		factor := s.Factor()
		quantity = quantity.Mul(factor)
		basis = basis.Div(factor)
	}
	return quantity, basis
}

// Holding returns the quantity and average cost basis of ticker as of on.
// Splits effective between the underlying row and on are applied on the fly;
// the stored row is never mutated. A ticker with no row at or before on is
// an empty position, not an error.
func (l *Ledger) Holding(ticker string, on date.Date) (quantity, costBasis decimal.Decimal, err error) {
	snap, ok, err := l.snapshots.Snapshot(ticker, on)
	if err != nil || !ok {
		return decimal.Zero, decimal.Zero, err
	}
	quantity, costBasis = l.scaleForSplits(ticker, snap.Date, on, snap.Quantity, snap.CostBasis)
	return quantity, costBasis, nil
}

// RealizedGain returns the cumulative realized gain of ticker as of on.
func (l *Ledger) RealizedGain(ticker string, on date.Date) (decimal.Decimal, error) {
	g, ok, err := l.gains.Gain(ticker, on)
	if err != nil || !ok {
		return decimal.Zero, err
	}
	return g, nil
}

// Tickers lists every ticker the ledger has ever held, sorted.
func (l *Ledger) Tickers() ([]string, error) { return l.snapshots.Tickers() }

// Range returns the dates of the first and last holding change for ticker.
func (l *Ledger) Range(ticker string) (first, last date.Date, ok bool, err error) {
	return l.snapshots.Range(ticker)
}

// OverallRange returns the dates of the first and last holding change across
// the whole portfolio.
func (l *Ledger) OverallRange() (first, last date.Date, ok bool, err error) {
	return l.snapshots.OverallRange()
}

// Anomalies returns the negative-quantity excursions observed during replay,
// in the order they were produced. The caller decides what to do with them;
// the ledger only detects.
func (l *Ledger) Anomalies() []Anomaly { return l.anomalies }
