package ifolio

import (
	"fmt"
	"sort"

	"github.com/ifolio/ifolio/date"
	"github.com/shopspring/decimal"
)

// TxnType identifies the shape of a raw transaction record. The type is not
// recorded anywhere; it is derived from the signs of cost and quantity.
type TxnType int

const (
	// Invalid marks a sign combination with no defined meaning. It is a
	// data-integrity failure, never silently skipped.
	Invalid TxnType = iota
	// Buy spends cash (cost > 0) for units (quantity > 0).
	Buy
	// Sell receives cash (cost < 0) for units (quantity < 0).
	Sell
	// Dividend receives cash (cost < 0) with no change in units.
	Dividend
	// CashFee spends cash (cost > 0) with no change in units; it raises the
	// cost basis like a buy of zero shares.
	CashFee
	// AssetFee burns units (quantity < 0) with no cash flow, the way crypto
	// networks charge fees in kind.
	AssetFee
)

func (t TxnType) String() string {
	switch t {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	case Dividend:
		return "dividend"
	case CashFee:
		return "cash-fee"
	case AssetFee:
		return "asset-fee"
	default:
		return "invalid"
	}
}

// Classify derives the transaction type from the signs of cost and quantity:
//
//	              cost > 0    cost < 0    cost = 0
//	quantity > 0  Buy         -           -
//	quantity = 0  CashFee     Dividend    -
//	quantity < 0  -           Sell        AssetFee
//
// Every unmapped cell classifies as Invalid.
func Classify(cost, quantity decimal.Decimal) TxnType {
	cs, qs := cost.Sign(), quantity.Sign()
	switch {
	case cs > 0 && qs > 0:
		return Buy
	case cs < 0 && qs < 0:
		return Sell
	case cs < 0 && qs == 0:
		return Dividend
	case cs > 0 && qs == 0:
		return CashFee
	case cs == 0 && qs < 0:
		return AssetFee
	default:
		return Invalid
	}
}

// Transaction is one raw, immutable ledger entry: on Date, Ticker moved by
// Quantity units against a cash flow of Cost, reported by Source (typically
// the broker the record was imported from). Cost is the total amount, not a
// per-unit price.
type Transaction struct {
	Date     date.Date
	Ticker   string
	Source   string
	Cost     decimal.Decimal
	Quantity decimal.Decimal
}

// Key is the unique identity of a transaction within a batch.
type Key struct {
	Date   date.Date
	Ticker string
	Source string
}

// Key returns the transaction's unique key.
func (t Transaction) Key() Key { return Key{t.Date, t.Ticker, t.Source} }

// Type classifies the transaction, failing with InvalidTransactionError on an
// unmapped sign combination.
func (t Transaction) Type() (TxnType, error) {
	ty := Classify(t.Cost, t.Quantity)
	if ty == Invalid {
		return Invalid, &InvalidTransactionError{Tx: t}
	}
	return ty, nil
}

func (t Transaction) String() string {
	return fmt.Sprintf("%s %s/%s cost=%s quantity=%s", t.Date, t.Ticker, t.Source, t.Cost, t.Quantity)
}

// InvalidTransactionError reports a record whose cost/quantity signs have no
// defined meaning. It is fatal for the ingestion batch that contains it.
type InvalidTransactionError struct {
	Tx Transaction
}

func (e *InvalidTransactionError) Error() string {
	return fmt.Sprintf("invalid transaction %s: cost and quantity signs have no defined meaning", e.Tx)
}

// Merge collapses same-key records by summing cost and quantity, and returns
// the result sorted by date (then ticker, then source, for determinism).
// Within one ingestion batch a duplicate key is not an error: brokers report
// partial fills as separate lines.
func Merge(batch []Transaction) []Transaction {
	byKey := make(map[Key]Transaction, len(batch))
	for _, tx := range batch {
		k := tx.Key()
		if prev, ok := byKey[k]; ok {
			prev.Cost = prev.Cost.Add(tx.Cost)
			prev.Quantity = prev.Quantity.Add(tx.Quantity)
			byKey[k] = prev
		} else {
			byKey[k] = tx
		}
	}
	merged := make([]Transaction, 0, len(byKey))
	for _, tx := range byKey {
		merged = append(merged, tx)
	}
	sort.Slice(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		if a.Ticker != b.Ticker {
			return a.Ticker < b.Ticker
		}
		return a.Source < b.Source
	})
	return merged
}
