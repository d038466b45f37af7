package ifolio

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/guregu/null/v5"
	"github.com/ifolio/ifolio/date"
	"github.com/shopspring/decimal"
)

// Valuation computes point-in-time values, gains and returns from the
// ledger's derived series and resolved prices. It owns no state of its own;
// every figure is recomputed from the stores on each call.
type Valuation struct {
	ledger *Ledger
	prices *PriceResolver
	cash   CashStore
}

// NewValuation creates a valuation engine over a ledger, a price resolver
// and the cash series.
func NewValuation(ledger *Ledger, prices *PriceResolver, cash CashStore) *Valuation {
	return &Valuation{ledger: ledger, prices: prices, cash: cash}
}

// Snapshot values a single ticker as of a date. A missing price is not
// fatal: the holding is valued at zero, the condition is logged, and
// PriceKnown is left false for the caller to inspect. A ticker with no
// history is an empty position.
func (v *Valuation) Snapshot(ticker string, on date.Date) (Position, error) {
	quantity, basis, err := v.ledger.Holding(ticker, on)
	if err != nil {
		return Position{}, fmt.Errorf("holding of %s on %s: %w", ticker, on, err)
	}
	realized, err := v.ledger.RealizedGain(ticker, on)
	if err != nil {
		return Position{}, fmt.Errorf("realized gain of %s on %s: %w", ticker, on, err)
	}

	pos := Position{
		Ticker:   ticker,
		Date:     on,
		Quantity: quantity,
		Realized: realized,
		Profit:   realized,
	}
	if quantity.IsZero() {
		// Fully liquidated: only the realized figures are meaningful.
		return pos, nil
	}
	pos.CostBasis = basis

	price, err := v.prices.Resolve(ticker, on)
	switch {
	case err == nil:
		pos.PriceKnown = true
	case errors.Is(err, ErrNoPrice):
		log.Printf("no price for %s on %s, holding valued at zero", ticker, on)
		price = decimal.Zero
	default:
		return Position{}, err
	}

	pos.Price = price
	pos.Value = quantity.Mul(price)
	pos.Cost = quantity.Mul(basis)
	pos.Unrealized = pos.Value.Sub(pos.Cost)
	pos.Profit = pos.Unrealized.Add(realized)
	if pos.Cost.Sign() > 0 {
		pos.RateOfReturn = null.FloatFrom(pos.Profit.Div(pos.Cost).InexactFloat64() * 100)
	}
	return pos, nil
}

// AnnualizedReturn converts a growth from cost to value over [first, last]
// into a yearly percentage. Periods under a year count as one year, so a
// young position is not extrapolated into an absurd annual figure.
// Undefined (null) when cost is not positive or the period is unknown.
func AnnualizedReturn(first, last date.Date, value, cost float64) null.Float {
	if cost <= 0 || first.IsZero() || last.IsZero() {
		return null.Float{}
	}
	years := math.Max(float64(last.Sub(first))/365.25, 1)
	return null.FloatFrom((math.Pow(value/cost, 1/years) - 1) * 100)
}

// Aggregate values the whole portfolio as of a date: one row per known
// ticker, a cash line, and a synthesized total. Closed positions contribute
// their realized gain to the totals but nothing to value or cost. Rows are
// sorted by profit descending, with cash and total pinned last.
func (v *Valuation) Aggregate(on date.Date) (*Report, error) {
	tickers, err := v.ledger.Tickers()
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(tickers)+2)
	for _, ticker := range tickers {
		row, err := v.row(ticker, on)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	total := v.totalRow(on, rows)

	cash := decimal.Zero
	if c, ok, err := v.cash.Balance(on); err != nil {
		return nil, fmt.Errorf("cash balance on %s: %w", on, err)
	} else if ok {
		cash = c
	}
	cashRow := Row{Kind: CashRow, Ticker: "Cash", Value: null.FloatFrom(cash.InexactFloat64())}

	// Portfolio share is measured against total value including cash.
	denom := total.Value.ValueOrZero() + cash.InexactFloat64()
	if denom > 0 {
		for i := range rows {
			if rows[i].Value.Valid {
				rows[i].PortfolioPct = null.FloatFrom(rows[i].Value.Float64 / denom * 100)
			}
		}
		cashRow.PortfolioPct = null.FloatFrom(cash.InexactFloat64() / denom * 100)
		total.PortfolioPct = null.FloatFrom(100)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Profit.ValueOrZero() > rows[j].Profit.ValueOrZero()
	})
	rows = append(rows, cashRow, total)
	return &Report{On: on, Rows: rows}, nil
}

// row builds the report line for one ticker, including the movement columns
// against 1/3/7/30 days earlier and the start of the year.
func (v *Valuation) row(ticker string, on date.Date) (Row, error) {
	pos, err := v.Snapshot(ticker, on)
	if err != nil {
		return Row{}, err
	}

	row := Row{
		Kind:     TickerRow,
		Ticker:   ticker,
		Value:    null.FloatFrom(pos.Value.InexactFloat64()),
		Cost:     null.FloatFrom(pos.Cost.InexactFloat64()),
		Realized: null.FloatFrom(pos.Realized.InexactFloat64()),
		Profit:   null.FloatFrom(pos.Profit.InexactFloat64()),
	}
	if pos.Quantity.IsZero() {
		row.Unrealized = null.FloatFrom(0)
		return row, nil
	}

	row.Quantity = null.FloatFrom(pos.Quantity.InexactFloat64())
	row.CostBasis = null.FloatFrom(pos.CostBasis.InexactFloat64())
	row.Unrealized = null.FloatFrom(pos.Unrealized.InexactFloat64())
	row.RateOfReturn = pos.RateOfReturn
	if pos.PriceKnown {
		row.Price = null.FloatFrom(pos.Price.InexactFloat64())
	}

	first, last, ok, err := v.ledger.Range(ticker)
	if err != nil {
		return Row{}, err
	}
	if ok {
		last = date.Min(on, last)
		row.FirstDate, row.LastDate = first, last
		row.AnnualizedRoR = AnnualizedReturn(first, last, pos.Value.InexactFloat64(), pos.Cost.InexactFloat64())
	}

	movements := []struct {
		since  date.Date
		pct    *null.Float
		profit *null.Float
	}{
		{on.Add(-1), &row.Change1D, &row.Profit1D},
		{on.Add(-3), &row.Change3D, &row.Profit3D},
		{on.Add(-7), &row.Change7D, &row.Profit7D},
		{on.Add(-30), &row.Change30D, &row.Profit30D},
		{on.YearStart(), &row.ChangeYTD, &row.ProfitYTD},
	}
	for _, m := range movements {
		prev, err := v.Snapshot(ticker, m.since)
		if err != nil {
			return Row{}, err
		}
		if !pos.PriceKnown || !prev.PriceKnown || prev.Price.Sign() <= 0 {
			continue
		}
		pct := pos.Price.Sub(prev.Price).Div(prev.Price).InexactFloat64() * 100
		*m.pct = null.FloatFrom(pct)
		*m.profit = null.FloatFrom(pos.Profit.Sub(prev.Profit).InexactFloat64())
	}
	return row, nil
}

// totalRow synthesizes the portfolio total (cash excluded) from the ticker
// rows.
func (v *Valuation) totalRow(on date.Date, rows []Row) Row {
	total := Row{Kind: TotalRow, Ticker: "Total (w/o Cash)"}
	var value, cost, unrealized, realized, profit float64
	var d1, d3, d7, d30, ytd float64
	for _, r := range rows {
		value += r.Value.ValueOrZero()
		cost += r.Cost.ValueOrZero()
		unrealized += r.Unrealized.ValueOrZero()
		realized += r.Realized.ValueOrZero()
		profit += r.Profit.ValueOrZero()
		d1 += r.Profit1D.ValueOrZero()
		d3 += r.Profit3D.ValueOrZero()
		d7 += r.Profit7D.ValueOrZero()
		d30 += r.Profit30D.ValueOrZero()
		ytd += r.ProfitYTD.ValueOrZero()
	}
	total.Value = null.FloatFrom(value)
	total.Cost = null.FloatFrom(cost)
	total.Unrealized = null.FloatFrom(unrealized)
	total.Realized = null.FloatFrom(realized)
	total.Profit = null.FloatFrom(profit)
	total.Profit1D = null.FloatFrom(d1)
	total.Profit3D = null.FloatFrom(d3)
	total.Profit7D = null.FloatFrom(d7)
	total.Profit30D = null.FloatFrom(d30)
	total.ProfitYTD = null.FloatFrom(ytd)
	if cost > 0 {
		total.RateOfReturn = null.FloatFrom(profit / cost * 100)
	}
	if first, last, ok, err := v.ledger.OverallRange(); err == nil && ok {
		last = date.Min(on, last)
		total.FirstDate, total.LastDate = first, last
		total.AnnualizedRoR = AnnualizedReturn(first, last, value, cost)
	}
	return total
}

// Summary folds every closed position (zero value and zero cost) into a
// single "Other" line carrying their realized profit, and sorts the
// remaining rows by portfolio share, total pinned last.
func (r *Report) Summary() []Row {
	var out []Row
	other := Row{Kind: OtherRow, Ticker: "Other"}
	var folded int
	var otherProfit, otherRealized float64
	for _, row := range r.Rows {
		if row.Kind == TickerRow && row.Value.ValueOrZero() == 0 && row.Cost.ValueOrZero() == 0 {
			otherProfit += row.Profit.ValueOrZero()
			otherRealized += row.Realized.ValueOrZero()
			folded++
			continue
		}
		out = append(out, row)
	}
	if folded > 0 {
		other.Value = null.FloatFrom(0)
		other.Cost = null.FloatFrom(0)
		other.Profit = null.FloatFrom(otherProfit)
		other.Realized = null.FloatFrom(otherRealized)
		out = append(out, other)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.Kind == TotalRow) != (b.Kind == TotalRow) {
			return b.Kind == TotalRow
		}
		return a.PortfolioPct.ValueOrZero() > b.PortfolioPct.ValueOrZero()
	})
	return out
}

// Categories groups the ticker rows by the supplied ticker-to-category map
// and re-derives each category's rate of return from its summed cost and
// value. A ticker missing from the map is an error: a silent "unknown"
// bucket would hide a configuration gap.
func (r *Report) Categories(categories map[string]string) ([]CategoryRow, error) {
	byName := make(map[string]*CategoryRow)
	var order []string
	for _, row := range r.Rows {
		if row.Kind != TickerRow {
			continue
		}
		name, ok := categories[row.Ticker]
		if !ok {
			return nil, fmt.Errorf("ticker %s is not mapped to any category", row.Ticker)
		}
		cat, ok := byName[name]
		if !ok {
			cat = &CategoryRow{Category: name}
			byName[name] = cat
			order = append(order, name)
		}
		cat.PortfolioPct += row.PortfolioPct.ValueOrZero()
		cat.Value += row.Value.ValueOrZero()
		cat.Cost += row.Cost.ValueOrZero()
		cat.Profit += row.Profit.ValueOrZero()
	}
	out := make([]CategoryRow, 0, len(order))
	for _, name := range order {
		cat := byName[name]
		if cat.Cost > 0 {
			cat.RateOfReturn = null.FloatFrom((cat.Value/cat.Cost - 1) * 100)
		}
		out = append(out, *cat)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PortfolioPct > out[j].PortfolioPct })
	return out, nil
}
