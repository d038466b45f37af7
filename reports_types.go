package ifolio

import (
	"github.com/Rhymond/go-money"
	"github.com/guregu/null/v5"
	"github.com/ifolio/ifolio/date"
	"github.com/shopspring/decimal"
)

// Position is the valuation of a single ticker on a date, in full decimal
// precision. A closed position keeps only the realized figures; value, cost
// and unrealized gain are zero by construction.
type Position struct {
	Ticker     string
	Date       date.Date
	Quantity   decimal.Decimal
	CostBasis  decimal.Decimal
	Price      decimal.Decimal
	PriceKnown bool // false when the price could not be resolved
	Value      decimal.Decimal
	Cost       decimal.Decimal
	Unrealized decimal.Decimal
	Realized   decimal.Decimal
	Profit     decimal.Decimal

	// RateOfReturn is Profit over Cost as a percentage, undefined when the
	// position carries no cost.
	RateOfReturn null.Float
}

// RowKind tags the rows of an aggregate report.
type RowKind int

const (
	// TickerRow is a regular per-instrument row.
	TickerRow RowKind = iota
	// CashRow is the cash balance line.
	CashRow
	// TotalRow is the synthesized portfolio total (cash excluded).
	TotalRow
	// OtherRow folds closed positions together in the summary view.
	OtherRow
)

// Row is one line of an aggregate report. Fields that have no meaning for a
// given row kind (price of the cash line, basis of the total line, rate of
// return of a closed position) are null rather than zero.
type Row struct {
	Kind   RowKind
	Ticker string

	Price     null.Float
	CostBasis null.Float
	Quantity  null.Float

	Value      null.Float
	Cost       null.Float
	Unrealized null.Float
	Realized   null.Float
	Profit     null.Float

	RateOfReturn  null.Float // percent
	PortfolioPct  null.Float // share of total value including cash, percent
	AnnualizedRoR null.Float // percent

	// Price and profit movement against earlier snapshots. Percentages are
	// price changes; the paired profit figures are absolute deltas.
	Change1D  null.Float
	Profit1D  null.Float
	Change3D  null.Float
	Profit3D  null.Float
	Change7D  null.Float
	Profit7D  null.Float
	Change30D null.Float
	Profit30D null.Float
	ChangeYTD null.Float
	ProfitYTD null.Float

	// FirstDate and LastDate bound the ticker's holding activity; zero when
	// not applicable.
	FirstDate date.Date
	LastDate  date.Date
}

// Report is the aggregate valuation of the portfolio on a date: one row per
// known ticker sorted by profit descending, then the cash row, then the
// synthesized total row.
type Report struct {
	On   date.Date
	Rows []Row
}

// Total returns the synthesized total row.
func (r *Report) Total() Row { return r.rowOf(TotalRow) }

// Cash returns the cash row.
func (r *Report) Cash() Row { return r.rowOf(CashRow) }

func (r *Report) rowOf(kind RowKind) Row {
	for _, row := range r.Rows {
		if row.Kind == kind {
			return row
		}
	}
	return Row{Kind: kind}
}

// CategoryRow aggregates report rows by an externally supplied category.
// Rate of return is re-derived from the summed cost and value, not averaged
// across members.
type CategoryRow struct {
	Category     string
	PortfolioPct float64
	Value        float64
	Cost         float64
	Profit       float64
	RateOfReturn null.Float
}

// FormatUSD renders an amount the way report consumers display money.
func FormatUSD(amount float64) string {
	return money.NewFromFloat(amount, money.USD).Display()
}
