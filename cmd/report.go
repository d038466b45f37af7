package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
	"github.com/guregu/null/v5"

	"github.com/ifolio/ifolio"
	"github.com/ifolio/ifolio/date"
)

// reportCmd holds the flags for the 'report' subcommand.
type reportCmd struct {
	on   string
	mode string
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "portfolio valuation dashboard" }
func (*reportCmd) Usage() string {
	return `ifolio report [-d <date>] [-mode total|summary|category]

  Values every holding as of a date and prints the dashboard: value, cost,
  profit, rate of return and recent movement per ticker, plus cash and the
  portfolio total.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.on, "d", ifolio.Today().String(), "Valuation date (YYYY-MM-DD)")
	f.StringVar(&c.mode, "mode", "total", "Report variant: total, summary, category or compare")
}

func (c *reportCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, err := date.Parse(c.on)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	report, err := a.valuation.Aggregate(on)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error valuing portfolio: %v\n", err)
		return subcommands.ExitFailure
	}

	switch c.mode {
	case "total":
		renderRows(report.On, report.Rows, true)
	case "summary":
		renderRows(report.On, report.Summary(), false)
	case "category":
		rows, err := report.Categories(a.cfg.TickerCategories())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error grouping by category: %v\n", err)
			return subcommands.ExitFailure
		}
		renderCategories(report.On, rows)
	case "compare":
		renderCompare(report.On, report.Rows)
	default:
		fmt.Fprintf(os.Stderr, "Unknown mode %q\n", c.mode)
		return subcommands.ExitUsageError
	}
	return subcommands.ExitSuccess
}

func renderRows(on date.Date, rows []ifolio.Row, movements bool) {
	fmt.Printf("Portfolio on %s\n\n", on)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	if movements {
		fmt.Fprintln(w, "Ticker\t%Port\tPrice\tQty\tValue\tCost\tProfit\tRoR\tAnnual\t1D\t3D\t7D\t30D\tYTD\t")
	} else {
		fmt.Fprintln(w, "Ticker\t%Port\tValue\tCost\tProfit\tRoR\t")
	}
	for _, r := range rows {
		if movements {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
				r.Ticker, pct(r.PortfolioPct), money(r.Price), num(r.Quantity),
				money(r.Value), money(r.Cost), money(r.Profit),
				pct(r.RateOfReturn), pct(r.AnnualizedRoR),
				pct(r.Change1D), pct(r.Change3D), pct(r.Change7D), pct(r.Change30D), pct(r.ChangeYTD))
		} else {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
				r.Ticker, pct(r.PortfolioPct),
				money(r.Value), money(r.Cost), money(r.Profit), pct(r.RateOfReturn))
		}
	}
	w.Flush()
}

// renderCompare prints only the movement columns: price change and profit
// delta over each lookback period.
func renderCompare(on date.Date, rows []ifolio.Row) {
	fmt.Printf("Movement to %s\n\n", on)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Ticker\t1D\t1D$\t3D\t3D$\t7D\t7D$\t30D\t30D$\tYTD\tYTD$\t")
	for _, r := range rows {
		if r.Kind == ifolio.CashRow {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.Ticker,
			pct(r.Change1D), money(r.Profit1D),
			pct(r.Change3D), money(r.Profit3D),
			pct(r.Change7D), money(r.Profit7D),
			pct(r.Change30D), money(r.Profit30D),
			pct(r.ChangeYTD), money(r.ProfitYTD))
	}
	w.Flush()
}

func renderCategories(on date.Date, rows []ifolio.CategoryRow) {
	fmt.Printf("Portfolio by category on %s\n\n", on)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Category\t%Port\tValue\tCost\tProfit\tRoR\t")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%.2f%%\t%s\t%s\t%s\t%s\t\n",
			r.Category, r.PortfolioPct,
			ifolio.FormatUSD(r.Value), ifolio.FormatUSD(r.Cost), ifolio.FormatUSD(r.Profit),
			pct(r.RateOfReturn))
	}
	w.Flush()
}

func money(v null.Float) string {
	if !v.Valid {
		return "-"
	}
	return ifolio.FormatUSD(v.Float64)
}

func pct(v null.Float) string {
	if !v.Valid {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", v.Float64)
}

func num(v null.Float) string {
	if !v.Valid {
		return "-"
	}
	return fmt.Sprintf("%.4f", v.Float64)
}
