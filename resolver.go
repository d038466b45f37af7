package ifolio

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ifolio/ifolio/date"
	"github.com/shopspring/decimal"
)

// ErrNoPrice reports that no closing price could be resolved for a
// (ticker, date) pair. Callers decide what a missing price means; valuation
// treats it as zero holding value and keeps going.
var ErrNoPrice = errors.New("no price data")

// Quote is one daily close returned by a market-data source.
type Quote struct {
	Date  date.Date
	Close decimal.Decimal
}

// Quoter fetches a window of daily closes from an external market-data
// source, ascending by date. Both bounds follow the source's convention:
// from is included, to is excluded.
type Quoter interface {
	History(ticker string, from, to date.Date) ([]Quote, error)
}

// Calendar answers whether a date is a trading day for calendar-based
// instruments.
type Calendar interface {
	IsTradingDay(on date.Date) bool
}

// QuotePolicy decides how a freshly fetched close is persisted, per asset
// class. on is the requested date, lastValid the actual trading date of the
// fetched close, today the current date at run time.
//
// The resolved value is always kept in the run's transient cache under on;
// the policy only controls the durable tier.
type QuotePolicy interface {
	// PersistKey returns the date the close should be durably stored under,
	// or false when the value is not final and must stay transient.
	PersistKey(on, lastValid, today date.Date) (date.Date, bool)
}

// ContinuousPolicy is the policy for continuously traded instruments
// (crypto): any past date has a final close, but today's price keeps moving
// until the day is over.
type ContinuousPolicy struct{}

func (ContinuousPolicy) PersistKey(on, _, today date.Date) (date.Date, bool) {
	if on.Before(today) {
		return on, true
	}
	return date.Date{}, false
}

// CalendarPolicy is the policy for instruments on a market calendar. A
// non-trading day never gets its own close, so the carried-forward value is
// final and stored under the requested date. On a trading day the close is
// not final until the session ends, so the fetched value is stored under its
// actual trading date and the requested date stays transient.
type CalendarPolicy struct {
	Calendar Calendar
}

func (p CalendarPolicy) PersistKey(on, lastValid, _ date.Date) (date.Date, bool) {
	if !p.Calendar.IsTradingDay(on) {
		return on, true
	}
	return lastValid, true
}

// PriceResolver resolves closing prices through a two-tier cache: a
// transient map scoped to one run, and a persistent PriceStore. The
// transient tier must not outlive the run, because the persistence decision
// depends on what "today" was when the run executed.
//
// Construct one resolver per run; it is not a process-wide singleton.
type PriceResolver struct {
	quoter  Quoter
	store   PriceStore
	regular QuotePolicy

	transient map[priceKey]decimal.Decimal
	policies  map[string]QuotePolicy
	now       func() date.Date
	window    int
}

// ResolverOption configures a PriceResolver.
type ResolverOption func(*PriceResolver)

// WithClock overrides the resolver's notion of today. The default is the
// current US/Eastern trading day.
func WithClock(now func() date.Date) ResolverOption {
	return func(r *PriceResolver) { r.now = now }
}

// WithWindow overrides the size in days of the lookback window fetched from
// the quoter. The default of 7 covers any run of consecutive non-trading
// days.
func WithWindow(days int) ResolverOption {
	return func(r *PriceResolver) { r.window = days }
}

// NewPriceResolver creates a resolver over the given source and persistent
// cache. cal is the market calendar for the default (calendar-based) asset
// class; tickers of other classes are registered with SetPolicy.
func NewPriceResolver(quoter Quoter, store PriceStore, cal Calendar, opts ...ResolverOption) *PriceResolver {
	r := &PriceResolver{
		quoter:    quoter,
		store:     store,
		regular:   CalendarPolicy{Calendar: cal},
		transient: make(map[priceKey]decimal.Decimal),
		policies:  make(map[string]QuotePolicy),
		window:    7,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.now == nil {
		r.now = func() date.Date { return date.Today(easternTime()) }
	}
	return r
}

// SetPolicy assigns a persistence policy to a ticker, overriding the
// default calendar-based one. New asset classes plug in here without
// touching the resolution logic.
func (r *PriceResolver) SetPolicy(ticker string, p QuotePolicy) {
	r.policies[ticker] = p
}

func (r *PriceResolver) policyFor(ticker string) QuotePolicy {
	if p, ok := r.policies[ticker]; ok {
		return p
	}
	return r.regular
}

// Resolve returns the closing price of ticker on a date. It checks the
// transient cache, then the persistent store, and only then fetches a short
// window ending the day after from the quoter, taking the last available
// close. Failure to produce any close resolves to an error wrapping
// ErrNoPrice. Resolving the same pair twice in one run never fetches twice.
func (r *PriceResolver) Resolve(ticker string, on date.Date) (decimal.Decimal, error) {
	if p, ok := r.transient[priceKey{on, ticker}]; ok {
		return p, nil
	}
	p, ok, err := r.store.Price(ticker, on)
	if err != nil {
		return decimal.Zero, fmt.Errorf("reading price cache for %s on %s: %w", ticker, on, err)
	}
	if ok {
		return p, nil
	}

	quotes, err := r.quoter.History(ticker, on.Add(-r.window), on.Add(1))
	if err != nil {
		log.Printf("price fetch failed for %s on %s: %v", ticker, on, err)
		return decimal.Zero, fmt.Errorf("%s on %s: %w", ticker, on, ErrNoPrice)
	}
	if len(quotes) == 0 {
		return decimal.Zero, fmt.Errorf("%s on %s: %w", ticker, on, ErrNoPrice)
	}

	last := quotes[len(quotes)-1]
	r.transient[priceKey{on, ticker}] = last.Close

	if key, final := r.policyFor(ticker).PersistKey(on, last.Date, r.now()); final {
		if err := r.store.SetPrice(key, ticker, last.Close); err != nil {
			return decimal.Zero, fmt.Errorf("caching price for %s on %s: %w", ticker, key, err)
		}
	}
	return last.Close, nil
}

// Today returns the current date in US/Eastern, the zone market days are
// counted in.
func Today() date.Date { return date.Today(easternTime()) }

// easternTime returns the US/Eastern location, the reference zone for "is
// today's close final yet". Falls back to UTC if the zone database is
// unavailable.
func easternTime() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}
