package ifolio

import (
	"errors"
	"testing"
	"time"

	"github.com/ifolio/ifolio/date"
)

// fakeQuoter replays a fixed quote history and counts fetches.
type fakeQuoter struct {
	quotes []Quote
	err    error
	calls  int
}

func (q *fakeQuoter) History(ticker string, from, to date.Date) ([]Quote, error) {
	q.calls++
	if q.err != nil {
		return nil, q.err
	}
	var out []Quote
	for _, quote := range q.quotes {
		if !quote.Date.Before(from) && quote.Date.Before(to) {
			out = append(out, quote)
		}
	}
	return out, nil
}

// weekdayCal treats every weekday as a trading day.
type weekdayCal struct{}

func (weekdayCal) IsTradingDay(on date.Date) bool {
	wd := on.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func fixedClock(day string) ResolverOption {
	return WithClock(func() date.Date { return date.MustParse(day) })
}

func TestResolveFetchesOncePerRun(t *testing.T) {
	q := &fakeQuoter{quotes: []Quote{{Date: date.MustParse("2024-07-05"), Close: dec("505.82")}}}
	r := NewPriceResolver(q, NewMemStore(), weekdayCal{}, fixedClock("2024-07-05"))

	on := date.MustParse("2024-07-05") // a Friday
	for i := 0; i < 3; i++ {
		p, err := r.Resolve("VOO", on)
		if err != nil {
			t.Fatal(err)
		}
		if p.String() != "505.82" {
			t.Errorf("price = %s, want 505.82", p)
		}
	}
	if q.calls != 1 {
		t.Errorf("quoter fetched %d times, want 1", q.calls)
	}
}

func TestResolvePrefersPersistentStore(t *testing.T) {
	store := NewMemStore()
	on := date.MustParse("2024-07-05")
	if err := store.SetPrice(on, "VOO", dec("505.82")); err != nil {
		t.Fatal(err)
	}
	q := &fakeQuoter{err: errors.New("network down")}
	r := NewPriceResolver(q, store, weekdayCal{}, fixedClock("2024-08-01"))

	p, err := r.Resolve("VOO", on)
	if err != nil {
		t.Fatal(err)
	}
	if p.String() != "505.82" || q.calls != 0 {
		t.Errorf("price = %s, calls = %d", p, q.calls)
	}
}

func TestResolveNoData(t *testing.T) {
	tests := []struct {
		name string
		q    *fakeQuoter
	}{
		{"fetch error", &fakeQuoter{err: errors.New("boom")}},
		{"empty window", &fakeQuoter{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewPriceResolver(tt.q, NewMemStore(), weekdayCal{}, fixedClock("2024-07-05"))
			_, err := r.Resolve("VOO", date.MustParse("2024-07-05"))
			if !errors.Is(err, ErrNoPrice) {
				t.Errorf("err = %v, want ErrNoPrice", err)
			}
		})
	}
}

func TestResolveCarriesForwardLastClose(t *testing.T) {
	// Saturday resolves to Friday's close
	q := &fakeQuoter{quotes: []Quote{{Date: date.MustParse("2024-07-05"), Close: dec("505.82")}}}
	store := NewMemStore()
	r := NewPriceResolver(q, store, weekdayCal{}, fixedClock("2024-07-08"))

	saturday := date.MustParse("2024-07-06")
	p, err := r.Resolve("VOO", saturday)
	if err != nil {
		t.Fatal(err)
	}
	if p.String() != "505.82" {
		t.Errorf("price = %s, want 505.82", p)
	}
	// a non-trading day's carried value is final: stored under the requested date
	if _, ok, _ := store.Price("VOO", saturday); !ok {
		t.Error("Saturday close not persisted under the Saturday key")
	}
}

func TestResolveTradingDayPersistsUnderTradingDate(t *testing.T) {
	// Friday's close fetched intraday: final for Friday's own key only once
	// the session is over, so it is stored under the fetched trading date.
	q := &fakeQuoter{quotes: []Quote{{Date: date.MustParse("2024-07-04"), Close: dec("504.00")}}}
	store := NewMemStore()
	r := NewPriceResolver(q, store, weekdayCal{}, fixedClock("2024-07-05"))

	friday := date.MustParse("2024-07-05")
	p, err := r.Resolve("VOO", friday)
	if err != nil {
		t.Fatal(err)
	}
	if p.String() != "504" {
		t.Errorf("price = %s, want 504", p)
	}
	if _, ok, _ := store.Price("VOO", friday); ok {
		t.Error("intraday value persisted under the requested date")
	}
	if _, ok, _ := store.Price("VOO", date.MustParse("2024-07-04")); !ok {
		t.Error("close not persisted under its trading date")
	}
}

func TestContinuousPolicyPersistsOnlyPastDates(t *testing.T) {
	today := date.MustParse("2024-07-05")
	q := &fakeQuoter{quotes: []Quote{
		{Date: date.MustParse("2024-07-04"), Close: dec("61000")},
		{Date: today, Close: dec("61500")},
	}}
	store := NewMemStore()
	r := NewPriceResolver(q, store, weekdayCal{}, fixedClock("2024-07-05"))
	r.SetPolicy("BTC-USD", ContinuousPolicy{})

	// today's price keeps moving: transient only
	p, err := r.Resolve("BTC-USD", today)
	if err != nil {
		t.Fatal(err)
	}
	if p.String() != "61500" {
		t.Errorf("price = %s, want 61500", p)
	}
	if _, ok, _ := store.Price("BTC-USD", today); ok {
		t.Error("today's crypto price persisted")
	}

	// but within the run the transient tier still answers
	if _, err := r.Resolve("BTC-USD", today); err != nil || q.calls != 1 {
		t.Errorf("transient miss: calls=%d err=%v", q.calls, err)
	}

	// a past date is final and persists under its own key
	yesterday := date.MustParse("2024-07-04")
	if _, err := r.Resolve("BTC-USD", yesterday); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := store.Price("BTC-USD", yesterday); !ok {
		t.Error("past crypto price not persisted")
	}
}

func TestPersistKey(t *testing.T) {
	today := date.MustParse("2024-07-05")
	friday := date.MustParse("2024-07-05")
	saturday := date.MustParse("2024-07-06")

	var continuous ContinuousPolicy
	if key, ok := continuous.PersistKey(friday.Add(-7), friday.Add(-7), today); !ok || key != friday.Add(-7) {
		t.Errorf("continuous past: key=%s ok=%v", key, ok)
	}
	if _, ok := continuous.PersistKey(today, today, today); ok {
		t.Error("continuous today should stay transient")
	}

	calendar := CalendarPolicy{Calendar: weekdayCal{}}
	if key, ok := calendar.PersistKey(saturday, friday, today); !ok || key != saturday {
		t.Errorf("calendar non-trading: key=%s ok=%v", key, ok)
	}
	if key, ok := calendar.PersistKey(friday, friday.Add(-1), today); !ok || key != friday.Add(-1) {
		t.Errorf("calendar trading: key=%s ok=%v", key, ok)
	}
}

func TestResolveWindow(t *testing.T) {
	q := &fakeQuoter{quotes: []Quote{{Date: date.MustParse("2024-07-01"), Close: dec("500")}}}
	r := NewPriceResolver(q, NewMemStore(), weekdayCal{}, fixedClock("2024-08-01"), WithWindow(2))

	// the close is 3 days before the requested date, outside a 2-day window
	_, err := r.Resolve("VOO", date.MustParse("2024-07-04"))
	if !errors.Is(err, ErrNoPrice) {
		t.Errorf("err = %v, want ErrNoPrice", err)
	}

	p, err := r.Resolve("VOO", date.MustParse("2024-07-02"))
	if err != nil {
		t.Fatalf("inside window: %v", err)
	}
	if p.String() != "500" {
		t.Errorf("price = %s, want 500", p)
	}
}
