// Package marketcal answers whether a given day is a trading day on the
// US stock exchanges. It knows weekends, the recurring federal holidays the
// exchanges observe (with weekend shifting), and ad hoc closures.
package marketcal

import (
	"time"

	"github.com/ifolio/ifolio/date"
)

// NYSE is the calendar of the New York Stock Exchange. Its zero value is
// ready to use.
type NYSE struct{}

// IsTradingDay reports whether the exchange is open on the given day.
func (NYSE) IsTradingDay(on date.Date) bool {
	switch on.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !isHoliday(on)
}

// closures lists days the exchange closed outside the recurring holiday
// schedule, such as days of national mourning.
var closures = map[date.Date]bool{
	date.New(2025, time.January, 9): true, // national day of mourning
}

func isHoliday(on date.Date) bool {
	if closures[on] {
		return true
	}
	y := on.Year()
	for _, h := range holidays(y) {
		if on == h {
			return true
		}
	}
	return false
}

// holidays returns the observed exchange holidays of a year. A fixed-date
// holiday landing on a weekend is observed on the nearest weekday.
func holidays(year int) []date.Date {
	hs := []date.Date{
		observed(date.New(year, time.January, 1)),   // New Year's Day
		nthWeekday(year, time.January, time.Monday, 3),  // Martin Luther King Jr. Day
		nthWeekday(year, time.February, time.Monday, 3), // Washington's Birthday
		goodFriday(year),
		lastWeekday(year, time.May, time.Monday), // Memorial Day
		observed(date.New(year, time.July, 4)),   // Independence Day
		nthWeekday(year, time.September, time.Monday, 1),  // Labor Day
		nthWeekday(year, time.November, time.Thursday, 4), // Thanksgiving
		observed(date.New(year, time.December, 25)),       // Christmas
	}
	if year >= 2022 {
		hs = append(hs, observed(date.New(year, time.June, 19))) // Juneteenth
	}
	return hs
}

// observed shifts a weekend holiday to the adjacent weekday: Saturday to
// Friday, Sunday to Monday.
func observed(d date.Date) date.Date {
	switch d.Weekday() {
	case time.Saturday:
		return d.Add(-1)
	case time.Sunday:
		return d.Add(1)
	}
	return d
}

// nthWeekday returns the nth given weekday of a month, n counted from 1.
func nthWeekday(year int, month time.Month, day time.Weekday, n int) date.Date {
	d := date.New(year, month, 1)
	offset := (int(day) - int(d.Weekday()) + 7) % 7
	return d.Add(offset + (n-1)*7)
}

// lastWeekday returns the last given weekday of a month.
func lastWeekday(year int, month time.Month, day time.Weekday) date.Date {
	d := date.New(year, month+1, 1).Add(-1)
	offset := (int(d.Weekday()) - int(day) + 7) % 7
	return d.Add(-offset)
}

// goodFriday is two days before Easter Sunday, computed with the
// anonymous Gregorian algorithm.
func goodFriday(year int) date.Date {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return date.New(year, time.Month(month), day).Add(-2)
}
