package utils

import (
	"time"
)

// Eastern is the US Eastern time zone used by NYSE and NASDAQ.
var Eastern *time.Location

func init() {
	var err error
	Eastern, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback: fixed EST offset if the tz database is not available.
		Eastern = time.FixedZone("EST", -5*60*60)
	}
}

// NowEastern returns the current time in US Eastern time.
func NowEastern() time.Time {
	return time.Now().In(Eastern)
}

// ToEastern converts a time.Time to US Eastern time.
func ToEastern(t time.Time) time.Time {
	return t.In(Eastern)
}

// MarketOpenTime returns the regular-session open (9:30 AM ET) for a given date.
func MarketOpenTime(date time.Time) time.Time {
	d := date.In(Eastern)
	return time.Date(d.Year(), d.Month(), d.Day(), 9, 30, 0, 0, Eastern)
}

// MarketCloseTime returns the regular-session close (4:00 PM ET) for a given date.
func MarketCloseTime(date time.Time) time.Time {
	d := date.In(Eastern)
	return time.Date(d.Year(), d.Month(), d.Day(), 16, 0, 0, 0, Eastern)
}

// PreMarketStart returns the pre-market session start (4:00 AM ET).
func PreMarketStart(date time.Time) time.Time {
	d := date.In(Eastern)
	return time.Date(d.Year(), d.Month(), d.Day(), 4, 0, 0, 0, Eastern)
}

// AfterHoursEnd returns the after-hours session end (8:00 PM ET).
func AfterHoursEnd(date time.Time) time.Time {
	d := date.In(Eastern)
	return time.Date(d.Year(), d.Month(), d.Day(), 20, 0, 0, 0, Eastern)
}

// IsMarketOpen checks if the US equity market is currently in regular session.
func IsMarketOpen() bool {
	return IsMarketOpenAt(NowEastern())
}

// IsMarketOpenAt checks if the regular session would be open at the given time.
func IsMarketOpenAt(t time.Time) bool {
	t = t.In(Eastern)

	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	if IsTradingHoliday(t) {
		return false
	}

	open := MarketOpenTime(t)
	close := MarketCloseTime(t)
	return !t.Before(open) && !t.After(close)
}

// IsTradingDay checks if the given date is a trading day (not weekend, not holiday).
func IsTradingDay(t time.Time) bool {
	t = t.In(Eastern)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !IsTradingHoliday(t)
}

// NextTradingDay returns the next trading day after the given date.
func NextTradingDay(from time.Time) time.Time {
	next := from.In(Eastern).AddDate(0, 0, 1)
	for !IsTradingDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// PrevTradingDay returns the previous trading day before the given date.
func PrevTradingDay(from time.Time) time.Time {
	prev := from.In(Eastern).AddDate(0, 0, -1)
	for !IsTradingDay(prev) {
		prev = prev.AddDate(0, 0, -1)
	}
	return prev
}

// TradingDaysBetween returns the number of trading days between two dates
// (exclusive of end).
func TradingDaysBetween(start, end time.Time) int {
	start = start.In(Eastern)
	end = end.In(Eastern)
	count := 0
	for current := start; current.Before(end); current = current.AddDate(0, 0, 1) {
		if IsTradingDay(current) {
			count++
		}
	}
	return count
}

// IsTradingHoliday checks if the given date is a US market holiday.
func IsTradingHoliday(t time.Time) bool {
	t = t.In(Eastern)
	_, isHoliday := nyseHolidays2026[t.Format("2006-01-02")]
	return isHoliday
}

// NYSE/NASDAQ full-day holidays for 2026 (update annually).
var nyseHolidays2026 = map[string]string{
	"2026-01-01": "New Year's Day",
	"2026-01-19": "Martin Luther King, Jr. Day",
	"2026-02-16": "Washington's Birthday",
	"2026-04-03": "Good Friday",
	"2026-05-25": "Memorial Day",
	"2026-06-19": "Juneteenth",
	"2026-07-03": "Independence Day (observed)",
	"2026-09-07": "Labor Day",
	"2026-11-26": "Thanksgiving Day",
	"2026-12-25": "Christmas Day",
}

// GetTradingHolidays returns all market holidays for the current year.
func GetTradingHolidays() map[string]string {
	return nyseHolidays2026
}

// ParseDateET parses a "2006-01-02" date string in Eastern time.
func ParseDateET(dateStr string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", dateStr, Eastern)
}

// FormatDateET formats a time.Time to "2006-01-02" in Eastern time.
func FormatDateET(t time.Time) string {
	return t.In(Eastern).Format("2006-01-02")
}

// FormatDateTimeET formats a time.Time to "2006-01-02 15:04:05 ET".
func FormatDateTimeET(t time.Time) string {
	return t.In(Eastern).Format("2006-01-02 15:04:05 ET")
}

// MarketStatus returns the current market status string.
func MarketStatus() string {
	now := NowEastern()

	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return "CLOSED (Weekend)"
	}
	if IsTradingHoliday(now) {
		holiday := nyseHolidays2026[now.Format("2006-01-02")]
		return "CLOSED (" + holiday + ")"
	}

	open := MarketOpenTime(now)
	close := MarketCloseTime(now)
	preMarket := PreMarketStart(now)
	afterHours := AfterHoursEnd(now)

	switch {
	case now.Before(preMarket):
		return "CLOSED"
	case now.Before(open):
		return "PRE-MARKET"
	case !now.After(close):
		return "OPEN"
	case now.Before(afterHours):
		return "AFTER-HOURS"
	default:
		return "CLOSED"
	}
}
