package domain

import "time"

// DateOnly returns the calendar day of t, as seen in t's location, as UTC
// midnight. Calendar dates are always compared in this form so a date read
// back from a DATE column equals the one that was written.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// dayInMonth returns the given day of the month that is `offset` months after
// (year, month). Days past the end of the target month clamp to its last day,
// so the 31st maps to Feb 28 or 29 rather than rolling into March.
func dayInMonth(year int, month time.Month, offset, day int, loc *time.Location) time.Time {
	first := time.Date(year, month+time.Month(offset), 1, 0, 0, 0, 0, loc)
	if last := daysIn(first.Year(), first.Month(), loc); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, loc)
}

// AddMonthsClamped moves a date forward by n calendar months keeping its
// day-of-month where the target month allows it.
func AddMonthsClamped(t time.Time, n int) time.Time {
	return dayInMonth(t.Year(), t.Month(), n, t.Day(), t.Location())
}
