package calendar

import "time"

// AddDays returns d shifted by n calendar days.
func AddDays(d Date, n int) Date {
	return FromTime(d.Time(nil).AddDate(0, 0, n))
}

// AddMonths returns d shifted by n months. The day is clamped to the length
// of the target month, so Jan 31 + 1 month is Feb 28/29 and consecutive
// offsets always land in consecutive months.
func AddMonths(d Date, n int) Date {
	total := d.Year*12 + int(d.Month-1) + n
	y := total / 12
	m := total % 12
	if m < 0 {
		m += 12
		y--
	}
	month := time.Month(m + 1)
	day := d.Day
	if last := DaysInMonth(y, month); day > last {
		day = last
	}
	return Date{Year: y, Month: month, Day: day}
}

// DaysInMonth returns the number of days of month m in year y.
func DaysInMonth(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func StartOfMonth(d Date) Date { return Date{Year: d.Year, Month: d.Month, Day: 1} }

// StartOfWeek returns the Sunday on or before d (grid weeks start on Sunday).
func StartOfWeek(d Date) Date {
	return AddDays(d, -int(d.Weekday()))
}

// NextMonday returns the first Monday strictly after d.
func NextMonday(d Date) Date {
	// Sunday=0 -> +1, Monday=1 -> +7, Saturday=6 -> +2
	n := (8 - int(d.Weekday())) % 7
	if n == 0 {
		n = 7
	}
	return AddDays(d, n)
}

// MondayOf returns the Monday of the Monday–Sunday week containing d.
func MondayOf(d Date) Date {
	wd := int(d.Weekday())
	if wd == 0 {
		wd = 7
	}
	return AddDays(d, 1-wd)
}

// DaysBetween returns the number of days from a to b (negative if b is before a).
func DaysBetween(a, b Date) int {
	return int(b.Time(nil).Sub(a.Time(nil)).Hours() / 24)
}
