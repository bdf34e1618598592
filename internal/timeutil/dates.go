package timeutil

import (
	"time"
)

// Factory is the location of the shop floor. Calendar dates ("today", plan
// start dates) are resolved in this zone.
var Factory = time.UTC

// SetLocation switches the factory zone. An unknown name keeps the current zone.
func SetLocation(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	Factory = loc
	return nil
}

// Now returns the current time in the factory zone
func Now() time.Time {
	return time.Now().In(Factory)
}

// Date truncates t to its calendar date in the factory zone. Dates are carried
// as midnight UTC so they compare and store the same way as a DATE column.
func Date(t time.Time) time.Time {
	local := t.In(Factory)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the current factory calendar date
func Today() time.Time {
	return Date(time.Now())
}

// ParseDate parses a YYYY-MM-DD calendar date
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, time.UTC)
}

// AddDays shifts a calendar date by whole days
func AddDays(d time.Time, days int) time.Time {
	return d.AddDate(0, 0, days)
}

// FormatDate renders a calendar date, or "-" when unset
func FormatDate(d *time.Time) string {
	if d == nil {
		return "-"
	}
	return d.Format(DateLayout)
}

// Common layouts
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
	DisplayLayout  = "02 Jan 2006, 03:04 PM"
)
