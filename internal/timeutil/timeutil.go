package timeutil

import (
	"time"
)

// Local is the school's timezone. Defaults to Pakistan Standard Time (UTC+5).
var Local *time.Location

func init() {
	Local = loadOrFixed("Asia/Karachi", "PKT", 5*60*60)
}

func loadOrFixed(name, abbr string, offset int) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// Fallback: create fixed zone if tzdata is not available
		return time.FixedZone(abbr, offset)
	}
	return loc
}

// SetLocation switches the package timezone. Unknown names keep the current one.
func SetLocation(name string) error {
	if name == "" {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	Local = loc
	return nil
}

// Now returns the current time in the school's timezone
func Now() time.Time {
	return time.Now().In(Local)
}

// ToLocal converts any time to the school's timezone
func ToLocal(t time.Time) time.Time {
	return t.In(Local)
}

// FormatLocal formats a time in the school's timezone; zero time formats as ""
func FormatLocal(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.In(Local).Format(layout)
}

// StartOfMonth returns midnight on the first day of t's month
func StartOfMonth(t time.Time) time.Time {
	l := t.In(Local)
	return time.Date(l.Year(), l.Month(), 1, 0, 0, 0, 0, Local)
}

// Common layouts
const (
	DateLayout    = "2006-01-02"
	SlipDate      = "02-Jan-2006"
	MonthLayout   = "Jan 2006"
	BillingMonth  = "January 2006"
	DisplayLayout = "02 Jan 2006, 03:04 PM"
)
