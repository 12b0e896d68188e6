// Package numfmt turns amounts, dates and free text into strings that are
// safe to print on a challan.
package numfmt

import (
	"math"
	"strings"
	"time"

	"challan-backend/internal/timeutil"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Pinned to English so grouping never follows the host locale.
var printer = message.NewPrinter(language.English)

// Money rounds to whole units and groups thousands: 2500 -> "2,500"
func Money(d decimal.Decimal) string {
	return printer.Sprintf("%d", d.Round(0).IntPart())
}

// Float formats a raw float the same way as Money. NaN and Inf print as "0".
func Float(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	return Money(decimal.NewFromFloat(f))
}

// Safe trims s and suppresses placeholder tokens that must never be printed.
func Safe(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "null", "undefined", "<nil>", "nan":
		return ""
	}
	return s
}

// SafeOr is Safe with a fallback for empty values
func SafeOr(s, fallback string) string {
	if v := Safe(s); v != "" {
		return v
	}
	return fallback
}

// Date formats t as 02-Jan-2006 in the school's timezone
func Date(t time.Time) string {
	return timeutil.FormatLocal(t, timeutil.SlipDate)
}

// Month formats t as Jan 2006 in the school's timezone
func Month(t time.Time) string {
	return timeutil.FormatLocal(t, timeutil.MonthLayout)
}
