// Package timeutil provides calendar utilities pinned to the platform
// timezone. The progression engine must treat "day" consistently in one
// fixed zone: streak continuation, the weekly display array and badge time
// windows all go through this package.
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// PlatformTZ is the single timezone used for all calendar math.
// Changing it mid-deployment would shift every user's "today", so it is a
// build-time constant rather than configuration.
var PlatformTZ = time.UTC

// Now returns the current time in the platform timezone.
func Now() time.Time {
	return time.Now().In(PlatformTZ)
}

// ToPlatform converts a time to the platform timezone.
func ToPlatform(t time.Time) time.Time {
	return t.In(PlatformTZ)
}

// Date creates a midnight time in the platform timezone.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, PlatformTZ)
}

// StartOfDay returns the start of the day (00:00:00) in the platform timezone.
func StartOfDay(t time.Time) time.Time {
	p := ToPlatform(t)
	return time.Date(p.Year(), p.Month(), p.Day(), 0, 0, 0, 0, PlatformTZ)
}

// StartOfWeek returns the start of the ISO week (Monday 00:00:00) containing t.
func StartOfWeek(t time.Time) time.Time {
	p := ToPlatform(t)
	weekday := int(p.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return StartOfDay(p.AddDate(0, 0, -(weekday - 1)))
}

// SameDay reports whether a and b fall on the same platform-timezone date.
func SameDay(a, b time.Time) bool {
	pa, pb := ToPlatform(a), ToPlatform(b)
	return pa.Year() == pb.Year() && pa.Month() == pb.Month() && pa.Day() == pb.Day()
}

// IsYesterday reports whether t falls on the platform-timezone date
// immediately before ref.
func IsYesterday(t, ref time.Time) bool {
	return SameDay(t, StartOfDay(ref).AddDate(0, 0, -1))
}

// DaysBetween returns the number of whole calendar days from a to b in the
// platform timezone. Positive when b is after a.
func DaysBetween(a, b time.Time) int {
	da, db := StartOfDay(a), StartOfDay(b)
	return int(db.Sub(da) / (24 * time.Hour))
}

// HourOfDay returns the hour (0-23) of t in the platform timezone.
func HourOfDay(t time.Time) int {
	return ToPlatform(t).Hour()
}

// DateKey formats t as a YYYY-MM-DD key in the platform timezone.
// Used for persisting sets of active dates.
func DateKey(t time.Time) string {
	return ToPlatform(t).Format("2006-01-02")
}

// ParseDateKey parses a YYYY-MM-DD key back into a platform midnight.
func ParseDateKey(key string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", key, PlatformTZ)
}
