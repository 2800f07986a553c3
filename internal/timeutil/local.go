package timeutil

import (
	"log"
	"time"
)

// Local is the plant's time zone. Calendar-date comparisons ("today") use it.
var Local *time.Location

func init() {
	Local = loadLocation("America/Sao_Paulo")
}

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// Fallback: fixed zone if tzdata is not available
		return time.FixedZone("BRT", -3*60*60) // UTC-3
	}
	return loc
}

// SetLocation switches the plant time zone (from config)
func SetLocation(name string) {
	if name == "" {
		return
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("[Config] Unknown timezone %q, keeping %s", name, Local)
		return
	}
	Local = loc
}

// Now returns the current time in the plant time zone
func Now() time.Time {
	return time.Now().In(Local)
}

// Today returns the current calendar date in the plant time zone
func Today() time.Time {
	return CalendarDate(Now())
}

// CalendarDate drops the time of day, keeping the date as seen in t's own location.
// The result is midnight UTC so day arithmetic is free of DST shifts.
func CalendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a calendar date with the given layout
func ParseDate(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, time.UTC)
}

// DaysBetween returns whole days from a to b (b - a), both taken as calendar dates
func DaysBetween(a, b time.Time) int {
	return int(CalendarDate(b).Sub(CalendarDate(a)).Hours() / 24)
}

// Common layouts
const (
	// CanonicalLayout is the single stored form of every planned date
	CanonicalLayout = "2006-01-02"
	// DisplayLayout is the spreadsheet/export form
	DisplayLayout = "02/01/2006"
	// FileStampLayout is used in generated backup file names
	FileStampLayout = "02-01-2006_15-04"
)
