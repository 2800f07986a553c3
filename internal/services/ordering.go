package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"ppcp-backend/internal/models"
	"ppcp-backend/internal/timeutil"
)

// StatusFilterAll selects every entry regardless of status
const StatusFilterAll = "todos"

// ErrUnknownDateField is returned for a date field other than the four planned dates
var ErrUnknownDateField = errors.New("unknown date field")

// Bucket is one bar of a histogram
type Bucket struct {
	Name  string `json:"name"`
	Count int    `json:"quantidade"`
}

// OverdueItem is an entry whose planned date has passed
type OverdueItem struct {
	OrderCode string `json:"name"`
	DaysLate  int    `json:"dias"`
}

// StatusFilters lists the values accepted by VisibleEntries, "todos" first
func StatusFilters() []string {
	statuses := models.Statuses()
	out := make([]string, 0, len(statuses)+1)
	out = append(out, StatusFilterAll)
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

// VisibleEntries returns the entries matching filter, most urgent priority
// first. Entries of equal priority keep their collection order. A filter that
// is not a known status (including "todos" and "") selects everything.
func VisibleEntries(entries []models.Entry, filter string) []models.Entry {
	status, err := models.ParseStatus(filter)
	all := err != nil

	out := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		if all || e.Status == status {
			out = append(out, e)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority.Rank() < out[j].Priority.Rank()
	})
	return out
}

// PriorityHistogram counts entries per priority level, every level included, most urgent first
func PriorityHistogram(entries []models.Entry) []Bucket {
	counts := make(map[models.Priority]int, len(entries))
	for _, e := range entries {
		counts[e.Priority]++
	}

	levels := models.Priorities()
	out := make([]Bucket, 0, len(levels))
	for _, p := range levels {
		out = append(out, Bucket{Name: string(p), Count: counts[p]})
	}
	return out
}

// StatusHistogram counts entries per workflow stage, every stage included, in workflow order
func StatusHistogram(entries []models.Entry) []Bucket {
	counts := make(map[models.Status]int, len(entries))
	for _, e := range entries {
		counts[e.Status]++
	}

	stages := models.Statuses()
	out := make([]Bucket, 0, len(stages))
	for _, s := range stages {
		out = append(out, Bucket{Name: string(s), Count: counts[s]})
	}
	return out
}

// ParseDateField checks that field names one of the planned-date fields
func ParseDateField(field string) (string, error) {
	for _, f := range models.DateFields() {
		if f == field {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDateField, field)
}

// Overdue lists entries whose field date is strictly before asOf, compared as
// calendar dates, with the whole days elapsed. Output keeps input order.
func Overdue(entries []models.Entry, field string, asOf time.Time) ([]OverdueItem, error) {
	if _, err := ParseDateField(field); err != nil {
		return nil, err
	}

	today := timeutil.CalendarDate(asOf)
	out := make([]OverdueItem, 0)
	for _, e := range entries {
		raw, _ := e.DateValue(field)
		planned, err := timeutil.ParseDate(timeutil.CanonicalLayout, raw)
		if err != nil {
			continue
		}
		if days := timeutil.DaysBetween(planned, today); days > 0 {
			out = append(out, OverdueItem{OrderCode: e.OrderCode, DaysLate: days})
		}
	}
	return out, nil
}
