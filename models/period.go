package models

import (
	"fmt"
	"time"
)

// Period selects both the ranked metric field and the query window.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return Period(s), nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Field returns the ranked metric field on the remote document: the per-day
// activity document for daily, the profile aggregate otherwise.
func (p Period) Field() string {
	switch p {
	case PeriodDaily:
		return "steps"
	case PeriodMonthly:
		return "monthlySteps"
	default:
		return "weeklySteps"
	}
}

// WindowStart returns the start of the aggregation window containing t,
// in t's location. Weeks start on Monday.
func (p Period) WindowStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	switch p {
	case PeriodWeekly:
		offset := int(day.Weekday()) - int(time.Monday)
		if offset < 0 {
			offset += 7 // Sunday
		}
		return day.AddDate(0, 0, -offset)
	case PeriodMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return day
	}
}
