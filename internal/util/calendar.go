package util

import (
	"fmt"
	"time"
	_ "time/tzdata" // Embedded zone database for hosts without zoneinfo.

	"reporter/internal/domain"
)

// ReportingZone is the time zone the CMS evaluates changed timestamps in.
const ReportingZone = "Australia/Sydney"

// ReportingCalendar derives reporting periods in a fixed time zone.
type ReportingCalendar struct {
	loc *time.Location
}

// NewReportingCalendar creates a ReportingCalendar for the named IANA zone.
func NewReportingCalendar(zone string) (*ReportingCalendar, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("loading %s timezone: %w", zone, err)
	}
	return &ReportingCalendar{loc: loc}, nil
}

// Location returns the calendar's time zone.
func (c *ReportingCalendar) Location() *time.Location { return c.loc }

// PreviousMonth returns the calendar month before the month containing now,
// as seen in the calendar's zone.
func (c *ReportingCalendar) PreviousMonth(now time.Time) domain.Period {
	local := now.In(c.loc)

	// Day 0 of the current month normalises to the last day of the previous
	// one, so month lengths and leap years come from time.Date.
	last := time.Date(local.Year(), local.Month(), 0, 0, 0, 0, 0, c.loc)

	return domain.Period{
		Year:  last.Year(),
		Month: last.Month(),
		Start: time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, c.loc),
		End:   time.Date(last.Year(), last.Month(), last.Day(), 23, 59, 59, 0, c.loc),
	}
}
