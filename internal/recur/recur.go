// Package recur expands recurring calendar events into concrete occurrences.
//
// Expansion is derive-on-read: a stored event carrying a recurrence rule is
// the template instance, and its occurrences exist only in projector output,
// never in the document. Occurrence ids are deterministic functions of the
// template id and the occurrence date, so repeated projection over
// overlapping windows can never produce two distinguishable copies of the
// same occurrence.
package recur

import (
	"fmt"
	"time"

	"github.com/duoplan/duoplan/internal/plan"
)

// Date is a pure calendar date, free of any time zone. All recurrence
// matching happens on Dates so that parsing a timestamp can never shift an
// event across a day boundary.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate normalizes an event date string to a calendar date. Accepted
// forms are date-only (YYYY-MM-DD) and RFC 3339 timestamps; a timestamp
// keeps the calendar date of its own offset rather than being converted to
// UTC or local time first.
func ParseDate(s string) (Date, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		y, m, d := t.Date()
		return Date{y, m, d}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.Date()
		return Date{y, m, d}, nil
	}
	return Date{}, fmt.Errorf("unrecognized date %q", s)
}

// Key renders the date as its ISO key (YYYY-MM-DD). Occurrence ids append
// this to the template id.
func (d Date) Key() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Before reports whether d precedes other in calendar order.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// After reports whether d follows other in calendar order.
func (d Date) After(other Date) bool { return other.Before(d) }

// Weekday returns the day of week. Computed through time.Date at noon UTC,
// which cannot roll the date across a boundary.
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC).Weekday()
}

// next returns the following calendar day.
func (d Date) next() Date {
	t := time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	y, m, day := t.Date()
	return Date{y, m, day}
}

// daysIn returns the number of days in a month.
func daysIn(year int, month time.Month) int {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 12, 0, 0, 0, time.UTC).Day()
}

// OccurrenceID derives the id of a concrete occurrence from its template.
// The inverse mapping (strip the trailing "-" + date key) is what lets an
// edit or delete on an occurrence trace back to its template.
func OccurrenceID(templateID string, d Date) string {
	return templateID + "-" + d.Key()
}

// Project expands events into the window [start, end], both bounds
// inclusive.
//
// Events without a recurrence rule pass through unmodified. A recurring
// template contributes one synthetic occurrence per matching date in the
// window: a shallow copy with Date set to the occurrence date and
// ID = OccurrenceID(template, date). Occurrences never precede the
// template's own anchor date.
//
// Matching rules, all anchored to the template date:
//   - Weekly: every date whose weekday equals the anchor's weekday.
//   - Monthly: the date whose day-of-month equals the anchor's; months too
//     short for that day produce nothing (no clamping).
//   - Yearly: the date whose month and day both equal the anchor's; Feb 29
//     anchors produce nothing in non-leap years.
//
// Project is pure and idempotent. Events whose date fails to parse are
// passed through unmodified rather than dropped; a malformed date is a data
// problem for the UI, not a reason to lose the event.
func Project(events []plan.CalendarEvent, start, end Date) []plan.CalendarEvent {
	if end.Before(start) {
		return []plan.CalendarEvent{}
	}

	out := make([]plan.CalendarEvent, 0, len(events))
	for _, ev := range events {
		if ev.Recurrence == plan.RecurNone || ev.Recurrence == "" {
			out = append(out, ev)
			continue
		}
		anchor, err := ParseDate(ev.Date)
		if err != nil {
			out = append(out, ev)
			continue
		}
		for _, d := range occurrences(ev.Recurrence, anchor, start, end) {
			occ := ev
			occ.ID = OccurrenceID(ev.ID, d)
			occ.Date = d.Key()
			out = append(out, occ)
		}
	}
	return out
}

func occurrences(rule plan.RecurrenceRule, anchor, start, end Date) []Date {
	// Occurrences never precede the anchor.
	if start.Before(anchor) {
		start = anchor
	}

	var out []Date
	switch rule {
	case plan.RecurWeekly:
		for d := start; !d.After(end); d = d.next() {
			if d.Weekday() == anchor.Weekday() {
				out = append(out, d)
			}
		}
	case plan.RecurMonthly:
		for y, m := start.Year, start.Month; ; y, m = nextMonth(y, m) {
			if anchor.Day <= daysIn(y, m) {
				d := Date{y, m, anchor.Day}
				if !d.Before(start) && !d.After(end) {
					out = append(out, d)
				}
			}
			if y > end.Year || (y == end.Year && m >= end.Month) {
				break
			}
		}
	case plan.RecurYearly:
		for y := start.Year; y <= end.Year; y++ {
			if anchor.Day > daysIn(y, anchor.Month) {
				continue // Feb 29 in a non-leap year
			}
			d := Date{y, anchor.Month, anchor.Day}
			if !d.Before(start) && !d.After(end) {
				out = append(out, d)
			}
		}
	}
	return out
}

func nextMonth(y int, m time.Month) (int, time.Month) {
	if m == time.December {
		return y + 1, time.January
	}
	return y, m + 1
}

// MonthWindow returns the inclusive window covering a whole month.
func MonthWindow(year int, month time.Month) (Date, Date) {
	return Date{year, month, 1}, Date{year, month, daysIn(year, month)}
}
