// Package calendar maps instants to civil-calendar buckets in a user's own
// time zone and rolls billing anchors forward without drift.
package calendar

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownTimezone = errors.New("unknown_timezone")
	ErrInvalidStep     = errors.New("invalid_step_months")
)

// Location resolves an IANA time-zone identifier. An unrecognized identifier
// is a configuration error; there is no silent UTC fallback.
func Location(tz string) (*time.Location, error) {
	if tz == "" {
		return nil, ErrUnknownTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTimezone, tz)
	}
	return loc, nil
}

// DayKey formats the civil date of t as observed in loc, e.g. "2026-03-09".
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// MonthKey formats the civil month of t as observed in loc, e.g. "2026-03".
func MonthKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01")
}

// DayBounds returns the [start, end) instants of the civil day containing t
// in loc. Constructing both boundaries from calendar fields keeps them
// correct across DST transitions, where the day is not 24 hours long.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	y, m, d := local.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	end := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	return start, end
}

// MonthBounds returns the [start, end) instants of the civil month containing
// t in loc.
func MonthBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	y, m, _ := local.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
	end := time.Date(y, m+1, 1, 0, 0, 0, 0, loc)
	return start, end
}

// RollAnchorForward returns the first instant strictly after now reached by
// adding whole stepMonths-month steps to anchor. Every candidate is computed
// from the original anchor's calendar fields, so a day-of-month that gets
// clipped in a short month (Jan 31 -> Feb 28) is restored in later months
// instead of drifting. An anchor already strictly after now is returned
// unchanged. The result depends only on the arguments.
func RollAnchorForward(anchor, now time.Time, stepMonths int) (time.Time, error) {
	if stepMonths <= 0 {
		return time.Time{}, ErrInvalidStep
	}
	anchor = anchor.UTC()
	now = now.UTC()
	if anchor.After(now) {
		return anchor, nil
	}

	steps := estimateSteps(anchor, now, stepMonths)
	if steps < 1 {
		steps = 1
	}
	for {
		candidate := addMonths(anchor, steps*stepMonths)
		if !candidate.After(now) {
			steps++
			continue
		}
		if steps > 1 {
			if prev := addMonths(anchor, (steps-1)*stepMonths); prev.After(now) {
				steps--
				continue
			}
		}
		return candidate, nil
	}
}

// PeriodBounds returns the current [start, end) period containing now, where
// end is the rolled-forward anchor and start is one step earlier.
func PeriodBounds(anchor, now time.Time, stepMonths int) (time.Time, time.Time, error) {
	end, err := RollAnchorForward(anchor, now, stepMonths)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	anchor = anchor.UTC()
	if end.Equal(anchor) {
		// Anchor in the future: the period preceding it.
		return addMonths(anchor, -stepMonths), end, nil
	}
	steps := monthsBetween(anchor, end) / stepMonths
	start := addMonths(anchor, (steps-1)*stepMonths)
	return start, end, nil
}

// addMonths adds months to t using calendar-field semantics: the original
// day-of-month is kept, clipped to the last day of the target month.
func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	target := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(target.Year(), target.Month()); d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func monthsBetween(a, b time.Time) int {
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if months < 0 {
		return 0
	}
	return months
}

// estimateSteps undershoots the number of steps needed so the rolling loop
// starts close to the answer instead of at the anchor.
func estimateSteps(anchor, now time.Time, stepMonths int) int {
	months := monthsBetween(anchor, now)
	steps := months / stepMonths
	if steps > 0 {
		steps--
	}
	return steps
}
