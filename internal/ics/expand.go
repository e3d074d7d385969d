package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "coursecal/internal/log"
	"coursecal/internal/schedule"
)

const defaultMaxOccurrencesPerHoliday = 5000

// ExpandConfig controls how holidays become excluded dates.
type ExpandConfig struct {
	// Location converts timed (non all-day) holidays into calendar dates.
	// All-day holidays keep their own date. Nil means time.Local.
	Location *time.Location

	// From / To is the inclusive date window of interest.
	From schedule.Date
	To   schedule.Date

	// MaxOccurrencesPerHoliday caps recurrence expansion. Zero means 5000.
	MaxOccurrencesPerHoliday int
}

// ExpandResult is the set of holiday dates inside the window.
type ExpandResult struct {
	Dates schedule.DateSet
	// Truncated lists UIDs whose recurrence hit the cap.
	Truncated []string
}

// ExpandHolidays turns holidays into the calendar dates they cover within
// [cfg.From, cfg.To]. It handles:
//
//   - single and multi-day all-day events (DTEND exclusive)
//   - timed events, covering every date they touch in cfg.Location
//   - RRULE recurrence (e.g. FREQ=YEARLY) with EXDATE removal
func ExpandHolidays(holidays []Holiday, cfg ExpandConfig) (ExpandResult, error) {
	result := ExpandResult{Dates: make(schedule.DateSet)}

	if cfg.From.IsZero() || cfg.To.IsZero() {
		return result, errors.New("expand: window is not set")
	}
	if cfg.To.Before(cfg.From) {
		return result, errors.New("expand: To is before From")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxOccurrencesPerHoliday <= 0 {
		cfg.MaxOccurrencesPerHoliday = defaultMaxOccurrencesPerHoliday
	}

	for _, h := range holidays {
		starts, hitCap := occurrenceStarts(h, cfg)
		if hitCap {
			result.Truncated = append(result.Truncated, h.UID)
			appLog.Error("expand: truncated holiday recurrence due to cap",
				errors.New("max occurrences reached"),
				"uid", h.UID,
				"cap", cfg.MaxOccurrencesPerHoliday,
			)
		}
		for _, start := range starts {
			first, last := coveredDates(h, start, cfg.Location)
			for d := first; !d.After(last); d = d.AddDays(1) {
				if !d.Before(cfg.From) && !d.After(cfg.To) {
					result.Dates.Add(d)
				}
			}
		}
	}

	return result, nil
}

// occurrenceStarts returns the start instants of h that may touch the window.
func occurrenceStarts(h Holiday, cfg ExpandConfig) ([]time.Time, bool) {
	if h.RawRRule == "" {
		return []time.Time{h.Start}, false
	}

	// Parse in the event's own zone so a DATE-form UNTIL lines up with an
	// all-day DTSTART.
	opt, err := rrule.StrToROptionInLocation(h.RawRRule, h.Start.Location())
	if err == nil {
		opt.Dtstart = h.Start
	}
	var r *rrule.RRule
	if err == nil {
		r, err = rrule.NewRRule(*opt)
	}
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", h.UID, "rrule", h.RawRRule)
		return []time.Time{h.Start}, false
	}

	var set rrule.Set
	set.RRule(r)
	for _, ex := range h.ExDates {
		set.ExDate(ex.In(h.Start.Location()))
	}

	// Widen by the event span plus a day each side so zone offsets and
	// multi-day events starting before From are not lost; dates are
	// filtered exactly by the caller.
	span := spanDays(h)
	lo := cfg.From.AddDays(-span - 1).Time()
	hi := cfg.To.AddDays(2).Time()

	starts := set.Between(lo, hi, true)
	if len(starts) > cfg.MaxOccurrencesPerHoliday {
		return starts[:cfg.MaxOccurrencesPerHoliday], true
	}
	return starts, false
}

// spanDays is the number of whole days h lasts, at least one.
func spanDays(h Holiday) int {
	if h.End.IsZero() || !h.End.After(h.Start) {
		return 1
	}
	n := int(h.End.Sub(h.Start).Hours()+23) / 24
	if n < 1 {
		return 1
	}
	return n
}

// coveredDates returns the first and last calendar date an occurrence
// starting at start occupies.
func coveredDates(h Holiday, start time.Time, loc *time.Location) (schedule.Date, schedule.Date) {
	if h.AllDay {
		first := schedule.DateOf(start)
		return first, first.AddDays(allDayLength(h) - 1)
	}

	first := schedule.DateOf(start.In(loc))
	if h.End.IsZero() || !h.End.After(h.Start) {
		return first, first
	}
	end := start.Add(h.End.Sub(h.Start))
	// DTEND is exclusive: an event ending exactly at midnight does not touch that day.
	last := schedule.DateOf(end.Add(-time.Nanosecond).In(loc))
	return first, last
}

// allDayLength counts the days of an all-day event by calendar date so DST
// changes inside the event do not matter.
func allDayLength(h Holiday) int {
	if h.End.IsZero() {
		return 1
	}
	n := schedule.DateOf(h.Start).DaysUntil(schedule.DateOf(h.End))
	if n < 1 {
		return 1
	}
	return n
}
