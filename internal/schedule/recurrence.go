package schedule

import (
	"strings"

	"github.com/teambition/rrule-go"
)

var rruleWeekdays = map[Weekday]rrule.Weekday{
	Monday:    rrule.MO,
	Tuesday:   rrule.TU,
	Wednesday: rrule.WE,
	Thursday:  rrule.TH,
	Friday:    rrule.FR,
	Saturday:  rrule.SA,
	Sunday:    rrule.SU,
}

// recurrenceOption describes the weekly rule behind r, ending on end.
// DTSTART is the day after the start date since the start date never counts.
func recurrenceOption(r Request, end Date) rrule.ROption {
	days := r.Weekdays.Days()
	byday := make([]rrule.Weekday, 0, len(days))
	for _, d := range days {
		byday = append(byday, rruleWeekdays[d])
	}
	return rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   r.Start.AddDays(1).Time(),
		Until:     end.Time(),
		Byweekday: byday,
		Wkst:      rrule.MO,
	}
}

// Recurrence returns an RFC 5545 rule set yielding exactly the sessions of r
// that fall on or before end: a weekly BYDAY rule plus one EXDATE per excluded
// date in range. All instants are midnight UTC.
func Recurrence(r Request, end Date) (*rrule.Set, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	rule, err := rrule.NewRRule(recurrenceOption(r, end))
	if err != nil {
		return nil, err
	}

	set := &rrule.Set{}
	set.RRule(rule)
	for _, d := range r.Excluded.Sorted() {
		if d.After(r.Start) && !d.After(end) && r.Weekdays.Has(d.Weekday()) {
			set.ExDate(d.Time())
		}
	}
	return set, nil
}

// RecurrenceRule returns the RRULE value (without DTSTART) for r ending on end,
// e.g. "FREQ=WEEKLY;UNTIL=20240122;BYDAY=MO". UNTIL is a DATE so the rule
// pairs with an all-day DTSTART.
func RecurrenceRule(r Request, end Date) string {
	opt := recurrenceOption(r, end)
	until := end.Time()
	return strings.Replace(opt.RRuleString(),
		"UNTIL="+until.Format("20060102T150405Z"),
		"UNTIL="+until.Format("20060102"), 1)
}
