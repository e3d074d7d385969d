package ics

import (
	"errors"
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"coursecal/internal/model"
	"coursecal/internal/schedule"
)

const productID = "-//coursecal//course sessions//EN"

// ExportOptions controls ExportSessions.
type ExportOptions struct {
	// Recurring emits one VEVENT with RRULE/EXDATE instead of one VEVENT per
	// session. Both forms describe the same dates.
	Recurring bool

	// Now stamps DTSTAMP. Zero means time.Now().
	Now time.Time
}

// ExportSessions renders a planned course as an iCalendar document of
// all-day events.
func ExportSessions(plan model.Plan, opts ExportOptions) (*ical.Calendar, error) {
	if !plan.OK() {
		return nil, fmt.Errorf("export %s: %w", plan.Course.ID, plan.Err)
	}
	if len(plan.Sessions) == 0 {
		return nil, errors.New("export: plan has no sessions")
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetName(courseTitle(plan.Course))

	if opts.Recurring {
		if err := addRecurringEvent(cal, plan, opts.Now); err != nil {
			return nil, err
		}
		return cal, nil
	}

	total := len(plan.Sessions)
	for _, s := range plan.Sessions {
		ev := cal.AddEvent(fmt.Sprintf("%s-%d@coursecal", s.CourseID, s.Index))
		ev.SetDtStampTime(opts.Now)
		ev.SetSummary(fmt.Sprintf("%s (%d/%d)", courseTitle(plan.Course), s.Index, total))
		ev.SetAllDayStartAt(s.Date.Time())
		ev.SetAllDayEndAt(s.Date.AddDays(1).Time())
		if s.Index == total {
			ev.SetDescription("Final session")
		}
	}
	return cal, nil
}

func addRecurringEvent(cal *ical.Calendar, plan model.Plan, now time.Time) error {
	req, err := requestOf(plan)
	if err != nil {
		return err
	}
	first := plan.Sessions[0].Date

	ev := cal.AddEvent(plan.Course.ID + "@coursecal")
	ev.SetDtStampTime(now)
	ev.SetSummary(courseTitle(plan.Course))
	ev.SetAllDayStartAt(first.Time())
	ev.SetAllDayEndAt(first.AddDays(1).Time())
	ev.AddRrule(schedule.RecurrenceRule(req, plan.EndDate))
	for _, d := range plan.Excluded.Sorted() {
		if d.After(first) && d.Before(plan.EndDate) && req.Weekdays.Has(d.Weekday()) {
			ev.AddExdate(d.Time().Format("20060102"), ical.WithValue(string(ical.ValueDataTypeDate)))
		}
	}
	return nil
}

// requestOf rebuilds the weekday part of the schedule from the plan.
func requestOf(plan model.Plan) (schedule.Request, error) {
	days, err := schedule.ParseWeekdays(plan.Course.Weekdays)
	if err != nil {
		return schedule.Request{}, err
	}
	start, err := schedule.ParseDate(plan.Course.StartDate)
	if err != nil {
		return schedule.Request{}, err
	}
	return schedule.Request{
		Start:    start,
		Sessions: len(plan.Sessions),
		Weekdays: days,
		Excluded: plan.Excluded,
	}, nil
}

func courseTitle(c model.Course) string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}
